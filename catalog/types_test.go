package catalog

import (
	"errors"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"games", CategoryGames, false},
		{"music-audio", CategoryMusicAudio, false},
		{"security", CategorySecurity, false},
		{"Games", "", true}, // exact match only
		{"weather", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCategory) {
					t.Errorf("ParseCategory(%q) error = %v, want ErrInvalidCategory", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestParseFeature(t *testing.T) {
	for _, f := range Features {
		got, err := ParseFeature(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFeature(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFeature("wallhack"); !errors.Is(err, ErrInvalidFeature) {
		t.Errorf("expected ErrInvalidFeature, got %v", err)
	}
	if len(Features) != 9 || len(Categories) != 7 {
		t.Errorf("vocabulary sizes = %d features, %d categories", len(Features), len(Categories))
	}
}

func TestSuggestedFileName(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"Test App", "1.0", "Test_App_1.0.apk"},
		{"YouTube  Vanced\tPro", "17.33.42", "YouTube_Vanced_Pro_17.33.42.apk"},
		{"Single", "2", "Single_2.apk"},
	}
	for _, tt := range tests {
		e := Entry{Name: tt.name, Version: tt.version}
		if got := e.SuggestedFileName(); got != tt.want {
			t.Errorf("SuggestedFileName(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := map[int]int{-3: DefaultLatestLimit, 0: DefaultLatestLimit, 1: 1, 20: 20}
	for in, want := range tests {
		if got := NormalizeLimit(in); got != want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestClampRating(t *testing.T) {
	tests := map[int]int{-1: 0, 0: 0, 45: 45, 50: 50, 51: 50}
	for in, want := range tests {
		if got := clampRating(in); got != want {
			t.Errorf("clampRating(%d) = %d, want %d", in, got, want)
		}
	}
}
