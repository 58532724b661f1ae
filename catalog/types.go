package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidFeature  = errors.New("invalid feature")
)

// Category is one of the fixed catalog sections an entry belongs to.
type Category string

const (
	CategoryGames         Category = "games"
	CategorySocial        Category = "social"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryEducation     Category = "education"
	CategoryMusicAudio    Category = "music-audio"
	CategorySecurity      Category = "security"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryGames,
	CategorySocial,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryEducation,
	CategoryMusicAudio,
	CategorySecurity,
}

// ParseCategory returns the Category named by s. Matching is exact.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Feature labels a modification present in a package.
type Feature string

const (
	FeatureNoAds              Feature = "no-ads"
	FeaturePremium            Feature = "premium"
	FeatureUnlimitedResources Feature = "unlimited-resources"
	FeatureProFeatures        Feature = "pro-features"
	FeatureAntiBan            Feature = "anti-ban"
	FeatureBackgroundPlay     Feature = "background-play"
	FeatureHDSupport          Feature = "hd-support"
	FeatureSaveMedia          Feature = "save-media"
	FeatureRadarHack          Feature = "radar-hack"
)

var Features = []Feature{
	FeatureNoAds,
	FeaturePremium,
	FeatureUnlimitedResources,
	FeatureProFeatures,
	FeatureAntiBan,
	FeatureBackgroundPlay,
	FeatureHDSupport,
	FeatureSaveMedia,
	FeatureRadarHack,
}

// ParseFeature returns the Feature named by s. Matching is exact.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFeature, s)
}

// DefaultRating is the rating given to freshly uploaded entries (4.5 stars).
const DefaultRating = 45

// MaxRating is the top of the 0-50 rating scale.
const MaxRating = 50

// DefaultLatestLimit is used by ListLatest when no positive limit is given.
const DefaultLatestLimit = 8

// User is a catalog account. Passwords are stored as given.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Entry is one uploaded application package record.
type Entry struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Category    Category  `json:"category"`
	Size        string    `json:"size"` // free text, e.g. "150MB"
	FileName    string    `json:"fileName"`
	IconPath    *string   `json:"iconPath"`
	Rating      int       `json:"rating"` // 0-50, half-star precision
	Downloads   int       `json:"downloads"`
	UploadedAt  time.Time `json:"uploadedAt"`
	OwnerUserID *int      `json:"userId"`
	IsFeatured  bool      `json:"isFeatured"`
	IsTrending  bool      `json:"isTrending"`
	Checksum    string    `json:"checksum,omitempty"`
}

// FeatureTag attaches one Feature to an entry.
type FeatureTag struct {
	ID      int     `json:"id"`
	EntryID int     `json:"apkId"`
	Feature Feature `json:"feature"`
}

// EntryWithFeatures is an entry joined with its feature tags, the shape
// returned by every read operation.
type EntryWithFeatures struct {
	Entry
	Features []Feature `json:"features"`
}

// NewEntry carries the caller-supplied metadata for Create.
type NewEntry struct {
	Name        string
	Description string
	Version     string
	Category    Category
	Size        string
	FileName    string
	IconPath    *string
	OwnerUserID *int
	Checksum    string
}

// SuggestedFileName is the download name offered to clients:
// whitespace runs in the name become underscores, followed by the version.
func (e Entry) SuggestedFileName() string {
	return whitespace.ReplaceAllString(e.Name, "_") + "_" + e.Version + ".apk"
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}
