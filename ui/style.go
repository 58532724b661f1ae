package ui

import (
	"fmt"

	"apk-catalog/catalog"

	"github.com/charmbracelet/lipgloss"
)

var categoryColors = map[catalog.Category]int{
	catalog.CategoryGames:         0xe74c3c,
	catalog.CategorySocial:        0x3498db,
	catalog.CategoryEntertainment: 0x9b59b6,
	catalog.CategoryUtilities:     0x95a5a6,
	catalog.CategoryEducation:     0xf1c40f,
	catalog.CategoryMusicAudio:    0x1abc9c,
	catalog.CategorySecurity:      0x2ecc71,
}

// Colorize applies the given color to the text using lipgloss.
// color is a 0xRRGGBB integer.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// CategoryColor returns the display color of a category; unknown
// categories are white.
func CategoryColor(c catalog.Category) int {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return 0xffffff
}

// Stars renders a 0-50 rating as five stars, e.g. "★★★★☆ 4.5".
func Stars(rating int) string {
	full := (rating + 5) / 10
	if full > 5 {
		full = 5
	}
	if full < 0 {
		full = 0
	}
	out := ""
	for i := 0; i < 5; i++ {
		if i < full {
			out += "★"
		} else {
			out += "☆"
		}
	}
	return fmt.Sprintf("%s %.1f", out, float64(rating)/10)
}
