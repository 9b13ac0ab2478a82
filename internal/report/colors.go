// ============================================================================
// internal/report/colors.go
// Color fallback for rendering backends that only understand simple sRGB
// ============================================================================

package report

import (
	"fmt"
	"regexp"
	"strings"
)

// unsupportedColorPattern matches modern color-space syntaxes the rasterizer
// cannot represent. Styles carrying these must be neutralized before render
// or the output is not guaranteed at all.
var unsupportedColorPattern = regexp.MustCompile(`(?i)(oklch|oklab|lch\(|lab\(|color\(display-p3)`)

const (
	fallbackText       = "#000000"
	fallbackBackground = "#ffffff"
)

// IsUnsupportedColor reports whether a color value uses a syntax the
// renderer cannot handle.
func IsUnsupportedColor(value string) bool {
	return unsupportedColorPattern.MatchString(value)
}

// SafeColor substitutes fallback for any unsupported color value
func SafeColor(value, fallback string) string {
	if value == "" || IsUnsupportedColor(value) {
		return fallback
	}
	return value
}

// SanitizeStyle forces every style color into the renderable range:
// text-like colors fall back to black, background-like colors to white.
func SanitizeStyle(s Style) Style {
	s.HeaderBG = SafeColor(s.HeaderBG, fallbackBackground)
	s.HeaderText = SafeColor(s.HeaderText, fallbackText)
	s.BodyText = SafeColor(s.BodyText, fallbackText)
	s.PageBG = SafeColor(s.PageBG, fallbackBackground)
	return s
}

// hexToRGB parses #rgb or #rrggbb into components. Unparseable values fall
// back to black.
func hexToRGB(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	switch len(hex) {
	case 3:
		fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b)
		r, g, b = r*17, g*17, b*17
	case 6:
		fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	default:
		return 0, 0, 0
	}
	return r, g, b
}
