package content

import "strings"

// MapFont substitutes an arbitrary source font with the closest
// base-14 Times face. Matching is a coarse substring test on the
// style markers embedded in PostScript font names.
func MapFont(baseFont string) string {
	name := strings.ToLower(baseFont)
	bold := strings.Contains(name, "bold")
	italic := strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	switch {
	case bold && italic:
		return "Times-BoldItalic"
	case bold:
		return "Times-Bold"
	case italic:
		return "Times-Italic"
	}
	return "Times-Roman"
}
