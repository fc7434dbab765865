package film

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// NormalizeTitle prepares a title for caseless comparison: Unicode case
// folding plus whitespace collapsing. Used for matching only, never for
// display. A fresh Caser per call keeps this safe across workflow lanes.
func NormalizeTitle(title string) string {
	folded := cases.Fold().String(strings.TrimSpace(title))
	if folded == "" {
		return ""
	}
	return strings.Join(strings.Fields(folded), " ")
}

// TitlesMatch reports whether two titles denote the same film name under
// caseless, whitespace-insensitive comparison.
func TitlesMatch(a, b string) bool {
	na := NormalizeTitle(a)
	if na == "" {
		return false
	}
	return na == NormalizeTitle(b)
}

// SanitizeSearchTitle strips parenthetical annotations ("Heat (1995)",
// "Solaris (TV)") and collapses non-alphanumeric runs to single spaces.
// Only the regional catalog's fallback search uses this transform; direct
// lookups always pass titles through untouched.
func SanitizeSearchTitle(title string) string {
	title = stripParentheticals(title)
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func stripParentheticals(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	depth := 0
	for _, r := range title {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
