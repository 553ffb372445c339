package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/matjip/internal/denylist"
)

const (
	minNameRunes = 2
	maxNameRunes = 15

	// Precomposed Hangul syllable block.
	hangulFirst = '\uAC00'
	hangulLast  = '\uD7A3'
)

// IsExactRestaurantName reports whether name looks like a specific
// restaurant name rather than generic vocabulary. It favors precision:
// anything doubtful is rejected.
func IsExactRestaurantName(deny *denylist.List, name, region string) bool {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < minNameRunes || n > maxNameRunes {
		return false
	}
	if !hasHangul(name) {
		return false
	}
	if deny.Exact(name) || deny.ContainsAny(name) {
		return false
	}
	if deny.IsGenericName(name) || deny.IsRegion(name) || (region != "" && name == region) {
		return false
	}

	// Region plus at most a generic venue word, e.g. "애월 식당".
	rest := deny.StripRegions(name)
	if region != "" {
		rest = strings.ReplaceAll(rest, region, "")
	}
	rest = strings.TrimSpace(rest)
	if rest != name {
		if utf8.RuneCountInString(rest) < minNameRunes || deny.IsGenericName(rest) {
			return false
		}
	}

	if deny.HasAdjective(name) && strings.Contains(name, "맛집") {
		return false
	}
	return true
}

func hasHangul(s string) bool {
	for _, r := range s {
		if r >= hangulFirst && r <= hangulLast {
			return true
		}
	}
	return false
}
