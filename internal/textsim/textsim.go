// Package textsim normalizes restaurant names and scores their similarity.
package textsim

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// DefaultSuffixes are venue-type endings stripped before keyword extraction.
// Order matters: they are removed one after another.
var DefaultSuffixes = []string{"갤러리", "카페", "레스토랑", "식당", "횟집", "맛집", "집", "점", "관"}

// Normalize folds s into its comparison form: NFC-composed, width-folded,
// lowercased, with all whitespace and the characters - _ . ( ) removed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = width.Fold.String(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || isStripped(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func isStripped(r rune) bool {
	switch r {
	case '-', '_', '.', '(', ')':
		return true
	}
	return false
}

// Similarity scores a and b in [0,1] after normalization.
//
// Equal strings score 1. If the shorter is contained in the longer the
// score is the rune-length ratio. Otherwise it is the fraction of the
// shorter string's runes that appear anywhere in the longer one.
// Empty input scores 0.
func Similarity(a, b string) float64 {
	return SimilarityNormalized(Normalize(a), Normalize(b))
}

// SimilarityNormalized is Similarity for inputs already passed through
// Normalize.
func SimilarityNormalized(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1.0
	}

	shorter, longer := s1, s2
	if utf8.RuneCountInString(s1) > utf8.RuneCountInString(s2) {
		shorter, longer = s2, s1
	}
	ls := utf8.RuneCountInString(shorter)
	ll := utf8.RuneCountInString(longer)

	if strings.Contains(longer, shorter) {
		return float64(ls) / float64(ll)
	}

	present := make(map[rune]struct{}, ll)
	for _, r := range longer {
		present[r] = struct{}{}
	}
	common := 0
	for _, r := range shorter {
		if _, ok := present[r]; ok {
			common++
		}
	}
	return float64(common) / float64(ls)
}

// Keywords extracts the matching keywords of a restaurant name. The given
// suffixes are stripped in order, then the cleaned name and each token of
// at least two runes is returned in raw and normalized form, deduplicated
// in first-seen order.
func Keywords(name string, suffixes []string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	clean := name
	for _, suf := range suffixes {
		clean = strings.TrimSuffix(clean, suf)
	}
	clean = strings.TrimSpace(clean)

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	if utf8.RuneCountInString(clean) >= 2 {
		add(clean)
		add(Normalize(clean))
	}

	words := Tokens(clean)
	for _, w := range words {
		add(w)
	}
	for _, w := range words {
		add(Normalize(w))
	}
	return out
}

// Tokens splits s on whitespace and - _ . into tokens of at least two runes.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// KeywordOverlap returns the fraction of keywords whose normalized form is
// contained in the normalized candidate name.
func KeywordOverlap(keywords []string, candidate string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	nc := Normalize(candidate)
	hits := 0
	for _, k := range keywords {
		nk := Normalize(k)
		if nk != "" && strings.Contains(nc, nk) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// branchSuffixes are branch markers dropped by CleanBranch.
var branchSuffixes = []string{"지점", "본점", "분점", "점"}

// CleanBranch removes whitespace and brackets from name, lowercases it and
// drops one trailing branch marker.
func CleanBranch(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case strings.ContainsRune("()[]{}", r):
			return -1
		}
		return unicode.ToLower(r)
	}, norm.NFC.String(name))
	for _, suf := range branchSuffixes {
		if strings.HasSuffix(name, suf) {
			return strings.TrimSuffix(name, suf)
		}
	}
	return name
}

// CharJaccard returns the Jaccard index of the rune sets of a and b.
func CharJaccard(a, b string) float64 {
	sa := runeSet(a)
	sb := runeSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for r := range sa {
		if sb[r] {
			inter++
		}
	}
	return float64(inter) / float64(len(sa)+len(sb)-inter)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

// ContainsNormalized reports whether needle, normalized, occurs in the
// normalized haystack.
func ContainsNormalized(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}
