package enrich

import (
	"strings"

	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/textsim"
)

var localitySuffixes = []string{"시", "군", "구", "동", "읍", "면", "리", "로", "길"}

// Localities returns the administrative and street tokens of an address:
// tokens of at least two runes ending in 시, 군, 구, 동, 읍, 면, 리, 로 or 길.
// Province tokens such as 서울특별시 are skipped as too broad.
func Localities(address string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(address) {
		if len([]rune(tok)) < 2 || isProvince(tok) || seen[tok] {
			continue
		}
		for _, suf := range localitySuffixes {
			if strings.HasSuffix(tok, suf) {
				seen[tok] = true
				out = append(out, tok)
				break
			}
		}
	}
	return out
}

func isProvince(tok string) bool {
	for _, s := range []string{"특별시", "광역시", "특별자치시", "특별자치도", "도"} {
		if strings.HasSuffix(tok, s) {
			return true
		}
	}
	return false
}

// BlogQuery builds the blog search query. Common names are quoted and
// pinned to the city and district so unrelated namesakes drop out.
func BlogQuery(name, address string, common bool) string {
	locs := Localities(address)
	if !common {
		if len(locs) == 0 {
			return name
		}
		return name + " " + locs[len(locs)-1]
	}

	var area []string
	for _, l := range locs {
		if strings.HasSuffix(l, "시") || strings.HasSuffix(l, "군") || strings.HasSuffix(l, "구") {
			area = append(area, l)
		}
		if len(area) == 2 {
			break
		}
	}
	if len(area) == 0 {
		area = locs
		if len(area) > 2 {
			area = area[:2]
		}
	}
	q := `"` + name + `"`
	if len(area) > 0 {
		q += ` "` + strings.Join(area, " ") + `"`
	}
	return q
}

// FilterArticles keeps hits whose title contains name and whose title or
// snippet mentions at least one locality, up to limit. Without localities
// only the title check applies.
func FilterArticles(hits []model.Article, name string, localities []string, limit int) []model.Article {
	want := textsim.Normalize(name)
	var out []model.Article
	for _, a := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		if want == "" || !strings.Contains(textsim.Normalize(a.Title), want) {
			continue
		}
		if len(localities) > 0 && !mentionsAny(a.Title+" "+a.Snippet, localities) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func mentionsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
