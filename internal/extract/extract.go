// Package extract pulls candidate restaurant names out of free text.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/textsim"
)

// rule extracts raw name spans from a text item.
type rule struct {
	name string
	re   *regexp.Regexp
	// group is the capture group holding the name.
	group int
	// trim cuts trailing descriptions off list-style entries.
	trim bool
}

var rules = []rule{
	{name: "hashtag", re: regexp.MustCompile(`#([가-힣A-Za-z0-9_]{2,20})`), group: 1},
	{name: "quoted", re: regexp.MustCompile(`"([^"\n]{2,20})"|“([^”\n]{2,20})”|'([^'\n]{2,20})'|‘([^’\n]{2,20})’`), group: -1},
	{name: "bracketed", re: regexp.MustCompile(`「([^」\n]{2,20})」|『([^』\n]{2,20})』|【([^】\n]{2,20})】|\[([^\]\n]{2,20})\]|<([^>\n]{2,20})>|《([^》\n]{2,20})》`), group: -1},
	{name: "labeled", re: regexp.MustCompile(`(?:상호명?|가게명?|식당명?|매장명?|업체명)\s*[:：]\s*([^\n]{2,40})`), group: 1, trim: true},
	{name: "numbered", re: regexp.MustCompile(`(?m)^\s*(?:\d{1,2}\s*[.)]|\d{1,2}\s*위\s*[.:)]?|[①-⑳])\s*([^\n]{2,40})`), group: 1, trim: true},
	{name: "bullet", re: regexp.MustCompile(`(?m)^\s*(?:📍|🏠|🍽\x{FE0F}?|🍴|🥢|⭐|✔\x{FE0F}?|✅|▶\x{FE0F}?|►|•|·)\s*([^\n]{2,40})`), group: 1, trim: true},
	{name: "suffix", re: regexp.MustCompile(`([가-힣]{2,8}(?:식당|맛집|횟집|갈비|국밥|해장국|치킨|피자|카페|베이커리|김밥|국수|돈까스)(?:\s?(?:본점|지점|분점))?)`), group: 1},
	{name: "branch", re: regexp.MustCompile(`([가-힣]{2,10}\s?(?:본점|지점|분점))`), group: 1},
}

// entryCut ends a list-style entry at the first separator.
var entryCut = regexp.MustCompile(`\s+[-–—|/]\s+|[(:：|/,~]|\s{2,}`)

// edgeTrim is stripped from both ends of every raw span.
const edgeTrim = " \t\"'“”‘’「」『』【】[]<>《》.,!?~·•-"

// Option configures an Extractor.
type Option func(*Extractor)

// WithSource sets the discovery source recorded on candidates.
func WithSource(source string) Option {
	return func(e *Extractor) { e.source = source }
}

// WithClock overrides the discovery timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// Extractor applies the extraction rules and the validity predicate.
type Extractor struct {
	deny   *denylist.List
	source string
	now    func() time.Time
}

// New creates an Extractor backed by the given denylist.
func New(deny *denylist.List, opts ...Option) *Extractor {
	e := &Extractor{deny: deny, source: "text", now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Valid applies IsExactRestaurantName with the extractor's denylist.
func (e *Extractor) Valid(name, region string) bool {
	return IsExactRestaurantName(e.deny, name, region)
}

// Extract returns one candidate per distinct name across items, in
// first-seen order. Each candidate carries one mention per item it
// appeared in. Empty items are skipped.
func (e *Extractor) Extract(items []model.TextItem, region string) []model.MentionCandidate {
	var out []model.MentionCandidate
	index := make(map[string]int)
	now := e.now()

	for _, it := range items {
		text := it.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, name := range e.ExtractText(text, region) {
			key := textsim.Normalize(name)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, model.MentionCandidate{
					Name:         name,
					Source:       e.source,
					Text:         it.Title,
					DiscoveredAt: now,
				})
			}
			out[i].Mentions = append(out[i].Mentions, model.MentionFromItem(it))
		}
	}
	return out
}

// ExtractText returns the distinct valid names in text, in rule order.
func (e *Extractor) ExtractText(text, region string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			raw := pick(m, r.group)
			if raw == "" {
				continue
			}
			name := clean(raw, r.trim)
			if name == "" || !e.Valid(name, region) {
				continue
			}
			key := textsim.Normalize(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, name)
		}
	}
	return names
}

// pick returns the capture group, or the first non-empty group when
// group is negative (alternation patterns).
func pick(m []string, group int) string {
	if group >= 0 {
		if group < len(m) {
			return m[group]
		}
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func clean(raw string, cut bool) string {
	s := strings.TrimSpace(raw)
	if cut {
		if loc := entryCut.FindStringIndex(s); loc != nil && loc[0] > 0 {
			s = s[:loc[0]]
		}
	}
	s = strings.Trim(s, edgeTrim)
	return strings.Join(strings.Fields(s), " ")
}
