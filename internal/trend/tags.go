package trend

import (
	"strings"
	"time"
)

// MaxTags caps the tags attached to one restaurant.
const MaxTags = 8

// TagInput carries the facts the tag rules read.
type TagInput struct {
	Name         string
	Region       string
	Category     string
	MentionCount int
	Recent       int
	IsRising     bool
	Consistency  int
	FirstSeen    time.Time
	Titles       []string
	Now          time.Time
}

type keywordTag struct {
	words []string
	tag   string
}

var titleTags = []keywordTag{
	{[]string{"현지인", "동네"}, "#현지인단골집"},
	{[]string{"택시기사", "택시"}, "#택시기사추천"},
	{[]string{"숨은", "모르는"}, "#숨은맛집"},
	{[]string{"찐", "로컬"}, "#찐로컬맛집"},
}

var regionTags = []struct {
	region, tag string
}{
	{"제주", "#제주맛집"},
	{"서울", "#서울맛집"},
	{"부산", "#부산맛집"},
	{"경주", "#경주맛집"},
}

var categoryTags = []string{"한식", "일식", "중식", "카페"}

// Tags derives up to MaxTags display tags in rule order, deduplicated.
func Tags(in TagInput) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	age := func() time.Duration {
		if in.FirstSeen.IsZero() {
			return 0
		}
		return in.Now.Sub(in.FirstSeen)
	}()

	if in.MentionCount >= 10 {
		add("#유튜브단골")
	}
	if !in.FirstSeen.IsZero() && age < recentWindow && in.Recent >= 3 {
		add("#최근핫플")
	}
	if in.IsRising {
		add("#요즘대세")
	}
	if age > 365*day && in.Consistency > 60 {
		add("#검증된맛집")
	}
	if age > 730*day {
		add("#스테디셀러")
	}

	titles := strings.Join(in.Titles, "\n")
	for _, kt := range titleTags {
		for _, w := range kt.words {
			if strings.Contains(titles, w) {
				add(kt.tag)
				break
			}
		}
	}

	for _, rt := range regionTags {
		if strings.Contains(in.Region, rt.region) {
			add(rt.tag)
			if rt.region == "제주" && strings.Contains(in.Name, "흑돼지") {
				add("#제주흑돼지")
			}
			break
		}
	}

	for _, c := range categoryTags {
		if strings.Contains(in.Category, c) {
			add("#" + c)
			break
		}
	}

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

var simpleCategories = []string{"한식", "중식", "일식", "양식", "카페", "치킨", "피자", "분식"}

// SimplifyCategory maps a provider category path such as
// "음식점 > 한식 > 국수" to a display category.
func SimplifyCategory(raw string) string {
	for _, c := range simpleCategories {
		if strings.Contains(raw, c) {
			return c
		}
	}
	switch {
	case strings.Contains(raw, "회"):
		return "회/해산물"
	case strings.Contains(raw, "구이"):
		return "구이"
	}
	return "음식점"
}
