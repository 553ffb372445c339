// Package trend scores how hot a restaurant is from its mention history and
// derives display tags from it.
package trend

import (
	"math"
	"time"

	"github.com/sells-group/matjip/internal/model"
)

const (
	day = 24 * time.Hour

	recentWindow = 90 * day
	midWindow    = 180 * day
	yearDays     = 365.0
)

// Trend is the scored trend of a mention set.
type Trend struct {
	Hotness         int            `json:"hotness"`
	Consistency     int            `json:"consistency"`
	IsRising        bool           `json:"is_rising"`
	Recent          int            `json:"recent"`
	Mid             int            `json:"mid"`
	Total           int            `json:"total"`
	TotalPopularity int64          `json:"total_popularity"`
	Months          int            `json:"months"`
	Representative  *model.Mention `json:"representative,omitempty"`
}

// Score computes the trend of mentions as of now.
//
// Hotness weighs mentions from the last 90 days at 20, those from 90 to
// 180 days at 10 and adds 5 per order of magnitude of total popularity,
// capped at 100. Consistency is 15 per distinct publication month, capped
// at 100. A set is rising when its recent mentions outnumber half of the
// older ones.
func Score(mentions []model.Mention, now time.Time) Trend {
	t := Trend{Total: len(mentions)}
	if len(mentions) == 0 {
		return t
	}

	months := make(map[string]struct{})
	bestScore := math.Inf(-1)
	for i := range mentions {
		m := &mentions[i]
		age := now.Sub(m.PublishedAt)
		switch {
		case age <= recentWindow:
			t.Recent++
		case age <= midWindow:
			t.Mid++
		}
		if m.Popularity > 0 {
			t.TotalPopularity += m.Popularity
		}
		if !m.PublishedAt.IsZero() {
			months[m.PublishedAt.Format("2006-01")] = struct{}{}
		}

		if s := representativeScore(*m, now); s > bestScore {
			bestScore = s
			rep := *m
			t.Representative = &rep
		}
	}
	t.Months = len(months)

	hot := float64(t.Recent)*20 + float64(t.Mid)*10 + math.Log10(float64(t.TotalPopularity)+1)*5
	t.Hotness = int(math.Round(math.Min(100, hot)))
	t.Consistency = int(math.Round(math.Min(100, float64(t.Months)*15)))
	t.IsRising = float64(t.Recent) > float64(t.Total-t.Recent)/2
	return t
}

// representativeScore favors popular mentions, boosted up to 1.5x for
// recency within the last year.
func representativeScore(m model.Mention, now time.Time) float64 {
	days := now.Sub(m.PublishedAt).Hours() / 24
	recency := math.Max(0, yearDays-days) / yearDays
	pop := math.Max(0, float64(m.Popularity))
	return math.Log10(pop+1) * (1 + 0.5*recency)
}

// Apply writes t into the history fields it owns.
func (t Trend) Apply(h *model.MentionHistory) {
	h.TrendScore = t.Hotness
	h.Consistency = t.Consistency
	h.IsRising = t.IsRising
	h.RecentMentions = t.Recent
	if t.Representative != nil {
		h.Representative = t.Representative
	}
}
