package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/match"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/provider"
	"github.com/sells-group/matjip/internal/trend"
)

// Rejection reasons added by the pipeline on top of the matcher's.
const (
	RejectRegionMismatch = "region_mismatch"
	RejectRegionCap      = "region_cap"
	RejectSearchFailed   = "search_failed"
)

// fallbackQueries lists the listing searches tried for a name, most
// specific first.
func fallbackQueries(name, region string) []string {
	name = strings.TrimSpace(name)
	region = strings.TrimSpace(region)
	if region == "" {
		return []string{name}
	}
	return []string{
		name + " " + region,
		name,
		region + " " + name + " 맛집",
	}
}

// resolve searches the listing provider with each fallback query until a
// listing passes both the matcher and the region gate. Provider errors
// are misses; only cancellation is returned as an error.
func (o *Orchestrator) resolve(ctx context.Context, name, region string) (*model.MatchResult, string, error) {
	reason := string(match.RejectNoCandidates)
	for _, q := range fallbackQueries(name, region) {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		listings, err := o.listings.SearchListings(ctx, q, provider.ListingQuery{
			Category: RestaurantCategory,
			Size:     o.cfg.ListingSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			zap.L().Warn("pipeline: listing search failed",
				zap.String("query", q), zap.String("region", region), zap.Error(err))
			reason = RejectSearchFailed
			continue
		}
		if len(listings) == 0 {
			continue
		}

		m, rej := o.matcher.Match(name, region, listings)
		if m == nil {
			reason = string(rej)
			continue
		}
		if o.regions != nil && !o.regions.ValidateRegion(region, m.Listing) {
			reason = RejectRegionMismatch
			continue
		}
		zap.L().Debug("pipeline: resolved",
			zap.String("name", name),
			zap.String("listing", m.Listing.Name),
			zap.String("query", q),
			zap.Float64("score", m.Score),
		)
		return m, "", nil
	}
	return nil, reason, nil
}

// buildRecord creates the canonical record of an accepted match.
func (o *Orchestrator) buildRecord(m model.MatchResult, c model.MentionCandidate, region string, now time.Time) model.CanonicalRestaurant {
	rec := model.NewCanonicalRestaurant(m, region)
	rec.Category = trend.SimplifyCategory(rec.CategoryRaw)
	rec.Source = c.Source
	if o.regions != nil {
		rec.Province = o.regions.Province(region)
		rec.City = o.regions.City(region)
	}
	o.applyMentions(&rec, c.Mentions, c.DiscoveredAt, now)
	return rec
}

// applyMentions derives the run's mention history, trend and tags.
func (o *Orchestrator) applyMentions(rec *model.CanonicalRestaurant, mentions []model.Mention, discovered, now time.Time) {
	rec.Mentions = mentions

	h := model.MentionHistory{
		MentionCount: len(mentions),
		Channels:     channels(mentions),
	}
	h.FirstSeen, h.LastSeen = seenWindow(mentions, discovered, now)
	t := trend.Score(mentions, now)
	t.Apply(&h)
	rec.History = h

	rec.Tags = trend.Tags(trend.TagInput{
		Name:         rec.Name,
		Region:       rec.Region,
		Category:     rec.Category,
		MentionCount: h.MentionCount,
		Recent:       t.Recent,
		IsRising:     t.IsRising,
		Consistency:  t.Consistency,
		FirstSeen:    h.FirstSeen,
		Titles:       titles(mentions),
		Now:          now,
	})
}

func channels(mentions []model.Mention) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range mentions {
		if m.Channel == "" || seen[m.Channel] {
			continue
		}
		seen[m.Channel] = true
		out = append(out, m.Channel)
	}
	return out
}

func titles(mentions []model.Mention) []string {
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if m.Title != "" {
			out = append(out, m.Title)
		}
	}
	return out
}

// seenWindow returns the earliest and latest publication times. Without
// any, the discovery time stands in for both.
func seenWindow(mentions []model.Mention, discovered, now time.Time) (first, last time.Time) {
	for _, m := range mentions {
		p := m.PublishedAt
		if p.IsZero() {
			continue
		}
		if first.IsZero() || p.Before(first) {
			first = p
		}
		if p.After(last) {
			last = p
		}
	}
	if first.IsZero() {
		if discovered.IsZero() {
			discovered = now
		}
		first, last = discovered, discovered
	}
	return first.UTC(), last.UTC()
}
