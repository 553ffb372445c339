package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
)

// resolved is the outcome of resolving one merged candidate.
type resolved struct {
	candidate model.MentionCandidate
	match     *model.MatchResult
	reason    string
}

// RunRegion crawls one region and upserts what it resolves. Misses are
// counted in the returned stats; only collection failures and
// cancellation are errors.
func (o *Orchestrator) RunRegion(ctx context.Context, region string) (model.RunStats, error) {
	log := zap.L().With(zap.String("region", region))
	stats := model.RunStats{Region: region}
	start := o.now()

	col, err := o.source.Collect(ctx, region)
	if err != nil {
		return stats, eris.Wrapf(err, "pipeline: collect %s", region)
	}
	stats.TextItems = col.TextItems
	stats.Extracted = col.Extracted

	candidates := o.merger.Merge(col.Sources...)
	stats.Merged = len(candidates)
	metrics.PipelineNames.WithLabelValues(region, "extracted").Add(float64(col.Extracted))
	metrics.PipelineNames.WithLabelValues(region, "merged").Add(float64(len(candidates)))
	log.Info("pipeline: candidates collected",
		zap.Int("text_items", col.TextItems),
		zap.Int("extracted", col.Extracted),
		zap.Int("merged", len(candidates)),
	)

	results, err := o.resolveAll(ctx, region, candidates)
	if err != nil {
		return stats, err
	}

	recs := o.collate(region, results, &stats)
	metrics.PipelineNames.WithLabelValues(region, "matched").Add(float64(stats.Matched))

	if err := o.enrichAll(ctx, recs, &stats); err != nil {
		return stats, err
	}

	res := o.store.UpsertBatch(ctx, recs)
	stats.Stored = res.Stored
	stats.Failed = len(res.Failed)
	metrics.PipelineNames.WithLabelValues(region, "stored").Add(float64(res.Stored))
	if err := ctx.Err(); err != nil {
		return stats, eris.Wrap(err, "pipeline: store")
	}

	log.Info("pipeline: region complete",
		zap.Int("matched", stats.Matched),
		zap.Int("rejected", stats.Rejected),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("enriched", stats.Enriched),
		zap.Int("stored", stats.Stored),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", o.now().Sub(start)),
	)
	return stats, nil
}

// resolveAll resolves candidates with a bounded worker pool. Results keep
// candidate order.
func (o *Orchestrator) resolveAll(ctx context.Context, region string, candidates []model.MentionCandidate) ([]resolved, error) {
	results := make([]resolved, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			m, reason, err := o.resolve(gctx, c.Name, region)
			if err != nil {
				return err
			}
			results[i] = resolved{candidate: c, match: m, reason: reason}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve")
	}
	return results, nil
}

// collate turns accepted matches into records, folding candidates that
// resolved to the same listing and applying the per-region cap.
func (o *Orchestrator) collate(region string, results []resolved, stats *model.RunStats) []model.CanonicalRestaurant {
	now := o.now().UTC()
	var recs []model.CanonicalRestaurant
	byID := make(map[string]int)
	for _, r := range results {
		if r.match == nil {
			stats.Reject(r.reason)
			metrics.PipelineRejects.WithLabelValues(region, r.reason).Inc()
			continue
		}
		id := model.CanonicalID(r.match.Listing.Provider, r.match.Listing.ID)
		if i, ok := byID[id]; ok {
			stats.Duplicates++
			recs[i] = o.foldDuplicate(recs[i], r.candidate, now)
			continue
		}
		if len(recs) >= o.cfg.MaxPerRegion {
			stats.Reject(RejectRegionCap)
			metrics.PipelineRejects.WithLabelValues(region, RejectRegionCap).Inc()
			continue
		}
		stats.Matched++
		byID[id] = len(recs)
		recs = append(recs, o.buildRecord(*r.match, r.candidate, region, now))
	}
	return recs
}

// foldDuplicate merges the mentions of another candidate that resolved
// to rec's listing and rescores it.
func (o *Orchestrator) foldDuplicate(rec model.CanonicalRestaurant, c model.MentionCandidate, now time.Time) model.CanonicalRestaurant {
	mentions := append(append([]model.Mention(nil), rec.Mentions...), c.Mentions...)
	o.applyMentions(&rec, mentions, c.DiscoveredAt, now)
	return rec
}

// enrichAll fills the attribute bag of every record.
func (o *Orchestrator) enrichAll(ctx context.Context, recs []model.CanonicalRestaurant, stats *model.RunStats) error {
	if o.enricher == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bag := o.enricher.Enrich(gctx, recs[i])
			recs[i].Attributes = bag
			if recs[i].ImageURL == "" {
				recs[i].ImageURL = coverImage(bag)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: enrich")
	}
	for _, r := range recs {
		if !r.Attributes.IsEmpty() {
			stats.Enriched++
		}
	}
	return nil
}

// coverImage picks the display image: a place photo first, then a
// searched image.
func coverImage(bag model.AttributeBag) string {
	if len(bag.Photos) > 0 {
		return bag.Photos[0]
	}
	for _, img := range bag.Images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}
