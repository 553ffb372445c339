// Package pipeline runs a crawl: collect names per region, resolve each to
// a canonical listing, enrich, score and persist.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/discovery"
	"github.com/sells-group/matjip/internal/match"
	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/provider"
	"github.com/sells-group/matjip/internal/store"
)

const (
	// DefaultMaxPerRegion caps the restaurants stored per region and run.
	DefaultMaxPerRegion = 50
	// DefaultListingSize is the listing count read per fallback query.
	DefaultListingSize = 5
	// RestaurantCategory is the Kakao category group of restaurants.
	RestaurantCategory = "FD6"
)

// Config tunes the orchestrator.
type Config struct {
	// Workers bounds concurrent name resolution and enrichment. Default 1.
	Workers      int
	MaxPerRegion int
	ListingSize  int
}

// CandidateSource collects candidate names for a region.
type CandidateSource interface {
	Collect(ctx context.Context, region string) (*discovery.Collection, error)
}

// RegionCatalog validates listings and names administrative areas.
type RegionCatalog interface {
	ValidateRegion(region string, l model.ProviderListing) bool
	Province(region string) string
	City(region string) string
}

// Enricher attaches provider attributes to a restaurant.
type Enricher interface {
	Enrich(ctx context.Context, r model.CanonicalRestaurant) model.AttributeBag
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg      Config
	source   CandidateSource
	merger   *discovery.Merger
	listings provider.ListingSearchProvider
	matcher  *match.Matcher
	regions  RegionCatalog
	enricher Enricher
	store    store.RecordStore
	now      func() time.Time
}

// New creates an Orchestrator. enricher may be nil to skip enrichment.
func New(
	cfg Config,
	source CandidateSource,
	merger *discovery.Merger,
	listings provider.ListingSearchProvider,
	matcher *match.Matcher,
	regions RegionCatalog,
	enricher Enricher,
	st store.RecordStore,
) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxPerRegion <= 0 {
		cfg.MaxPerRegion = DefaultMaxPerRegion
	}
	if cfg.ListingSize <= 0 {
		cfg.ListingSize = DefaultListingSize
	}
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		merger:   merger,
		listings: listings,
		matcher:  matcher,
		regions:  regions,
		enricher: enricher,
		store:    st,
		now:      time.Now,
	}
}

// Run crawls regions one after another and records the run. A failing
// region is logged and the next one proceeds; cancellation stops the run
// and marks it failed.
func (o *Orchestrator) Run(ctx context.Context, regions []string) (*model.Run, error) {
	if len(regions) == 0 {
		return nil, eris.New("pipeline: no regions")
	}
	run, err := o.store.CreateRun(ctx, regions)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: run started", zap.Strings("regions", regions))
	start := o.now()

	var (
		runErr   error
		failures []string
	)
	for _, region := range regions {
		stats, err := o.RunRegion(ctx, region)
		run.Stats = append(run.Stats, stats)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			runErr = eris.Wrapf(err, "pipeline: region %s", region)
			break
		}
		log.Error("pipeline: region failed", zap.String("region", region), zap.Error(err))
		failures = append(failures, region+": "+err.Error())
	}

	run.Status = model.RunStatusComplete
	switch {
	case runErr != nil:
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	case len(failures) == len(regions):
		run.Status = model.RunStatusFailed
		run.Error = errors.Join(toErrors(failures)...).Error()
	case len(failures) > 0:
		run.Error = errors.Join(toErrors(failures)...).Error()
	}

	// The run row is finalized even when ctx was canceled.
	if err := o.store.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("pipeline: complete run failed", zap.Error(err))
	}

	elapsed := o.now().Sub(start)
	metrics.Runs.WithLabelValues(string(run.Status)).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	log.Info("pipeline: run finished",
		zap.String("status", string(run.Status)),
		zap.Duration("elapsed", elapsed),
	)
	return run, runErr
}

func toErrors(msgs []string) []error {
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		errs[i] = errors.New(m)
	}
	return errs
}
