package discovery

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/matjip/internal/extract"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/provider"
	"github.com/sells-group/matjip/internal/resilience"
)

const (
	// DefaultPagesPerQuery limits text source pagination per query.
	DefaultPagesPerQuery = 1
	// DefaultTopN caps the names kept per region, by mention count.
	DefaultTopN = 50
	// DefaultSecondarySize is the listing count read per secondary query.
	DefaultSecondarySize = 5
)

// QuerySource yields the text search queries of a region.
type QuerySource interface {
	Queries(region string) []string
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	PagesPerQuery int
	TopN          int
	SecondarySize int
	// RateLimit is the text query rate per second; zero means unlimited.
	RateLimit float64
}

// Collection is the output of one region's collection pass.
type Collection struct {
	TextItems int
	Extracted int
	Sources   []SourceList
}

// Collector gathers candidate names for a region from a text source and,
// optionally, a secondary listing provider.
type Collector struct {
	text      provider.TextSource
	textName  string
	secondary provider.ListingSearchProvider
	extractor *extract.Extractor
	queries   QuerySource
	limiter   *rate.Limiter
	cfg       CollectorConfig
}

// NewCollector creates a Collector. secondary may be nil.
func NewCollector(text provider.TextSource, textName string, secondary provider.ListingSearchProvider, ex *extract.Extractor, queries QuerySource, cfg CollectorConfig) *Collector {
	if cfg.PagesPerQuery <= 0 {
		cfg.PagesPerQuery = DefaultPagesPerQuery
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.SecondarySize <= 0 {
		cfg.SecondarySize = DefaultSecondarySize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Collector{
		text:      text,
		textName:  textName,
		secondary: secondary,
		extractor: ex,
		queries:   queries,
		limiter:   limiter,
		cfg:       cfg,
	}
}

// Collect runs every query of region against the text source, extracts
// names, keeps the TopN most mentioned and, when a secondary provider is
// set, adds the names it lists for the same queries. Query failures are
// logged and skipped; a quota error stops the text pass.
func (c *Collector) Collect(ctx context.Context, region string) (*Collection, error) {
	log := zap.L().With(zap.String("region", region))
	queries := c.queries.Queries(region)
	if len(queries) == 0 {
		return nil, eris.Errorf("discovery: no queries for region %q", region)
	}

	var items []model.TextItem
	for i, q := range queries {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "discovery: collect")
		}
		got, err := c.searchQuery(ctx, q)
		items = append(items, got...)
		if err != nil {
			if resilience.IsQuota(err) {
				log.Warn("text source quota exhausted, stopping", zap.String("query", q), zap.Error(err))
				break
			}
			log.Warn("text query failed", zap.String("query", q), zap.Error(err))
		}
		if (i+1)%10 == 0 {
			log.Info("progress", zap.Int("queries_done", i+1), zap.Int("total_queries", len(queries)))
		}
	}

	extracted := c.extractor.Extract(items, region)
	primary := topByMentions(extracted, c.cfg.TopN)
	col := &Collection{
		TextItems: len(items),
		Extracted: len(extracted),
		Sources:   []SourceList{{Source: c.textName, Candidates: primary}},
	}

	if c.secondary != nil {
		col.Sources = append(col.Sources, c.collectSecondary(ctx, region, queries))
	}

	log.Info("collection complete",
		zap.Int("text_items", col.TextItems),
		zap.Int("extracted", col.Extracted),
		zap.Int("kept", len(primary)),
	)
	return col, nil
}

// searchQuery pages through one query. Items from pages read before an
// error are kept.
func (c *Collector) searchQuery(ctx context.Context, query string) ([]model.TextItem, error) {
	var (
		items []model.TextItem
		token string
	)
	for page := 0; page < c.cfg.PagesPerQuery; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return items, eris.Wrap(err, "discovery: rate limit wait")
		}
		res, err := c.text.Search(ctx, query, token)
		if err != nil {
			return items, err
		}
		items = append(items, res.Items...)
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	return items, nil
}

func (c *Collector) collectSecondary(ctx context.Context, region string, queries []string) SourceList {
	src := SourceList{Source: string(c.secondary.Provider())}
	seen := make(map[string]bool)
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		listings, err := c.secondary.SearchListings(ctx, q, provider.ListingQuery{Size: c.cfg.SecondarySize})
		if err != nil {
			zap.L().Warn("secondary listing search failed",
				zap.String("region", region), zap.String("query", q), zap.Error(err))
			continue
		}
		for _, l := range listings {
			if seen[l.Name] || !c.extractor.Valid(l.Name, region) {
				continue
			}
			seen[l.Name] = true
			src.Candidates = append(src.Candidates, model.MentionCandidate{
				Name:   l.Name,
				Source: src.Source,
				Text:   q,
			})
		}
	}
	return src
}

// topByMentions keeps the n candidates with the most mentions. Ties keep
// first-seen order.
func topByMentions(in []model.MentionCandidate, n int) []model.MentionCandidate {
	out := make([]model.MentionCandidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Mentions) > len(out[j].Mentions)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
