package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/matjip/internal/cache"
	"github.com/sells-group/matjip/internal/config"
	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/discovery"
	"github.com/sells-group/matjip/internal/enrich"
	"github.com/sells-group/matjip/internal/extract"
	"github.com/sells-group/matjip/internal/match"
	"github.com/sells-group/matjip/internal/monitoring"
	"github.com/sells-group/matjip/internal/pipeline"
	"github.com/sells-group/matjip/internal/provider"
	"github.com/sells-group/matjip/internal/region"
	"github.com/sells-group/matjip/internal/resilience"
	"github.com/sells-group/matjip/internal/store"
	"github.com/sells-group/matjip/pkg/google"
	"github.com/sells-group/matjip/pkg/kakao"
	"github.com/sells-group/matjip/pkg/naver"
	"github.com/sells-group/matjip/pkg/youtube"
)

// crawlEnv holds the store, the provider stack and the orchestrator
// needed by the crawl and serve commands.
type crawlEnv struct {
	Store        store.RecordStore
	Orchestrator *pipeline.Orchestrator
	Regions      *region.Validator
	Breakers     *resilience.ServiceBreakers
	Cache        cache.Cache // may be nil
	Monitor      *monitoring.Checker
}

// Close releases resources held by the environment.
func (e *crawlEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store and applies its schema.
func initStore(ctx context.Context) (store.RecordStore, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCatalogs loads the denylist and region catalog, preferring the
// configured override files over the embedded assets.
func initCatalogs() (*denylist.List, *region.Validator, error) {
	deny := denylist.Default()
	if cfg.Denylist.Path != "" {
		d, err := denylist.Load(cfg.Denylist.Path)
		if err != nil {
			return nil, nil, eris.Wrap(err, "load denylist")
		}
		deny = d
	}
	zap.L().Info("denylist loaded", zap.String("version", deny.Version()), zap.Int("terms", len(deny.Terms())))

	regions := region.Default(deny)
	if cfg.Regions.CatalogPath != "" {
		r, err := region.Load(cfg.Regions.CatalogPath, deny)
		if err != nil {
			return nil, nil, eris.Wrap(err, "load region catalog")
		}
		regions = r
	}
	return deny, regions, nil
}

// initCache returns the provider response cache, or nil when caching is
// disabled. An unreachable redis falls back to the in-process cache.
func initCache(ctx context.Context) cache.Cache {
	if cfg.Cache.TTL() <= 0 {
		zap.L().Debug("provider cache disabled")
		return nil
	}
	if cfg.Cache.RedisURL == "" {
		return cache.NewMemory()
	}
	c, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.Prefix)
	if err != nil {
		zap.L().Warn("redis cache unavailable, using in-process cache", zap.Error(err))
		return cache.NewMemory()
	}
	zap.L().Info("redis cache enabled")
	return c
}

// limiter returns the shared token bucket of a provider, or nil when the
// provider is unthrottled.
func limiter(p config.ProviderConfig) *rate.Limiter {
	if p.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(p.RateLimit), max(p.Burst, 1))
}

func httpClient(p config.ProviderConfig) *http.Client {
	timeout := p.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// initCrawl validates the configuration for mode and assembles the whole
// pipeline. Callers should defer env.Close().
func initCrawl(ctx context.Context, mode string) (*crawlEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	deny, regions, err := initCatalogs()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &crawlEnv{Store: st, Regions: regions, Monitor: monitoring.NewChecker(st, cfg.Monitor)}

	env.Cache = initCache(ctx)
	ttl := cfg.Cache.TTL()

	retry := resilience.FromRetryConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialBackoffMs,
		cfg.Retry.MaxBackoffMs,
		cfg.Retry.Multiplier,
		cfg.Retry.JitterFraction,
	)
	env.Breakers = resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs))
	guard := func(service string, p config.ProviderConfig) resilience.Guard {
		return resilience.NewGuard(service, retry, env.Breakers, p.Keys, cfg.Retry.KeyCooldown())
	}

	// Kakao: canonical listings and image search.
	kakaoOpts := []kakao.Option{
		kakao.WithBaseURL(cfg.Kakao.BaseURL),
		kakao.WithHTTPClient(httpClient(cfg.Kakao)),
	}
	if l := limiter(cfg.Kakao); l != nil {
		kakaoOpts = append(kakaoOpts, kakao.WithRateLimiter(l))
	}
	kakaoAdapter := provider.NewKakao(guard("kakao", cfg.Kakao), func(key string) kakao.Client {
		return kakao.NewClient(key, kakaoOpts...)
	})
	var listings provider.ListingSearchProvider = kakaoAdapter
	if env.Cache != nil {
		listings = provider.NewCachedListings(kakaoAdapter, env.Cache, ttl)
	}

	// YouTube: primary text source.
	ytOpts := []youtube.Option{
		youtube.WithBaseURL(cfg.YouTube.BaseURL),
		youtube.WithHTTPClient(httpClient(cfg.YouTube.ProviderConfig)),
	}
	if l := limiter(cfg.YouTube.ProviderConfig); l != nil {
		ytOpts = append(ytOpts, youtube.WithRateLimiter(l))
	}
	var text provider.TextSource = provider.NewYouTube(guard("youtube", cfg.YouTube.ProviderConfig), func(key string) youtube.Client {
		return youtube.NewClient(key, ytOpts...)
	}, provider.YouTubeOptions{
		MaxResults:        cfg.YouTube.MaxResults,
		Lookback:          time.Duration(cfg.YouTube.LookbackDays) * 24 * time.Hour,
		RegionCode:        cfg.YouTube.RegionCode,
		RelevanceLanguage: cfg.YouTube.Language,
		Order:             cfg.YouTube.Order,
	})
	if env.Cache != nil {
		text = provider.NewCachedText("youtube", text, env.Cache, ttl)
	}

	// Naver (optional): secondary name source and blog search.
	var (
		secondary provider.ListingSearchProvider
		articles  provider.ArticleSearchProvider
	)
	if cfg.Naver.Enabled() {
		naverOpts := []naver.Option{
			naver.WithBaseURL(cfg.Naver.BaseURL),
			naver.WithHTTPClient(httpClient(cfg.Naver)),
		}
		if l := limiter(cfg.Naver); l != nil {
			naverOpts = append(naverOpts, naver.WithRateLimiter(l))
		}
		naverAdapter := provider.NewNaver(guard("naver", cfg.Naver), func(id, secret string) naver.Client {
			return naver.NewClient(id, secret, naverOpts...)
		})
		secondary, articles = naverAdapter, naverAdapter
		if env.Cache != nil {
			secondary = provider.NewCachedListings(naverAdapter, env.Cache, ttl)
		}
		zap.L().Info("naver local and blog search enabled")
	} else {
		zap.L().Debug("naver keys not set, secondary source and blog search disabled")
	}

	// Google Places (optional): details and photos.
	var details provider.DetailProvider
	if cfg.Google.Enabled() {
		googleOpts := []google.Option{
			google.WithBaseURL(cfg.Google.BaseURL),
			google.WithHTTPClient(httpClient(cfg.Google.ProviderConfig)),
			google.WithLanguage(cfg.Google.Language),
		}
		if l := limiter(cfg.Google.ProviderConfig); l != nil {
			googleOpts = append(googleOpts, google.WithRateLimiter(l))
		}
		googleAdapter := provider.NewGoogle(guard("google", cfg.Google.ProviderConfig), func(key string) google.Client {
			return google.NewClient(key, googleOpts...)
		}, provider.GoogleOptions{
			NearbyRadius: cfg.Google.NearbyRadius,
			TextRadius:   cfg.Google.TextRadius,
			MinNameMatch: cfg.Google.MinNameMatch,
			MaxReviews:   cfg.Google.MaxReviews,
		})
		details = googleAdapter
		if env.Cache != nil {
			details = provider.NewCachedDetails(googleAdapter, env.Cache, ttl)
		}
		zap.L().Info("google places enrichment enabled")
	} else {
		zap.L().Debug("google keys not set, place details disabled")
	}

	collector := discovery.NewCollector(
		text, "youtube", secondary,
		extract.New(deny, extract.WithSource("youtube")),
		regions,
		discovery.CollectorConfig{
			PagesPerQuery: cfg.Pipeline.PagesPerQuery,
			TopN:          cfg.Pipeline.TopNames,
			SecondarySize: cfg.Pipeline.SecondarySize,
		},
	)

	env.Orchestrator = pipeline.New(
		pipeline.Config{
			Workers:      cfg.Pipeline.Workers,
			MaxPerRegion: cfg.Pipeline.MaxPerRegion,
			ListingSize:  cfg.Pipeline.ListingSize,
		},
		collector,
		discovery.NewMerger(cfg.Merge, deny),
		listings,
		match.New(cfg.Match, regions, deny),
		regions,
		enrich.New(details, kakaoAdapter, articles, deny, cfg.Enrich),
		st,
	)

	zap.L().Info("crawl pipeline ready",
		zap.Int("kakao_keys", len(cfg.Kakao.Keys)),
		zap.Int("youtube_keys", len(cfg.YouTube.Keys)),
		zap.Int("workers", cfg.Pipeline.Workers),
		zap.String("store", cfg.Store.Driver),
	)
	return env, nil
}

// resolveRegions picks the regions to crawl: explicit names first, then
// the configured list, then every catalog region with queries. Unknown
// names are an error.
func resolveRegions(regions *region.Validator, explicit []string) ([]string, error) {
	names := explicit
	if len(names) == 0 {
		names = cfg.Pipeline.Regions
	}
	if len(names) == 0 {
		names = regions.Names()
	}

	known := make(map[string]bool)
	for _, n := range regions.Names() {
		known[n] = true
	}
	var (
		out     []string
		unknown []string
		seen    = make(map[string]bool)
	)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if !known[n] {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, n)
	}
	if len(unknown) > 0 {
		return nil, eris.Errorf("unknown regions %s (known: %s)", strings.Join(unknown, ", "), strings.Join(regions.Names(), ", "))
	}
	if len(out) == 0 {
		return nil, eris.New("no regions to crawl")
	}
	return out, nil
}
