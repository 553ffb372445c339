// Package config loads matjip configuration from config.yaml, an optional
// .env file and MATJIP_* environment variables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/matjip/internal/discovery"
	"github.com/sells-group/matjip/internal/enrich"
	"github.com/sells-group/matjip/internal/match"
	"github.com/sells-group/matjip/internal/monitoring"
	"github.com/sells-group/matjip/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    store.Config          `yaml:"store" mapstructure:"store"`
	Log      LogConfig             `yaml:"log" mapstructure:"log"`
	Server   ServerConfig          `yaml:"server" mapstructure:"server"`
	Kakao    ProviderConfig        `yaml:"kakao" mapstructure:"kakao"`
	Google   GoogleConfig          `yaml:"google" mapstructure:"google"`
	Naver    ProviderConfig        `yaml:"naver" mapstructure:"naver"`
	YouTube  YouTubeConfig         `yaml:"youtube" mapstructure:"youtube"`
	Match    match.Config          `yaml:"match" mapstructure:"match"`
	Merge    discovery.MergeConfig `yaml:"merge" mapstructure:"merge"`
	Enrich   enrich.Config         `yaml:"enrich" mapstructure:"enrich"`
	Pipeline PipelineConfig        `yaml:"pipeline" mapstructure:"pipeline"`
	Retry    RetryConfig           `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig         `yaml:"circuit" mapstructure:"circuit"`
	Cache    CacheConfig           `yaml:"cache" mapstructure:"cache"`
	Schedule ScheduleConfig        `yaml:"schedule" mapstructure:"schedule"`
	Denylist DenylistConfig        `yaml:"denylist" mapstructure:"denylist"`
	Regions  RegionsConfig         `yaml:"regions" mapstructure:"regions"`
	Monitor  monitoring.Config     `yaml:"monitoring" mapstructure:"monitoring"`
}

// ProviderConfig holds the credentials and limits of one external API.
// Naver keys are "clientID:clientSecret" pairs.
type ProviderConfig struct {
	Keys        []string `yaml:"keys" mapstructure:"keys"`
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the HTTP timeout of the provider.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// Enabled reports whether at least one credential is configured.
func (p ProviderConfig) Enabled() bool {
	return len(p.Keys) > 0
}

// GoogleConfig configures the Google Places detail provider.
type GoogleConfig struct {
	ProviderConfig `yaml:",inline" mapstructure:",squash"`
	Language       string  `yaml:"language" mapstructure:"language"`
	NearbyRadius   int     `yaml:"nearby_radius" mapstructure:"nearby_radius"`
	TextRadius     int     `yaml:"text_radius" mapstructure:"text_radius"`
	MinNameMatch   float64 `yaml:"min_name_match" mapstructure:"min_name_match"`
	MaxReviews     int     `yaml:"max_reviews" mapstructure:"max_reviews"`
}

// YouTubeConfig configures the YouTube text source.
type YouTubeConfig struct {
	ProviderConfig `yaml:",inline" mapstructure:",squash"`
	MaxResults     int    `yaml:"max_results" mapstructure:"max_results"`
	LookbackDays   int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	RegionCode     string `yaml:"region_code" mapstructure:"region_code"`
	Language       string `yaml:"language" mapstructure:"language"`
	Order          string `yaml:"order" mapstructure:"order"`
}

// PipelineConfig configures the per-region crawl.
type PipelineConfig struct {
	Regions       []string `yaml:"regions" mapstructure:"regions"`
	Workers       int      `yaml:"workers" mapstructure:"workers"`
	MaxPerRegion  int      `yaml:"max_restaurants_per_region" mapstructure:"max_restaurants_per_region"`
	PagesPerQuery int      `yaml:"pages_per_query" mapstructure:"pages_per_query"`
	TopNames      int      `yaml:"top_names" mapstructure:"top_names"`
	SecondarySize int      `yaml:"secondary_size" mapstructure:"secondary_size"`
	ListingSize   int      `yaml:"listing_size" mapstructure:"listing_size"`
}

// RetryConfig configures provider call retries and key cooldown.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	KeyCooldownSecs  int     `yaml:"key_cooldown_secs" mapstructure:"key_cooldown_secs"`
}

// KeyCooldown returns how long a quota-exhausted key rests.
func (r RetryConfig) KeyCooldown() time.Duration {
	return time.Duration(r.KeyCooldownSecs) * time.Second
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CacheConfig configures the provider response cache. An empty RedisURL
// selects the in-process cache; a zero TTL disables caching.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ScheduleConfig configures the recurring crawl run by serve.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Cron    string `yaml:"cron" mapstructure:"cron"`
}

// DenylistConfig points at an override for the embedded denylist.
type DenylistConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RegionsConfig points at an override for the embedded region catalog.
type RegionsConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the variable names older deployments kept
// in .env.
var legacyEnv = map[string]string{
	"kakao.keys":   "KAKAO_REST_API_KEY",
	"youtube.keys": "YOUTUBE_API_KEY",
	"google.keys":  "GOOGLE_PLACES_API_KEY",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATJIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "matjip.db")
	v.SetDefault("store.batch_size", store.DefaultBatchSize)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("kakao.keys", []string{})
	v.SetDefault("kakao.base_url", "https://dapi.kakao.com")
	v.SetDefault("kakao.rate_limit", 2.0)
	v.SetDefault("kakao.burst", 1)
	v.SetDefault("kakao.timeout_secs", 10)

	v.SetDefault("naver.keys", []string{})
	v.SetDefault("naver.base_url", "https://openapi.naver.com")
	v.SetDefault("naver.rate_limit", 1.0)
	v.SetDefault("naver.burst", 1)
	v.SetDefault("naver.timeout_secs", 10)

	v.SetDefault("google.keys", []string{})
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.rate_limit", 1.0)
	v.SetDefault("google.burst", 1)
	v.SetDefault("google.timeout_secs", 15)
	v.SetDefault("google.language", "ko")
	v.SetDefault("google.nearby_radius", 100)
	v.SetDefault("google.text_radius", 500)
	v.SetDefault("google.min_name_match", 0.7)
	v.SetDefault("google.max_reviews", 5)

	v.SetDefault("youtube.keys", []string{})
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.rate_limit", 0.5)
	v.SetDefault("youtube.burst", 1)
	v.SetDefault("youtube.timeout_secs", 15)
	v.SetDefault("youtube.max_results", 25)
	v.SetDefault("youtube.lookback_days", 365)
	v.SetDefault("youtube.region_code", "KR")
	v.SetDefault("youtube.language", "ko")
	v.SetDefault("youtube.order", "relevance")

	v.SetDefault("match.name_weight", 0.7)
	v.SetDefault("match.keyword_weight", 0.2)
	v.SetDefault("match.location_weight", 0.1)
	v.SetDefault("match.accept_threshold", 0.3)
	v.SetDefault("match.min_name_similarity", 0.2)
	v.SetDefault("merge.threshold", discovery.DefaultMergeThreshold)
	v.SetDefault("merge.priority", []string{"youtube", "naver"})

	def := enrich.DefaultConfig()
	v.SetDefault("enrich.max_photos", def.MaxPhotos)
	v.SetDefault("enrich.photo_max_width", def.PhotoMaxWidth)
	v.SetDefault("enrich.max_images", def.MaxImages)
	v.SetDefault("enrich.image_suffix", def.ImageSuffix)
	v.SetDefault("enrich.max_blogs", def.MaxBlogs)
	v.SetDefault("enrich.blog_fetch", def.BlogFetch)

	v.SetDefault("pipeline.regions", []string{})
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.max_restaurants_per_region", 50)
	v.SetDefault("pipeline.pages_per_query", discovery.DefaultPagesPerQuery)
	v.SetDefault("pipeline.top_names", discovery.DefaultTopN)
	v.SetDefault("pipeline.secondary_size", discovery.DefaultSecondarySize)
	v.SetDefault("pipeline.listing_size", 5)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("retry.key_cooldown_secs", 3600)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "matjip:")
	v.SetDefault("cache.ttl_hours", 24*7)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.cron", "0 2 * * 0")
	v.SetDefault("denylist.path", "")
	v.SetDefault("regions.catalog_path", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.reject_rate_threshold", 0.9)
	v.SetDefault("monitoring.lookback_runs", monitoring.DefaultLookbackRuns)

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "MATJIP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Kakao.Keys = mergeKeys(cfg.Kakao.Keys, numberedEnv("KAKAO_REST_API_KEY"))
	cfg.YouTube.Keys = mergeKeys(cfg.YouTube.Keys, numberedEnv("YOUTUBE_API_KEY"))
	cfg.Google.Keys = mergeKeys(cfg.Google.Keys, numberedEnv("GOOGLE_PLACES_API_KEY"))
	if id, secret := os.Getenv("NAVER_CLIENT_ID"), os.Getenv("NAVER_CLIENT_SECRET"); id != "" && secret != "" {
		cfg.Naver.Keys = mergeKeys(cfg.Naver.Keys, []string{id + ":" + secret})
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes: crawl,
// serve, export, migrate.
func (c *Config) Validate(mode string) error {
	var errs []string
	requireCrawl := func() {
		if !c.Kakao.Enabled() {
			errs = append(errs, "kakao.keys is required")
		}
		if !c.YouTube.Enabled() {
			errs = append(errs, "youtube.keys is required")
		}
		for _, k := range c.Naver.Keys {
			if !strings.Contains(k, ":") {
				errs = append(errs, "naver.keys must be clientID:clientSecret")
				break
			}
		}
		if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 16 {
			errs = append(errs, "pipeline.workers must be between 1 and 16")
		}
		if c.Merge.Threshold < 0 || c.Merge.Threshold > 1 {
			errs = append(errs, "merge.threshold must be between 0 and 1")
		}
		if c.Monitor.FailureRateThreshold < 0 || c.Monitor.FailureRateThreshold > 1 ||
			c.Monitor.RejectRateThreshold < 0 || c.Monitor.RejectRateThreshold > 1 {
			errs = append(errs, "monitoring thresholds must be between 0 and 1")
		}
	}

	switch mode {
	case "crawl":
		requireCrawl()
	case "serve":
		requireCrawl()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "export", "import", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite":
	case "postgres", "postgresql", "pgx":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// numberedEnv collects PREFIX_1, PREFIX_2, ... style variables in
// numeric order.
func numberedEnv(prefix string) []string {
	type kv struct {
		n   int
		val string
	}
	var found []kv
	for _, e := range os.Environ() {
		name, val, ok := strings.Cut(e, "=")
		if !ok || val == "" || !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		n := 0
		digits := strings.TrimPrefix(name, prefix+"_")
		if digits == "" {
			continue
		}
		valid := true
		for _, r := range digits {
			if r < '0' || r > '9' {
				valid = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if valid {
			found = append(found, kv{n, val})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.val
	}
	return out
}

// mergeKeys splits comma-joined entries, trims them and drops duplicates.
func mergeKeys(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, entry := range list {
			for _, k := range strings.Split(entry, ",") {
				k = strings.TrimSpace(k)
				if k == "" || seen[k] {
					continue
				}
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
