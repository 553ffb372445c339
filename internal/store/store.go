// Package store persists canonical restaurants, their mention log and
// crawl runs.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/matjip/internal/model"
)

// DefaultBatchSize is the number of records written per transaction.
const DefaultBatchSize = 500

// ErrNotFound is returned when a record or run does not exist.
var ErrNotFound = eris.New("store: not found")

// ListFilter narrows List, Scan and Count.
type ListFilter struct {
	Region   string `json:"region,omitempty"`
	Category string `json:"category,omitempty"`
	MinTrend int    `json:"min_trend,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// FailedRecord is one record a batch could not write.
type FailedRecord struct {
	ID  string
	Err error
}

// BatchResult summarizes an UpsertBatch call.
type BatchResult struct {
	Stored    int
	Batches   int
	Fallbacks int
	Failed    []FailedRecord
}

// RecordStore is the durable home of canonical restaurants. Upserts to the
// same id are linearized and merged field by field with ApplyPolicy.
type RecordStore interface {
	Get(ctx context.Context, id string) (*model.CanonicalRestaurant, error)
	Upsert(ctx context.Context, rec model.CanonicalRestaurant) (*model.CanonicalRestaurant, error)
	UpsertBatch(ctx context.Context, recs []model.CanonicalRestaurant) BatchResult
	List(ctx context.Context, f ListFilter) ([]model.CanonicalRestaurant, error)
	Scan(ctx context.Context, f ListFilter, fn func(model.CanonicalRestaurant) error) error
	Count(ctx context.Context, f ListFilter) (int, error)
	Mentions(ctx context.Context, id string, limit int) ([]model.Mention, error)

	CreateRun(ctx context.Context, regions []string) (*model.Run, error)
	CompleteRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open creates the configured backend. The driver defaults to sqlite.
func Open(ctx context.Context, cfg Config) (RecordStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "matjip.db"
		}
		return NewSQLite(dsn, cfg.BatchSize)
	case "postgres", "postgresql", "pgx":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}, cfg.BatchSize)
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}

// where renders f as a SQL WHERE clause using ph for the n-th placeholder.
func (f ListFilter) where(ph func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", ph(len(args)), 1))
	}
	if f.Region != "" {
		add("region = ?", f.Region)
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.MinTrend > 0 {
		add("trend_score >= ?", f.MinTrend)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const scanPageSize = 500

// scanPages drives fn over list one page at a time so no cursor stays
// open while fn runs.
func scanPages(ctx context.Context, list func(context.Context, ListFilter) ([]model.CanonicalRestaurant, error), f ListFilter, fn func(model.CanonicalRestaurant) error) error {
	remaining := f.Limit
	page := f
	for {
		page.Limit = scanPageSize
		if remaining > 0 && remaining < scanPageSize {
			page.Limit = remaining
		}
		recs, err := list(ctx, page)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if err := fn(r); err != nil {
				return err
			}
		}
		if remaining > 0 {
			remaining -= len(recs)
			if remaining <= 0 {
				return nil
			}
		}
		if len(recs) < page.Limit {
			return nil
		}
		page.Offset += len(recs)
	}
}

func validateIDs(recs []model.CanonicalRestaurant) error {
	for _, r := range recs {
		if strings.TrimSpace(r.ID) == "" {
			return eris.Errorf("store: record %q has no id", r.Name)
		}
	}
	return nil
}

// stamp sets the write timestamps. CreatedAt only survives on new records.
func stamp(recs []model.CanonicalRestaurant, now time.Time) []model.CanonicalRestaurant {
	out := make([]model.CanonicalRestaurant, len(recs))
	for i, r := range recs {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		out[i] = r
	}
	return out
}
