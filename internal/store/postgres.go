package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/matjip/internal/db"
	"github.com/sells-group/matjip/internal/model"
)

// PostgresStore implements RecordStore using pgxpool. Records are kept as
// JSONB documents next to a few indexed columns.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	batchSize int
	locks     *keyedMutex
	now       func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_restaurant": `SELECT doc FROM restaurants WHERE id = $1`,
	"insert_run":     `INSERT INTO runs (id, regions, status, started_at) VALUES ($1, $2, $3, $4)`,
	"complete_run":   `UPDATE runs SET status = $1, stats = $2, error = $3, finished_at = $4 WHERE id = $5`,
	"get_run":        `SELECT id, regions, status, stats, error, started_at, finished_at FROM runs WHERE id = $1`,
}

var restaurantUpsert = db.UpsertConfig{
	Table: "restaurants",
	Columns: []string{
		"id", "provider", "provider_id", "name", "region", "category",
		"mention_count", "trend_score", "doc", "created_at", "updated_at",
	},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"name", "region", "category", "mention_count", "trend_score", "doc", "updated_at"},
}

var mentionInsert = db.UpsertConfig{
	Table: "mentions",
	Columns: []string{
		"id", "restaurant_id", "video_id", "url", "channel", "channel_id",
		"title", "thumbnail", "published_at", "popularity",
	},
	ConflictKeys: []string{"restaurant_id", "video_id", "url"},
	UpdateCols:   []string{},
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, batchSize int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	s := newPostgresStore(pool, batchSize)
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PostgresStore{pool: pool, batchSize: batchSize, locks: newKeyedMutex(), now: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS restaurants (
	id            TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	provider_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	region        TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	mention_count INTEGER NOT NULL DEFAULT 0,
	trend_score   INTEGER NOT NULL DEFAULT 0,
	doc           JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mentions (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	video_id      TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL DEFAULT '',
	channel_id    TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	thumbnail     TEXT NOT NULL DEFAULT '',
	published_at  TIMESTAMPTZ,
	popularity    BIGINT NOT NULL DEFAULT 0,
	UNIQUE (restaurant_id, video_id, url)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	regions     JSONB NOT NULL,
	status      TEXT NOT NULL,
	stats       JSONB,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_restaurants_region ON restaurants(region);
CREATE INDEX IF NOT EXISTS idx_restaurants_trend ON restaurants(trend_score DESC);
CREATE INDEX IF NOT EXISTS idx_restaurants_doc ON restaurants USING GIN (doc jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_mentions_restaurant ON mentions(restaurant_id, published_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Get returns the record with id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.CanonicalRestaurant, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM restaurants WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get restaurant %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get restaurant %s", id)
	}
	var r model.CanonicalRestaurant
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal restaurant %s", id)
	}
	return &r, nil
}

// Upsert merges rec into its stored version and returns the result.
func (s *PostgresStore) Upsert(ctx context.Context, rec model.CanonicalRestaurant) (*model.CanonicalRestaurant, error) {
	unlock := s.locks.Lock(rec.ID)
	defer unlock()

	merged, err := s.writeMerged(ctx, []model.CanonicalRestaurant{rec})
	if err != nil {
		return nil, err
	}
	return &merged[0], nil
}

// UpsertBatch writes recs in transactions of the configured batch size.
func (s *PostgresStore) UpsertBatch(ctx context.Context, recs []model.CanonicalRestaurant) BatchResult {
	return upsertBatches(ctx, s.locks, s.batchSize, recs, func(ctx context.Context, recs []model.CanonicalRestaurant) error {
		_, err := s.writeMerged(ctx, recs)
		return err
	})
}

// writeMerged locks the stored rows, merges recs into them and writes the
// result with a bulk upsert, all in one transaction.
func (s *PostgresStore) writeMerged(ctx context.Context, recs []model.CanonicalRestaurant) ([]model.CanonicalRestaurant, error) {
	if err := validateIDs(recs); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if !seen[r.ID] {
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	stored, err := lockStored(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	merged := mergeInto(stored, stamp(recs, s.now().UTC()))

	var restaurantRows, mentionRows [][]any
	for _, m := range merged {
		doc, err := json.Marshal(m)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal restaurant %s", m.ID)
		}
		restaurantRows = append(restaurantRows, []any{
			m.ID, string(m.Provider), m.ProviderID, m.Name, m.Region, m.Category,
			m.History.MentionCount, m.History.TrendScore, string(doc), m.CreatedAt, m.UpdatedAt,
		})
		for _, mn := range m.Mentions {
			var published *time.Time
			if !mn.PublishedAt.IsZero() {
				t := mn.PublishedAt.UTC()
				published = &t
			}
			mentionRows = append(mentionRows, []any{
				uuid.New().String(), m.ID, mn.VideoID, mn.URL, mn.Channel, mn.ChannelID,
				mn.Title, mn.Thumbnail, published, mn.Popularity,
			})
		}
	}

	if _, err := db.BulkUpsertTx(ctx, tx, restaurantUpsert, restaurantRows); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert restaurants")
	}
	if _, err := db.BulkUpsertTx(ctx, tx, mentionInsert, mentionRows); err != nil {
		return nil, eris.Wrap(err, "postgres: insert mentions")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit tx")
	}
	return merged, nil
}

func lockStored(ctx context.Context, tx pgx.Tx, ids []string) (map[string]*model.CanonicalRestaurant, error) {
	rows, err := tx.Query(ctx, `SELECT doc FROM restaurants WHERE id = ANY($1) FOR UPDATE`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lock restaurants")
	}
	defer rows.Close()

	stored := make(map[string]*model.CanonicalRestaurant, len(ids))
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan restaurant")
		}
		var r model.CanonicalRestaurant
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal restaurant")
		}
		stored[r.ID] = &r
	}
	return stored, eris.Wrap(rows.Err(), "postgres: iterate restaurants")
}

// List returns records matching f, hottest first.
func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]model.CanonicalRestaurant, error) {
	where, args := f.where(pgPlaceholder)
	q := `SELECT doc FROM restaurants` + where + ` ORDER BY trend_score DESC, id`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %s OFFSET %s`, pgPlaceholder(len(args)+1), pgPlaceholder(len(args)+2))
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list restaurants")
	}
	defer rows.Close()

	var out []model.CanonicalRestaurant
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan restaurant")
		}
		var r model.CanonicalRestaurant
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal restaurant")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate restaurants")
}

// Scan calls fn for every record matching f, a page at a time.
func (s *PostgresStore) Scan(ctx context.Context, f ListFilter, fn func(model.CanonicalRestaurant) error) error {
	return scanPages(ctx, s.List, f, fn)
}

// Count returns the number of records matching f.
func (s *PostgresStore) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := f.where(pgPlaceholder)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM restaurants`+where, args...).Scan(&n)
	return n, eris.Wrap(err, "postgres: count restaurants")
}

// Mentions returns the newest mentions of a record.
func (s *PostgresStore) Mentions(ctx context.Context, id string, limit int) ([]model.Mention, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT video_id, url, channel, channel_id, title, thumbnail, published_at, popularity
FROM mentions WHERE restaurant_id = $1 ORDER BY published_at DESC NULLS LAST LIMIT $2`, id, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list mentions %s", id)
	}
	defer rows.Close()

	var out []model.Mention
	for rows.Next() {
		var (
			m         model.Mention
			published *time.Time
		)
		if err := rows.Scan(&m.VideoID, &m.URL, &m.Channel, &m.ChannelID, &m.Title, &m.Thumbnail, &published, &m.Popularity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mention")
		}
		if published != nil {
			m.PublishedAt = *published
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate mentions")
}

// CreateRun records the start of a crawl run.
func (s *PostgresStore) CreateRun(ctx context.Context, regions []string) (*model.Run, error) {
	run := &model.Run{
		ID:        ulid.Make().String(),
		Regions:   regions,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	regionsJSON, err := json.Marshal(regions)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal regions")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, regions, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, regionsJSON, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

// CompleteRun stores the final status, stats and error of run.
func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.Run) error {
	if run.FinishedAt == nil {
		now := s.now().UTC()
		run.FinishedAt = &now
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(run.Status), statsJSON, run.Error, *run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

// GetRun returns a run or ErrNotFound.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, regions, status, stats, error, started_at, finished_at FROM runs WHERE id = $1`, id)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	return r, err
}

// ListRuns returns the newest runs first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, regions, status, stats, error, started_at, finished_at FROM runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r              model.Run
		regions, stats []byte
		status         string
	)
	if err := row.Scan(&r.ID, &regions, &status, &stats, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(regions, &r.Regions); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal regions")
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &r, nil
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
