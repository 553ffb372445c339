package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/matjip/internal/model"
)

// SQLiteStore implements RecordStore using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
	locks     *keyedMutex
	now       func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, batchSize int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLiteStore{db: db, batchSize: batchSize, locks: newKeyedMutex(), now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS restaurants (
	id            TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	provider_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	region        TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	mention_count INTEGER NOT NULL DEFAULT 0,
	trend_score   INTEGER NOT NULL DEFAULT 0,
	doc           TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mentions (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	video_id      TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL DEFAULT '',
	channel_id    TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	thumbnail     TEXT NOT NULL DEFAULT '',
	published_at  TEXT NOT NULL DEFAULT '',
	popularity    INTEGER NOT NULL DEFAULT 0,
	UNIQUE (restaurant_id, video_id, url)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	regions     TEXT NOT NULL,
	status      TEXT NOT NULL,
	stats       TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_restaurants_region ON restaurants(region);
CREATE INDEX IF NOT EXISTS idx_restaurants_trend ON restaurants(trend_score DESC);
CREATE INDEX IF NOT EXISTS idx_mentions_restaurant ON mentions(restaurant_id, published_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the record with id or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.CanonicalRestaurant, error) {
	r, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get restaurant %s", id)
	}
	return r, nil
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q sqliteQuerier, id string) (*model.CanonicalRestaurant, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM restaurants WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load restaurant %s", id)
	}
	var r model.CanonicalRestaurant
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal restaurant %s", id)
	}
	return &r, nil
}

// Upsert merges rec into its stored version and returns the result.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.CanonicalRestaurant) (*model.CanonicalRestaurant, error) {
	unlock := s.locks.Lock(rec.ID)
	defer unlock()

	if err := s.write(ctx, []model.CanonicalRestaurant{rec}); err != nil {
		return nil, err
	}
	return s.Get(ctx, rec.ID)
}

// UpsertBatch writes recs in transactions of the configured batch size.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, recs []model.CanonicalRestaurant) BatchResult {
	return upsertBatches(ctx, s.locks, s.batchSize, recs, s.write)
}

func (s *SQLiteStore) write(ctx context.Context, recs []model.CanonicalRestaurant) error {
	if err := validateIDs(recs); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stored := make(map[string]*model.CanonicalRestaurant, len(recs))
	for _, r := range recs {
		if _, ok := stored[r.ID]; ok {
			continue
		}
		existing, err := s.load(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		stored[r.ID] = existing
	}

	now := s.now().UTC()
	for _, m := range mergeInto(stored, stamp(recs, now)) {
		doc, err := json.Marshal(m)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal restaurant %s", m.ID)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO restaurants (id, provider, provider_id, name, region, category, mention_count, trend_score, doc, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	region = excluded.region,
	category = excluded.category,
	mention_count = excluded.mention_count,
	trend_score = excluded.trend_score,
	doc = excluded.doc,
	updated_at = excluded.updated_at`,
			m.ID, string(m.Provider), m.ProviderID, m.Name, m.Region, m.Category,
			m.History.MentionCount, m.History.TrendScore, string(doc),
			m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert restaurant %s", m.ID)
		}

		for _, mn := range m.Mentions {
			_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO mentions (id, restaurant_id, video_id, url, channel, channel_id, title, thumbnail, published_at, popularity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), m.ID, mn.VideoID, mn.URL, mn.Channel, mn.ChannelID, mn.Title, mn.Thumbnail,
				mn.PublishedAt.UTC().Format(time.RFC3339Nano), mn.Popularity,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert mention for %s", m.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

// List returns records matching f, hottest first.
func (s *SQLiteStore) List(ctx context.Context, f ListFilter) ([]model.CanonicalRestaurant, error) {
	where, args := f.where(sqlitePlaceholder)
	q := `SELECT doc FROM restaurants` + where + ` ORDER BY trend_score DESC, id`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list restaurants")
	}
	defer rows.Close()

	var out []model.CanonicalRestaurant
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant")
		}
		var r model.CanonicalRestaurant
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal restaurant")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate restaurants")
}

// Scan calls fn for every record matching f, a page at a time.
func (s *SQLiteStore) Scan(ctx context.Context, f ListFilter, fn func(model.CanonicalRestaurant) error) error {
	return scanPages(ctx, s.List, f, fn)
}

// Count returns the number of records matching f.
func (s *SQLiteStore) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := f.where(sqlitePlaceholder)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants`+where, args...).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count restaurants")
}

// Mentions returns the newest mentions of a record.
func (s *SQLiteStore) Mentions(ctx context.Context, id string, limit int) ([]model.Mention, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT video_id, url, channel, channel_id, title, thumbnail, published_at, popularity
FROM mentions WHERE restaurant_id = ? ORDER BY published_at DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list mentions %s", id)
	}
	defer rows.Close()

	var out []model.Mention
	for rows.Next() {
		var (
			m         model.Mention
			published string
		)
		if err := rows.Scan(&m.VideoID, &m.URL, &m.Channel, &m.ChannelID, &m.Title, &m.Thumbnail, &published, &m.Popularity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mention")
		}
		m.PublishedAt, _ = time.Parse(time.RFC3339Nano, published)
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate mentions")
}

// CreateRun records the start of a crawl run.
func (s *SQLiteStore) CreateRun(ctx context.Context, regions []string) (*model.Run, error) {
	run := &model.Run{
		ID:        ulid.Make().String(),
		Regions:   regions,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	regionsJSON, err := json.Marshal(regions)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal regions")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, regions, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(regionsJSON), string(run.Status), run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

// CompleteRun stores the final status, stats and error of run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.Run) error {
	if run.FinishedAt == nil {
		now := s.now().UTC()
		run.FinishedAt = &now
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), string(statsJSON), run.Error, run.FinishedAt.Format(time.RFC3339Nano), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

// GetRun returns a run or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, regions, status, stats, error, started_at, finished_at FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	return r, err
}

// ListRuns returns the newest runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, regions, status, stats, error, started_at, finished_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var (
		r               model.Run
		regions, status string
		stats, finished sql.NullString
		started         string
	)
	if err := row.Scan(&r.ID, &regions, &status, &stats, &r.Error, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(regions), &r.Regions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal regions")
	}
	if stats.Valid && stats.String != "" {
		if err := json.Unmarshal([]byte(stats.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err == nil {
			r.FinishedAt = &t
		}
	}
	return &r, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func sqlitePlaceholder(int) string { return "?" }
