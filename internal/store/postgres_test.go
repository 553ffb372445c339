package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := newPostgresStore(mock, 0)
	s.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }
	return s, mock
}

func expectBulkUpsert(mock pgxmock.PgxPoolIface, table string, columns []string, n int64) {
	tmp := "_tmp_upsert_" + table
	mock.ExpectExec(`CREATE TEMP TABLE IF NOT EXISTS "` + tmp + `"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{tmp}, columns).WillReturnResult(n)
	mock.ExpectExec(`INSERT INTO "` + table + `"`).
		WillReturnResult(pgxmock.NewResult("INSERT", n))
	mock.ExpectExec(`TRUNCATE "` + tmp + `"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM restaurants WHERE id = \$1`).
		WithArgs("kakao:1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"kakao:1","name":"하동관","history":{"mention_count":3}}`)))

	r, err := s.Get(context.Background(), "kakao:1")
	require.NoError(t, err)
	assert.Equal(t, "하동관", r.Name)
	assert.Equal(t, 3, r.History.MentionCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM restaurants`).
		WithArgs("kakao:missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "kakao:missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_FirstWrite(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT doc FROM restaurants WHERE id = ANY\(\$1\) FOR UPDATE`).
		WithArgs([]string{"kakao:1"}).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}))
	expectBulkUpsert(mock, "restaurants", restaurantUpsert.Columns, 1)
	mock.ExpectCommit()

	got, err := s.Upsert(context.Background(), testRestaurant("kakao:1", 3, "먹방TV"))
	require.NoError(t, err)
	assert.Equal(t, 3, got.History.MentionCount)
	assert.Equal(t, s.now(), got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_MergesStored(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stored := `{"id":"kakao:1","name":"하동관","created_at":"2025-01-01T00:00:00Z",` +
		`"history":{"mention_count":3,"channels":["먹방TV","성시경"]}}`

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs([]string{"kakao:1"}).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte(stored)))
	expectBulkUpsert(mock, "restaurants", restaurantUpsert.Columns, 1)
	expectBulkUpsert(mock, "mentions", mentionInsert.Columns, 1)
	mock.ExpectCommit()

	in := testRestaurant("kakao:1", 5, "성시경", "쯔양")
	in.Mentions = []model.Mention{{VideoID: "v1", URL: "https://youtu.be/v1"}}
	got, err := s.Upsert(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 8, got.History.MentionCount)
	assert.Equal(t, []string{"먹방TV", "성시경", "쯔양"}, got.History.Channels)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, s.now(), got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_RollsBackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs([]string{"kakao:1"}).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}))
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Upsert(context.Background(), testRestaurant("kakao:1", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert restaurants")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_RejectsEmptyID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	_, err := s.Upsert(context.Background(), model.CanonicalRestaurant{Name: "x"})
	assert.ErrorContains(t, err, "has no id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM restaurants WHERE region = \$1`).
		WithArgs("제주").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.Count(context.Background(), ListFilter{Region: "제주"})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM restaurants WHERE trend_score >= \$1 ORDER BY trend_score DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs(50, 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"kakao:2"}`)).
			AddRow([]byte(`{"id":"kakao:1"}`)))

	recs, err := s.List(context.Background(), ListFilter{MinTrend: 50, Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "kakao:2", recs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), []byte(`["제주"]`), "running", s.now()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), []string{"제주"})
	require.NoError(t, err)
	assert.Len(t, run.ID, 26)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), &model.Run{ID: "run-1", Status: model.RunStatusComplete})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, regions, status, stats, error, started_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS restaurants`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
