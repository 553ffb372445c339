package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "matjip.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRestaurant(id string, mentions int, channels ...string) model.CanonicalRestaurant {
	return model.CanonicalRestaurant{
		ID:         id,
		Provider:   model.ProviderKakao,
		ProviderID: id[len("kakao:"):],
		Name:       "식당 " + id,
		Region:     "제주",
		Category:   "한식",
		History: model.MentionHistory{
			MentionCount: mentions,
			Channels:     channels,
		},
	}
}

func TestSQLite_FirstWriteThenAdditiveMerge(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := testRestaurant("kakao:1", 3, "먹방TV", "성시경")
	first.Address = "제주 제주시 연동 1"
	got, err := s.Upsert(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 3, got.History.MentionCount)
	assert.False(t, got.CreatedAt.IsZero())

	second := testRestaurant("kakao:1", 5, "성시경", "쯔양")
	second.Address = "제주 제주시 연동 2"
	got, err = s.Upsert(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 8, got.History.MentionCount)
	assert.Equal(t, []string{"먹방TV", "성시경", "쯔양"}, got.History.Channels)
	assert.Equal(t, "제주 제주시 연동 2", got.Address)

	n, err := s.Count(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_SeenWindow(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := testRestaurant("kakao:1", 1)
	a.History.FirstSeen, a.History.LastSeen = t0, t0.AddDate(0, 1, 0)
	_, err := s.Upsert(ctx, a)
	require.NoError(t, err)

	b := testRestaurant("kakao:1", 1)
	b.History.FirstSeen, b.History.LastSeen = t0.AddDate(0, -1, 0), t0.AddDate(0, 0, 10)
	got, err := s.Upsert(ctx, b)
	require.NoError(t, err)

	assert.True(t, got.History.FirstSeen.Equal(t0.AddDate(0, -1, 0)))
	assert.True(t, got.History.LastSeen.Equal(t0.AddDate(0, 1, 0)))
}

func TestSQLite_GetNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.Get(context.Background(), "kakao:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpsertBatchFallback(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	bad := testRestaurant("kakao:3", 1)
	bad.ID = ""
	res := s.UpsertBatch(ctx, []model.CanonicalRestaurant{
		testRestaurant("kakao:1", 1),
		bad,
		testRestaurant("kakao:2", 1),
	})

	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 1, res.Fallbacks)
	require.Len(t, res.Failed, 1)
	assert.Empty(t, res.Failed[0].ID)

	n, err := s.Count(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_UpsertBatchRepeatedIDs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	res := s.UpsertBatch(ctx, []model.CanonicalRestaurant{
		testRestaurant("kakao:1", 2, "a"),
		testRestaurant("kakao:1", 4, "b"),
	})
	require.Empty(t, res.Failed)

	got, err := s.Get(ctx, "kakao:1")
	require.NoError(t, err)
	assert.Equal(t, 6, got.History.MentionCount)
	assert.Equal(t, []string{"a", "b"}, got.History.Channels)
}

func TestSQLite_ConcurrentUpsertsAreLinearized(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Upsert(ctx, testRestaurant("kakao:1", 1, fmt.Sprintf("ch%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, "kakao:1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.History.MentionCount)
	assert.Len(t, got.History.Channels, 10)
}

func TestSQLite_MentionsDeduplicated(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	pub := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	rec := testRestaurant("kakao:1", 2)
	rec.Mentions = []model.Mention{
		{VideoID: "v1", URL: "https://youtu.be/v1", Channel: "먹방TV", PublishedAt: pub},
		{VideoID: "v2", URL: "https://youtu.be/v2", Channel: "쯔양", PublishedAt: pub.AddDate(0, 1, 0)},
	}
	_, err := s.Upsert(ctx, rec)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, rec)
	require.NoError(t, err)

	mentions, err := s.Mentions(ctx, "kakao:1", 0)
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, "v2", mentions[0].VideoID)
	assert.True(t, mentions[1].PublishedAt.Equal(pub))

	got, err := s.Get(ctx, "kakao:1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.History.MentionCount)
	assert.Empty(t, got.Mentions)
}

func TestSQLite_ListFilterAndScan(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var recs []model.CanonicalRestaurant
	for i := 1; i <= 5; i++ {
		r := testRestaurant(fmt.Sprintf("kakao:%d", i), 1)
		r.History.TrendScore = i * 10
		if i%2 == 0 {
			r.Region = "부산"
		}
		recs = append(recs, r)
	}
	require.Empty(t, s.UpsertBatch(ctx, recs).Failed)

	jeju, err := s.List(ctx, ListFilter{Region: "제주"})
	require.NoError(t, err)
	require.Len(t, jeju, 3)
	assert.Equal(t, "kakao:5", jeju[0].ID)

	hot, err := s.List(ctx, ListFilter{MinTrend: 30, Limit: 2})
	require.NoError(t, err)
	require.Len(t, hot, 2)
	assert.Equal(t, []string{"kakao:5", "kakao:4"}, []string{hot[0].ID, hot[1].ID})

	n, err := s.Count(ctx, ListFilter{Region: "부산"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var scanned []string
	require.NoError(t, s.Scan(ctx, ListFilter{}, func(r model.CanonicalRestaurant) error {
		scanned = append(scanned, r.ID)
		return nil
	}))
	assert.Len(t, scanned, 5)
}

func TestSQLite_Runs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, []string{"제주", "부산"})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Len(t, run.ID, 26)

	run.Status = model.RunStatusComplete
	run.Stats = []model.RunStats{{Region: "제주", Stored: 12, RejectReasons: map[string]int{"region_mismatch": 2}}}
	require.NoError(t, s.CompleteRun(ctx, run))
	require.NotNil(t, run.FinishedAt)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, []string{"제주", "부산"}, got.Regions)
	require.Len(t, got.Stats, 1)
	assert.Equal(t, 12, got.Stats[0].Stored)
	assert.Equal(t, 2, got.Stats[0].RejectReasons["region_mismatch"])
	require.NotNil(t, got.FinishedAt)

	second, err := s.CreateRun(ctx, []string{"서울"})
	require.NoError(t, err)
	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.CompleteRun(ctx, &model.Run{ID: "missing"}), ErrNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	rs, err := Open(ctx, Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, rs.Close())

	_, err = Open(ctx, Config{Driver: "postgres"})
	assert.ErrorContains(t, err, "database_url")

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown driver")
}
