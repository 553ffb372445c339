package backup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "backup.db"), 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func restaurant(id, name string, mentions int) model.CanonicalRestaurant {
	return model.CanonicalRestaurant{
		ID:          "kakao:" + id,
		Provider:    model.ProviderKakao,
		ProviderID:  id,
		Name:        name,
		Address:     "제주특별자치도 제주시 일도이동 1045-10",
		RoadAddress: "제주특별자치도 제주시 항골남길 46",
		Lat:         33.5115,
		Lng:         126.5292,
		Category:    "한식",
		Region:      "제주도",
		Province:    "제주특별자치도",
		City:        "제주시",
		Tags:        []string{"현지인맛집"},
		History: model.MentionHistory{
			MentionCount: mentions,
			Channels:     []string{"먹방TV", "성시경"},
			FirstSeen:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			LastSeen:     time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
			TrendScore:   42,
		},
		Attributes: model.AttributeBag{Photos: []string{"https://photos.example/1"}},
	}
}

func TestExport_WritesHeaderAndRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	st.UpsertBatch(ctx, []model.CanonicalRestaurant{
		restaurant("1", "자매국수", 3),
		restaurant("2", "우진해장국", 5),
	})

	path := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := Export(ctx, st, store.ListFilter{}, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := sheetRows(t, path, SheetName)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	byID := map[string][]string{}
	for _, r := range rows[1:] {
		byID[r[0]] = r
	}
	row := byID["kakao:1"]
	require.NotNil(t, row)
	assert.Equal(t, "자매국수", row[1])
	assert.Equal(t, "제주특별자치도 제주시 항골남길 46", row[6])
	assert.Equal(t, "3", row[10])
	assert.Equal(t, "먹방TV, 성시경", row[13])
	assert.Equal(t, "2026-09-01T00:00:00Z", row[15])

	var doc model.CanonicalRestaurant
	require.NoError(t, json.Unmarshal([]byte(row[len(Columns)-1]), &doc))
	assert.Equal(t, "kakao:1", doc.ID)
	assert.Equal(t, []string{"https://photos.example/1"}, doc.Attributes.Photos)
}

func TestExport_Filter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	other := restaurant("2", "돼지국밥", 1)
	other.Region = "부산"
	st.UpsertBatch(ctx, []model.CanonicalRestaurant{restaurant("1", "자매국수", 3), other})

	n, err := Export(ctx, st, store.ListFilter{Region: "부산"}, filepath.Join(t.TempDir(), "out.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()
	src.UpsertBatch(ctx, []model.CanonicalRestaurant{
		restaurant("1", "자매국수", 3),
		restaurant("2", "우진해장국", 5),
		restaurant("3", "올래국수", 7),
	})
	path := filepath.Join(t.TempDir(), "backup.xlsx")
	_, err := Export(ctx, src, store.ListFilter{}, path)
	require.NoError(t, err)

	dst := newTestStore(t)
	res, err := Import(ctx, dst, path, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 2, res.Batches)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.Failed)

	want, err := src.Get(ctx, "kakao:2")
	require.NoError(t, err)
	got, err := dst.Get(ctx, "kakao:2")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.History.MentionCount, got.History.MentionCount)
	assert.Equal(t, want.History.Channels, got.History.Channels)
	assert.Equal(t, want.Attributes, got.Attributes)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestImport_SkipsBadRows(t *testing.T) {
	good, err := json.Marshal(restaurant("1", "자매국수", 3))
	require.NoError(t, err)
	path := createTestXLSX(t, map[string][][]string{
		SheetName: {
			{"id", "doc"},
			{"kakao:1", string(good)},
			{"kakao:2", "{not json"},
			{"kakao:3", ""},
			{"kakao:4"},
		},
	})

	st := newTestStore(t)
	res, err := Import(context.Background(), st, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 1, res.Stored)
}

func TestImport_MissingDocColumn(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		SheetName: {{"id", "name"}, {"kakao:1", "자매국수"}},
	})
	_, err := Import(context.Background(), newTestStore(t), path, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no doc column")
}

func TestImport_MissingSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})
	_, err := Import(context.Background(), newTestStore(t), path, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestImport_HeaderOnlySheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{SheetName: {{"id", "name"}}})
	_, err := Import(context.Background(), newTestStore(t), path, 0)
	require.Error(t, err, "the doc column is checked even without data rows")
	assert.Contains(t, err.Error(), "no doc column")

	path = createTestXLSX(t, map[string][][]string{SheetName: {}})
	_, err = Import(context.Background(), newTestStore(t), path, 0)
	require.Error(t, err)
}

func TestReadDocs_LinesAndHeaderCase(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		SheetName: {{"id", " DOC "}, {"kakao:1", "{}"}, {"kakao:2"}},
	})

	rowCh, errCh := readDocs(context.Background(), path)
	var got []docRow
	for r := range rowCh {
		got = append(got, r)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []docRow{{Line: 2, Doc: "{}"}, {Line: 3}}, got)
}

func TestReadDocs_Canceled(t *testing.T) {
	rows := [][]string{{"doc"}}
	for range 200 {
		rows = append(rows, []string{"{}"})
	}
	path := createTestXLSX(t, map[string][][]string{SheetName: rows})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := readDocs(ctx, path)
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

// sheetRows reads every row of a sheet as strings.
func sheetRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sh, ok := f.Sheet[sheet]
	require.True(t, ok, "sheet %q missing", sheet)

	var out [][]string
	for _, row := range sh.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		out = append(out, cells)
	}
	return out
}
