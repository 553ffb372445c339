package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertTx_EmptyRows(t *testing.T) {
	n, err := BulkUpsertTx(context.TODO(), nil, UpsertConfig{
		Table:        "restaurants",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsertTx_NoColumns(t *testing.T) {
	_, err := BulkUpsertTx(context.TODO(), nil, UpsertConfig{
		Table:        "restaurants",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsertTx_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsertTx(context.TODO(), nil, UpsertConfig{
		Table:   "restaurants",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsertTx_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TEMP TABLE IF NOT EXISTS "_tmp_upsert_public_restaurants" \(LIKE "public"."restaurants"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_public_restaurants"}, []string{"id", "name"}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "public"."restaurants" \("id", "name"\) SELECT "id", "name" FROM "_tmp_upsert_public_restaurants" ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`TRUNCATE "_tmp_upsert_public_restaurants"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	n, err := BulkUpsertTx(context.Background(), mock, UpsertConfig{
		Table:        "public.restaurants",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"kakao:1", "a"}, {"kakao:2", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertTx_DoNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_mentions"}, []string{"id", "restaurant_id"}).WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("restaurant_id"\) DO NOTHING`).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`TRUNCATE`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	n, err := BulkUpsertTx(context.Background(), mock, UpsertConfig{
		Table:        "mentions",
		Columns:      []string{"id", "restaurant_id"},
		ConflictKeys: []string{"restaurant_id"},
		UpdateCols:   []string{},
	}, [][]any{{"u", "kakao:1"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertTx_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_restaurants"}, []string{"id"}).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO`).WillReturnError(fmt.Errorf("constraint violation"))

	_, err = BulkUpsertTx(context.Background(), mock, UpsertConfig{
		Table:        "restaurants",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"kakao:1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT ON CONFLICT for restaurants")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"public.restaurants", `"public"."restaurants"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
