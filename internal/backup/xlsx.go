// Package backup writes the restaurant store to an XLSX workbook and
// restores it from one.
package backup

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/store"
)

// SheetName is the worksheet holding one row per restaurant.
const SheetName = "restaurants"

// Columns is the header row. The doc column carries the full record as
// JSON; Import reads only that column.
var Columns = []string{
	"id", "name", "region", "province", "city", "category", "address",
	"lat", "lng", "phone", "mention_count", "trend_score", "is_rising",
	"channels", "tags", "first_seen", "last_seen", "place_url", "doc",
}

// DefaultImportBatch is the number of records upserted per batch on import.
const DefaultImportBatch = 200

// Export writes every record matching f to path and returns the row count.
func Export(ctx context.Context, st store.RecordStore, f store.ListFilter, path string) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return 0, eris.Wrap(err, "backup: add sheet")
	}
	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	var n int
	err = st.Scan(ctx, f, func(r model.CanonicalRestaurant) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "backup: marshal %s", r.ID)
		}
		writeRow(sheet.AddRow(), r, doc)
		n++
		return nil
	})
	if err != nil {
		return n, eris.Wrap(err, "backup: scan store")
	}
	if err := file.Save(path); err != nil {
		return n, eris.Wrap(err, "backup: save workbook")
	}
	zap.L().Info("backup: exported", zap.String("path", path), zap.Int("rows", n))
	return n, nil
}

func writeRow(row *xlsx.Row, r model.CanonicalRestaurant, doc []byte) {
	h := r.History
	row.AddCell().SetString(r.ID)
	row.AddCell().SetString(r.Name)
	row.AddCell().SetString(r.Region)
	row.AddCell().SetString(r.Province)
	row.AddCell().SetString(r.City)
	row.AddCell().SetString(r.Category)
	row.AddCell().SetString(address(r))
	row.AddCell().SetFloat(r.Lat)
	row.AddCell().SetFloat(r.Lng)
	row.AddCell().SetString(r.Phone)
	row.AddCell().SetInt(h.MentionCount)
	row.AddCell().SetInt(h.TrendScore)
	row.AddCell().SetBool(h.IsRising)
	row.AddCell().SetString(strings.Join(h.Channels, ", "))
	row.AddCell().SetString(strings.Join(r.Tags, ", "))
	row.AddCell().SetString(formatTime(h.FirstSeen))
	row.AddCell().SetString(formatTime(h.LastSeen))
	row.AddCell().SetString(r.PlaceURL)
	row.AddCell().SetString(string(doc))
}

func address(r model.CanonicalRestaurant) string {
	if r.RoadAddress != "" {
		return r.RoadAddress
	}
	return r.Address
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ImportResult summarizes an Import call.
type ImportResult struct {
	Rows    int
	Skipped int
	store.BatchResult
}

// Import upserts the records of a workbook written by Export. Rows
// without a readable doc are skipped. Importing into a non-empty store
// merges like any other write.
func Import(ctx context.Context, st store.RecordStore, path string, batchSize int) (ImportResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatch
	}
	var res ImportResult

	rowCh, errCh := readDocs(ctx, path)

	batch := make([]model.CanonicalRestaurant, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		br := st.UpsertBatch(ctx, batch)
		res.Stored += br.Stored
		res.Batches += br.Batches
		res.Fallbacks += br.Fallbacks
		res.Failed = append(res.Failed, br.Failed...)
		batch = batch[:0]
	}

	for row := range rowCh {
		res.Rows++
		if row.Doc == "" {
			res.Skipped++
			continue
		}
		var r model.CanonicalRestaurant
		if err := json.Unmarshal([]byte(row.Doc), &r); err != nil || r.ID == "" {
			zap.L().Warn("backup: skipping unreadable row", zap.Int("row", row.Line), zap.Error(err))
			res.Skipped++
			continue
		}
		batch = append(batch, r)
		if len(batch) == batchSize {
			flush()
		}
	}
	if err := <-errCh; err != nil {
		return res, err
	}
	flush()
	if err := ctx.Err(); err != nil {
		return res, eris.Wrap(err, "backup: import")
	}

	zap.L().Info("backup: imported",
		zap.String("path", path),
		zap.Int("rows", res.Rows),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
