package backup

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// docRow is one data row of a backup sheet.
type docRow struct {
	Line int // 1-based row number in the sheet
	Doc  string
}

// readDocs streams the doc column of the backup sheet in path. The header
// is checked before any row is sent; both channels close when reading
// ends.
func readDocs(ctx context.Context, path string) (<-chan docRow, <-chan error) {
	rowCh := make(chan docRow, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		sheet, docCol, err := openSheet(path)
		if err != nil {
			errCh <- err
			return
		}

		for i, row := range sheet.Rows[1:] {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "backup: read canceled")
				return
			}
			r := docRow{Line: i + 2}
			if docCol < len(row.Cells) {
				r.Doc = row.Cells[docCol].String()
			}
			select {
			case rowCh <- r:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "backup: read canceled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// openSheet opens the workbook and locates the backup sheet and its doc
// column.
func openSheet(path string) (*xlsx.Sheet, int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "backup: open workbook")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		return nil, 0, eris.Errorf("backup: sheet %q not found", SheetName)
	}
	if len(sheet.Rows) == 0 {
		return nil, 0, eris.Errorf("backup: sheet %q is empty", SheetName)
	}

	for i, cell := range sheet.Rows[0].Cells {
		if normalizeHeader(cell.String()) == "doc" {
			return sheet, i, nil
		}
	}
	return nil, 0, eris.New("backup: workbook has no doc column")
}
