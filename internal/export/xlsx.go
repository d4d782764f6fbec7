package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cyberdefenders/cybergrader/internal/store"
)

// XLSXSheetSync writes the scoreboard workbook to a local path: one sheet
// per attempt kind plus the per-user Scores matrix and a Meta sheet with the
// sync timestamp.
type XLSXSheetSync struct {
	Path string
	Log  *slog.Logger
}

func NewXLSXSheetSync(path string, log *slog.Logger) *XLSXSheetSync {
	if log == nil {
		log = slog.Default()
	}
	return &XLSXSheetSync{Path: path, Log: log}
}

func (x *XLSXSheetSync) Sync(_ context.Context, export store.ExportResponse) SheetSyncResult {
	if x.Path == "" {
		return SheetSyncResult{Status: "skipped", Message: "no workbook path configured"}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]string
	}{
		{"Scores", scoresMatrix(export)},
		{"Labs", labRows(export)},
		{"Quizzes", quizRows(export)},
		{"Exams", examRows(export)},
		{"Meta", [][]string{{"last_synced_at", time.Now().UTC().Format(time.RFC3339)}}},
	}

	for i, sheet := range sheets {
		if i == 0 {
			// rename the default sheet instead of leaving "Sheet1" behind
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return x.fail(err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return x.fail(err)
			}
		}
		for rowIdx, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			if err != nil {
				return x.fail(err)
			}
			values := make([]any, len(row))
			for i, v := range row {
				values[i] = v
			}
			if err := f.SetSheetRow(sheet.name, cell, &values); err != nil {
				return x.fail(err)
			}
		}
	}

	if err := f.SaveAs(x.Path); err != nil {
		return x.fail(err)
	}

	rows := len(export.Labs) + len(export.Quizzes) + len(export.Exams)
	return SheetSyncResult{
		Status:      "success",
		Target:      x.Path,
		RowsWritten: rows,
		Message:     fmt.Sprintf("wrote %d attempt rows to %s", rows, x.Path),
	}
}

func (x *XLSXSheetSync) fail(err error) SheetSyncResult {
	x.Log.Error("sheet export failed", "path", x.Path, "error", err)
	return SheetSyncResult{Status: "error", Target: x.Path, Message: err.Error()}
}
