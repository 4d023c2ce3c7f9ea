package ledger

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

const historySheet = "History"

// ExportXLSX writes runs to an Excel workbook at path.
func ExportXLSX(path string, runs []Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(historySheet); err != nil {
		return domain.FilesystemError("create sheet", err)
	}
	_ = f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex(historySheet)
	f.SetActiveSheet(idx)

	headers := []string{
		"Finished",
		"Origin",
		"Result",
		"Outputs",
		"Archived As",
		"Duration (s)",
		"Error",
		"Run ID",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(historySheet, cell, h)
	}

	for i, r := range runs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(historySheet, cell, v)
		}

		result := "failed"
		if r.Success {
			result = "ok"
		}
		names := make([]string, len(r.Outputs))
		for j, o := range r.Outputs {
			names[j] = filepath.Base(o)
		}
		archived := ""
		if r.ArchivePath != "" {
			archived = filepath.Base(r.ArchivePath)
		}

		write(1, r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
		write(2, r.Origin)
		write(3, result)
		write(4, strings.Join(names, ", "))
		write(5, archived)
		write(6, fmt.Sprintf("%.1f", r.Duration().Seconds()))
		write(7, r.Error)
		write(8, r.RunID)
	}

	_ = f.SetColWidth(historySheet, "A", "A", 20)
	_ = f.SetColWidth(historySheet, "B", "B", 32)
	_ = f.SetColWidth(historySheet, "D", "E", 40)
	_ = f.SetColWidth(historySheet, "G", "G", 50)

	if err := f.SaveAs(path); err != nil {
		return domain.FilesystemError("save workbook", err)
	}
	return nil
}
