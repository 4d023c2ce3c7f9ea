package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
	"github.com/Grabemic/Screenshot-wizard/internal/ledger"
)

var (
	historyLimit  int
	historyExport string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently processed files",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "also write the entries to an .xlsx workbook")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.LedgerPath()
	if path == "" {
		return errors.New("history is disabled (ledger.path is empty)")
	}

	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(runs) == 0 {
		ui.Info("No files processed yet.")
		return nil
	}

	ui.Table([]string{"Finished", "File", "Result", "Outputs", "Duration"}, historyRows(runs))

	if historyExport != "" {
		if err := ledger.ExportXLSX(historyExport, runs); err != nil {
			return fmt.Errorf("export history: %w", err)
		}
		ui.Newline()
		ui.Success("Exported %d entries to %s", len(runs), historyExport)
	}
	return nil
}

func historyRows(runs []ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed"
			if r.Error != "" {
				result += ": " + truncate(r.Error, 60)
			}
		}
		names := make([]string, len(r.Outputs))
		for i, o := range r.Outputs {
			names[i] = filepath.Base(o)
		}
		rows = append(rows, []string{
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			r.Origin,
			result,
			strings.Join(names, ", "),
			ui.FormatDuration(r.Duration()),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
