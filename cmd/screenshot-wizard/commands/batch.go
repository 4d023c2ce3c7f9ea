package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
	"github.com/Grabemic/Screenshot-wizard/internal/pipeline"
)

var batchFlags processingFlags

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process all pending files in the input folder",
	Long:  "Process every eligible file waiting in the input folder, oldest first.",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

func init() {
	batchFlags.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	opts, err := batchFlags.options()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var bar *ui.ProgressBar
	a, err := newApp(cfg, log, pipeline.WithProgress(func(path string, ok bool) {
		if bar != nil {
			bar.Add(filepath.Base(path))
		}
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.coord.ListPending(cfg.InputDir())
	if err != nil {
		return fmt.Errorf("list input folder: %w", err)
	}
	if len(pending) == 0 {
		ui.Info("No eligible files found in input folder.")
		return nil
	}
	ui.Info("Found %d file(s) to process.", len(pending))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar = ui.NewProgressBar(len(pending), "processing")
	res := a.coord.ProcessBatch(ctx, pending, opts)
	bar.Finish()

	for _, p := range res.Failed {
		ui.Error("Failed: %s", filepath.Base(p))
	}
	if res.Skipped > 0 {
		ui.Warning("Interrupted: %d file(s) left in the input folder.", res.Skipped)
	}
	ui.Message("Processed %d/%d files successfully.", res.Succeeded, res.Total)
	return nil
}
