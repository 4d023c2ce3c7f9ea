package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
)

var processFlags processingFlags

var processCmd = &cobra.Command{
	Use:   "process FILE",
	Short: "Process a single image or PDF",
	Long:  "Analyze one PNG, JPEG or PDF file, write its output PDF(s) and archive the original.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	processFlags.register(processCmd)
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if !paths.IsEligible(path) {
		return errors.New("file must be a PNG, JPEG or PDF")
	}

	opts, err := processFlags.options()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ui.Info("Processing: %s", path)
	spinner := ui.NewSpinner("Analyzing...")
	spinner.Start()
	// Ctrl+C lets the current file finish.
	ok := a.coord.ProcessOne(context.WithoutCancel(ctx), path, opts)
	spinner.Stop()

	if !ok {
		ui.Error("Processing failed. Check logs for details.")
		return errors.New("processing failed")
	}
	ui.Success("Processing complete!")
	return nil
}
