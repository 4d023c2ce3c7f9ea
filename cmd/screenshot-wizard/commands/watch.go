package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
	"github.com/Grabemic/Screenshot-wizard/internal/bridge"
	"github.com/Grabemic/Screenshot-wizard/internal/detector"
	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

var (
	watchFlags           processingFlags
	watchProcessExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the input folder and process new files",
	Long: `Watch the input folder for new PNG, JPEG and PDF files and process each one
as it arrives. Press Ctrl+C to stop; a file already being processed is finished first.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().BoolVar(&watchProcessExisting, "process-existing", false, "process files already in the input folder before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := watchFlags.options()
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

	ui.Banner("Screenshot Wizard - Folder Monitor",
		"Input folder:   "+cfg.InputDir(),
		"Output folder:  "+cfg.OutputDir(),
		"Archive folder: "+cfg.ArchiveDir(),
	)

	worker := bridge.NewWorker(
		bridge.WorkerConfig{AutoProcess: true, Options: opts},
		detector.Config{
			Dir:      cfg.InputDir(),
			Debounce: cfg.Debounce(),
			Settle:   cfg.Processing.SettleDelay,
		},
		a.coord, a.metrics, log,
	)

	fg := bridge.NewForeground(worker, log)
	fg.OnDetected = func(ev domain.DetectionEvent) {
		ui.Info("Detected: %s", filepath.Base(ev.Path.Path))
	}
	fg.OnResult = func(res domain.ResultEvent) {
		if res.Success {
			ui.Success("Processed: %s", res.Origin)
		} else {
			ui.Error("Failed: %s (left in input folder)", res.Origin)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("worker exited")
		}
	}()

	fgCtx, fgCancel := context.WithCancel(context.Background())
	fgDone := make(chan struct{})
	go func() {
		defer close(fgDone)
		fg.Run(fgCtx, cfg.PollInterval())
	}()

	if watchProcessExisting {
		ui.Info("Processing existing files...")
		n, err := worker.ProcessExisting()
		if err != nil {
			ui.Warning("Could not scan input folder: %v", err)
		} else {
			ui.Info("Queued %d existing file(s).", n)
		}
	}

	if err := worker.Start(cfg.InputDir()); err != nil {
		stop()
		<-workerDone
		fgCancel()
		<-fgDone
		return err
	}
	ui.Info("Watching for new files... (Press Ctrl+C to stop)")

	interval := time.Duration(cfg.Processing.PollingInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-heartbeat.C:
			log.Debug().Int("queued", worker.Queued()).Strs("pending", fg.Pending()).Msg("watching")
		}
	}

	ui.Newline()
	ui.Info("Stopping...")
	worker.Stop()
	<-workerDone
	fgCancel()
	<-fgDone
	ui.Success("Stopped.")
	return nil
}
