// Package pipeline sequences analysis, output generation and archival for
// each input and aggregates results over batches.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/ledger"
	"github.com/Grabemic/Screenshot-wizard/internal/metrics"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
	"github.com/Grabemic/Screenshot-wizard/internal/router"
)

// Config holds coordinator settings.
type Config struct {
	OutputDir     string
	ArchiveDir    string
	MaxCategories int
	// TempDir holds rendered document pages; empty uses the system default.
	TempDir string
}

// History stores one entry per processed input.
type History interface {
	Record(ctx context.Context, r ledger.Run) (int64, error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHistory records every processed input.
func WithHistory(h History) Option {
	return func(c *Coordinator) { c.history = h }
}

// WithMetrics counts processed inputs and pages.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithProgress calls fn after each input of a batch.
func WithProgress(fn func(path string, ok bool)) Option {
	return func(c *Coordinator) { c.progress = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator processes inputs one at a time.
type Coordinator struct {
	cfg      Config
	analyzer domain.Analyzer
	router   *router.Router
	writer   domain.OutputWriter
	history  History
	metrics  *metrics.Collector
	progress func(path string, ok bool)
	log      *observability.Logger
	now      func() time.Time
}

// New creates a coordinator.
func New(cfg Config, analyzer domain.Analyzer, pages domain.PageSource, writer domain.OutputWriter, log *observability.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = observability.Nop()
	}
	if cfg.MaxCategories <= 0 {
		cfg.MaxCategories = 2
	}
	c := &Coordinator{
		cfg:      cfg,
		analyzer: analyzer,
		router:   router.New(pages, cfg.TempDir, log),
		writer:   writer,
		log:      log.WithComponent("pipeline"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchResult summarizes ProcessBatch.
type BatchResult struct {
	Succeeded int
	Total     int
	// Skipped counts inputs never attempted because ctx was cancelled.
	Skipped int
	Failed  []string
}

// ProcessOne analyzes path, writes one output per page unit and archives the
// original. It reports failure instead of returning errors or panicking, and
// never archives an input that failed.
func (c *Coordinator) ProcessOne(ctx context.Context, path string, opts domain.ProcessingOptions) bool {
	run := ledger.Run{
		RunID:     uuid.NewString(),
		Origin:    filepath.Base(path),
		InputPath: path,
		StartedAt: c.now(),
	}
	log := c.log.With().Str("run_id", run.RunID).Str("input", run.Origin).Logger()
	log.Info().Msg("processing")

	records, archived, err := c.safeProcess(ctx, path, opts.WithDefaults())

	run.FinishedAt = c.now()
	run.Success = err == nil
	run.ArchivePath = archived
	for _, r := range records {
		run.Outputs = append(run.Outputs, r.OutputPath)
	}

	if err != nil {
		run.Error = err.Error()
		log.Error().Err(err).Int("outputs_kept", len(records)).Msg("processing failed")
	} else {
		log.Info().Int("outputs", len(records)).Str("archived", archived).Dur("duration", run.Duration()).Msg("processing complete")
	}

	c.metrics.InputProcessed(run.Success, run.Duration())
	if c.history != nil {
		if _, herr := c.history.Record(context.WithoutCancel(ctx), run); herr != nil {
			log.Warn().Err(herr).Msg("failed to record history")
		}
	}
	return run.Success
}

// ProcessBatch processes paths strictly in order. One failure does not stop the
// batch. Cancelling ctx stops it before the next input; the current one finishes.
func (c *Coordinator) ProcessBatch(ctx context.Context, inputs []string, opts domain.ProcessingOptions) BatchResult {
	res := BatchResult{Total: len(inputs)}
	for i, p := range inputs {
		if ctx.Err() != nil {
			res.Skipped = len(inputs) - i
			break
		}
		ok := c.ProcessOne(context.WithoutCancel(ctx), p, opts)
		if ok {
			res.Succeeded++
		} else {
			res.Failed = append(res.Failed, p)
		}
		if c.progress != nil {
			c.progress(p, ok)
		}
	}
	c.log.Info().Int("succeeded", res.Succeeded).Int("total", res.Total).Int("skipped", res.Skipped).Msg("batch complete")
	return res
}

// ListPending returns the eligible files waiting in dir, oldest first.
func (c *Coordinator) ListPending(dir string) ([]string, error) {
	return paths.ListEligible(dir)
}

func (c *Coordinator) safeProcess(ctx context.Context, path string, opts domain.ProcessingOptions) (records []domain.OutputRecord, archived string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("stack", string(debug.Stack())).Msg("recovered panic")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.process(ctx, path, opts)
}

func (c *Coordinator) process(ctx context.Context, path string, opts domain.ProcessingOptions) ([]domain.OutputRecord, string, error) {
	src, err := paths.Eligible(path)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", domain.FilesystemError("input not readable", err)
	}
	if info.IsDir() {
		return nil, "", domain.ValidationError(path+" is a directory", nil)
	}

	records, err := c.router.Run(ctx, src, opts, func(ctx context.Context, unit domain.PageUnit) (domain.OutputRecord, error) {
		return c.processUnit(ctx, path, unit)
	})
	if err != nil {
		return records, "", err
	}

	archived, err := paths.Archive(path, c.cfg.ArchiveDir, c.now())
	if err != nil {
		return records, "", fmt.Errorf("archive: %w", err)
	}
	c.log.Info().Str("input", filepath.Base(path)).Str("archived", archived).Msg("original archived")
	return records, archived, nil
}

func (c *Coordinator) processUnit(ctx context.Context, input string, unit domain.PageUnit) (domain.OutputRecord, error) {
	outcome, err := c.analyzer.AnalyzeFile(ctx, unit.ImagePath, unit.Options, c.cfg.MaxCategories)
	if err != nil {
		return domain.OutputRecord{}, fmt.Errorf("analyze: %w", err)
	}
	c.metrics.PageAnalyzed()

	outcome.SourceFile = unit.Label
	if outcome.ContentType == domain.ContentGraphic {
		outcome.SourceImage = unit.ImagePath
	} else {
		outcome.SourceImage = ""
	}

	now := c.now()
	dest := paths.UniquePath(c.cfg.OutputDir, unit.BaseName+c.writer.Extension(), now)
	written, err := c.writer.Render(outcome, dest, now, unit.Options.Thumbnail)
	if err != nil {
		return domain.OutputRecord{}, fmt.Errorf("render output: %w", err)
	}

	c.log.Info().Str("label", unit.Label).Str("output", written).Strs("categories", outcome.Categories).Msg("output written")
	return domain.OutputRecord{InputPath: input, OutputPath: written, Label: unit.Label}, nil
}
