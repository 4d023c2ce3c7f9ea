package bridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/Grabemic/Screenshot-wizard/internal/detector"
	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/metrics"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
)

// Processor handles one input. Implementations report failure through the
// return value and must not panic.
type Processor interface {
	ProcessOne(ctx context.Context, path string, opts domain.ProcessingOptions) bool
}

// WorkerConfig controls what the worker does with detections.
type WorkerConfig struct {
	// AutoProcess submits every detected file with Options.
	AutoProcess bool
	Options     domain.ProcessingOptions
}

type job struct {
	path string
	opts domain.ProcessingOptions
}

// Worker owns the detector and the processor. Detections and results are
// published on unbounded queues for the foreground; inputs are processed one
// at a time in submission order.
type Worker struct {
	cfg      WorkerConfig
	proc     Processor
	detector *detector.Detector
	metrics  *metrics.Collector
	log      *observability.Logger

	detections *Queue[domain.DetectionEvent]
	results    *Queue[domain.ResultEvent]
	jobs       *Queue[job]
	wake       chan struct{}
	running    atomic.Bool
}

// NewWorker creates a worker and its detector. m may be nil.
func NewWorker(cfg WorkerConfig, detCfg detector.Config, proc Processor, m *metrics.Collector, log *observability.Logger) *Worker {
	if log == nil {
		log = observability.Nop()
	}
	cfg.Options = cfg.Options.WithDefaults()
	w := &Worker{
		cfg:        cfg,
		proc:       proc,
		metrics:    m,
		log:        log.WithComponent("worker"),
		detections: NewQueue[domain.DetectionEvent](),
		results:    NewQueue[domain.ResultEvent](),
		jobs:       NewQueue[job](),
		wake:       make(chan struct{}, 1),
	}
	w.detector = detector.New(detCfg, w.onDetected, log)
	return w
}

// Detections is the detection queue drained by the foreground.
func (w *Worker) Detections() *Queue[domain.DetectionEvent] { return w.detections }

// Results is the result queue drained by the foreground.
func (w *Worker) Results() *Queue[domain.ResultEvent] { return w.results }

// Detector returns the detector owned by the worker.
func (w *Worker) Detector() *detector.Detector { return w.detector }

// Start begins watching dir.
func (w *Worker) Start(dir string) error { return w.detector.Start(dir) }

// Stop halts detection. Work already submitted is unaffected.
func (w *Worker) Stop() { w.detector.Stop() }

// SetWatchedDirectory hot-swaps the watched directory.
func (w *Worker) SetWatchedDirectory(dir string) error { return w.detector.SetWatchedDirectory(dir) }

// ProcessExisting dispatches the files already waiting in the watched directory.
func (w *Worker) ProcessExisting() (int, error) { return w.detector.ProcessExisting() }

// Queued returns the number of submissions not yet started.
func (w *Worker) Queued() int { return w.jobs.Len() }

// Submit queues path for processing with opts. Relative paths are made
// absolute so results match the detector's pending markers.
func (w *Worker) Submit(path string, opts domain.ProcessingOptions) error {
	if _, err := paths.Eligible(path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	w.enqueue(job{path: abs, opts: opts.WithDefaults()})
	return nil
}

// Run processes submissions until ctx is cancelled. Cancellation stops
// further submissions from starting but lets the current one finish, and
// its result is still published.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	defer w.running.Store(false)

	w.log.Info().Msg("worker started")
	defer w.log.Info().Int("abandoned", w.jobs.Len()).Msg("worker stopped")

	for {
		for {
			if ctx.Err() != nil {
				return nil
			}
			j, ok := w.jobs.TryPop()
			if !ok {
				break
			}
			w.process(ctx, j)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	ok := w.proc.ProcessOne(context.WithoutCancel(ctx), j.path, j.opts)
	w.results.Push(domain.ResultEvent{
		Origin:  filepath.Base(j.path),
		Path:    j.path,
		Success: ok,
	})
}

func (w *Worker) onDetected(ev domain.DetectionEvent) {
	w.metrics.Detected(string(ev.Path.Kind))
	w.detections.Push(ev)
	if w.cfg.AutoProcess {
		w.enqueue(job{path: ev.Path.Path, opts: w.cfg.Options})
	}
}

func (w *Worker) enqueue(j job) {
	w.jobs.Push(j)
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
