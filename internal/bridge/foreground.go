package bridge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
)

// DefaultPollInterval is the foreground tick.
const DefaultPollInterval = 250 * time.Millisecond

// Tick is what one Poll drained.
type Tick struct {
	Detected []domain.DetectionEvent
	Results  []domain.ResultEvent
}

// Empty reports whether nothing was drained.
func (t Tick) Empty() bool {
	return len(t.Detected) == 0 && len(t.Results) == 0
}

// Foreground polls the worker's queues without blocking. It keeps the set of
// detected but unprocessed paths for presentation and allows one interactive
// submission in flight at a time.
type Foreground struct {
	worker *Worker
	log    *observability.Logger

	// OnDetected and OnResult are called from Run for each drained item.
	OnDetected func(domain.DetectionEvent)
	OnResult   func(domain.ResultEvent)

	mu       sync.Mutex
	pending  map[string]struct{}
	inFlight bool
}

// NewForeground creates a poller for w.
func NewForeground(w *Worker, log *observability.Logger) *Foreground {
	if log == nil {
		log = observability.Nop()
	}
	return &Foreground{
		worker:  w,
		log:     log.WithComponent("foreground"),
		pending: make(map[string]struct{}),
	}
}

// Poll drains everything currently queued.
func (f *Foreground) Poll() Tick {
	t := Tick{
		Detected: f.worker.Detections().Drain(),
		Results:  f.worker.Results().Drain(),
	}

	f.mu.Lock()
	for _, ev := range t.Detected {
		f.pending[ev.Path.Path] = struct{}{}
	}
	for _, res := range t.Results {
		f.inFlight = false
		delete(f.pending, res.Path)
	}
	f.mu.Unlock()
	return t
}

// Submit hands path to the worker unless a submission is already in flight.
func (f *Foreground) Submit(path string, opts domain.ProcessingOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return domain.ErrBusy
	}
	if err := f.worker.Submit(path, opts); err != nil {
		return err
	}
	f.inFlight = true
	return nil
}

// InFlight reports whether a submission is awaiting its result.
func (f *Foreground) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Pending returns the detected paths with no result yet, sorted.
func (f *Foreground) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.pending))
	for p := range f.pending {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsPending reports whether path was detected and has no result yet.
func (f *Foreground) IsPending(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[path]
	return ok
}

// Run polls every interval until ctx is cancelled, draining once more on exit.
func (f *Foreground) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.dispatch(f.Poll())
			return
		case <-ticker.C:
			f.dispatch(f.Poll())
		}
	}
}

func (f *Foreground) dispatch(t Tick) {
	if t.Empty() {
		return
	}
	f.log.Debug().Int("detected", len(t.Detected)).Int("results", len(t.Results)).Msg("drained queues")
	for _, ev := range t.Detected {
		if f.OnDetected != nil {
			f.OnDetected(ev)
		}
	}
	for _, res := range t.Results {
		if f.OnResult != nil {
			f.OnResult(res)
		}
	}
}
