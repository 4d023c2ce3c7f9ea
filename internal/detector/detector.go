// Package detector watches one directory for new eligible files.
//
// Each qualifying filesystem event is debounced per absolute path and then
// held for a short settle delay, so the producing process can finish writing
// before the file is opened. Settle delays run on their own timers and never
// hold up detection of other files.
package detector

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
)

// Handler receives dispatched files. It is called from timer goroutines and
// from ProcessExisting, so it must be safe for concurrent use.
type Handler func(domain.DetectionEvent)

// Config holds detector timing.
type Config struct {
	Dir      string
	Debounce time.Duration
	Settle   time.Duration
}

// DefaultConfig returns a one second debounce and a half second settle delay.
func DefaultConfig() Config {
	return Config{
		Debounce: time.Second,
		Settle:   500 * time.Millisecond,
	}
}

// Detector observes a single directory, non-recursively.
type Detector struct {
	cfg     Config
	handler Handler
	log     *observability.Logger
	now     func() time.Time

	mu      sync.Mutex // guards dir, watcher and current
	dir     string
	watcher *fsnotify.Watcher
	current *run

	lastMu sync.Mutex
	last   map[string]time.Time
}

// New creates a stopped detector.
func New(cfg Config, handler Handler, log *observability.Logger) *Detector {
	if log == nil {
		log = observability.Nop()
	}
	return &Detector{
		cfg:     cfg,
		handler: handler,
		log:     log.WithComponent("detector"),
		now:     time.Now,
		dir:     cfg.Dir,
		last:    make(map[string]time.Time),
	}
}

// Start begins observing dir, creating it if needed. Starting on the
// directory already being watched is a no-op; any other directory restarts.
func (d *Detector) Start(dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startLocked(dir)
}

// Stop halts observation and cancels pending settle timers. Safe when not running.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// SetWatchedDirectory changes the watched directory, restarting if running.
func (d *Detector) SetWatchedDirectory(dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		d.dir = dir
		return nil
	}
	d.stopLocked()
	return d.startLocked(dir)
}

// Running reports whether the detector is observing a directory.
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

// Dir returns the watched (or next to be watched) directory.
func (d *Detector) Dir() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

// ProcessExisting dispatches every eligible file already present, oldest
// modification first, and returns how many were dispatched. It does not
// depend on Start and errors reading the directory are returned.
func (d *Detector) ProcessExisting() (int, error) {
	dir, err := filepath.Abs(d.Dir())
	if err != nil {
		return 0, domain.DetectionError("resolve watched directory", err)
	}

	files, err := paths.ListEligible(dir)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		kind, _ := paths.Classify(f)
		now := d.now()
		d.lastMu.Lock()
		d.last[f] = now
		d.lastMu.Unlock()

		d.log.Info().Str("path", f).Msg("existing file queued")
		d.handler(domain.DetectionEvent{
			Path:       domain.EligiblePath{Path: f, Kind: kind},
			DetectedAt: now,
		})
	}
	return len(files), nil
}

func (d *Detector) startLocked(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.DetectionError("resolve watched directory", err)
	}
	if d.current != nil {
		if abs == d.dir {
			return nil
		}
		d.stopLocked()
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return domain.FilesystemError("create watched directory", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.DetectionError("create watcher", err)
	}
	if err := w.Add(abs); err != nil {
		_ = w.Close()
		return domain.DetectionError("watch "+abs, err)
	}

	r := newRun()
	d.dir = abs
	d.watcher = w
	d.current = r

	r.loopWG.Add(1)
	go d.loop(w, r)

	d.log.Info().Str("dir", abs).Msg("watching directory")
	return nil
}

func (d *Detector) stopLocked() {
	if d.current == nil {
		return
	}
	r := d.current
	r.stop()
	if err := d.watcher.Close(); err != nil {
		d.log.Warn().Err(err).Msg("close watcher")
	}
	r.loopWG.Wait()

	d.current = nil
	d.watcher = nil
	d.log.Info().Str("dir", d.dir).Msg("stopped watching")
}

func (d *Detector) loop(w *fsnotify.Watcher, r *run) {
	defer r.loopWG.Done()
	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Moves into the directory are reported as Create as well.
			if ev.Op.Has(fsnotify.Create) {
				d.handle(r, ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Error().Err(err).Msg("watcher error")
		}
	}
}

// handle applies the eligibility and debounce rules to one event and
// schedules its dispatch after the settle delay.
func (d *Detector) handle(r *run, name string) {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return
	}
	kind, ok := paths.Classify(name)
	if !ok {
		return
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return
	}

	now := d.now()
	if !d.claim(abs, now) {
		d.log.Debug().Str("path", abs).Msg("debounced")
		return
	}

	d.log.Info().Str("path", abs).Str("kind", string(kind)).Msg("new file detected")
	ev := domain.DetectionEvent{
		Path:       domain.EligiblePath{Path: abs, Kind: kind},
		DetectedAt: now,
	}
	r.after(d.cfg.Settle, func() {
		d.log.Debug().Str("path", abs).Msg("settled, dispatching")
		d.handler(ev)
	})
}

// claim records a dispatch of path at now unless one happened within the window.
func (d *Detector) claim(path string, now time.Time) bool {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()

	if prev, ok := d.last[path]; ok && now.Sub(prev) <= d.cfg.Debounce {
		return false
	}
	d.last[path] = now

	if len(d.last) > 1024 {
		for p, t := range d.last {
			if now.Sub(t) > d.cfg.Debounce {
				delete(d.last, p)
			}
		}
	}
	return true
}

// run is one Start..Stop lifetime.
type run struct {
	done   chan struct{}
	loopWG sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	timers  map[*time.Timer]struct{}
	// inflight counts callbacks that passed the stopped check.
	inflight sync.WaitGroup
}

func newRun() *run {
	return &run{
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
}

// after runs fn once delay elapses, unless the run has been stopped by then.
// fn must not call stop.
func (r *run) after(delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, t)
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.inflight.Add(1)
		r.mu.Unlock()
		defer r.inflight.Done()
		fn()
	})
	r.timers[t] = struct{}{}
}

// stop cancels pending timers and waits for callbacks already running, so
// no dispatch happens once it returns.
func (r *run) stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.done)
		for t := range r.timers {
			t.Stop()
		}
		r.timers = nil
	}
	r.mu.Unlock()
	r.inflight.Wait()
}
