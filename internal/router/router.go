// Package router turns one eligible input into the ordered page units that
// are analyzed and rendered, and drives a per-unit step over them.
package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
)

// UnitFunc processes one resolved unit and reports the artifact it produced.
type UnitFunc func(ctx context.Context, unit domain.PageUnit) (domain.OutputRecord, error)

// Router expands inputs into page units.
type Router struct {
	pages    domain.PageSource
	tempRoot string
	log      *observability.Logger
}

// New creates a router. Rendered pages go under tempRoot, or the system
// temp directory when tempRoot is empty.
func New(pages domain.PageSource, tempRoot string, log *observability.Logger) *Router {
	if log == nil {
		log = observability.Nop()
	}
	return &Router{pages: pages, tempRoot: tempRoot, log: log.WithComponent("router")}
}

// Expansion is the ordered unit list for one input. Document pages are
// rendered on demand by Resolve and removed by Cleanup.
type Expansion struct {
	Source domain.EligiblePath
	Units  []domain.PageUnit

	router  *Router
	tempDir string
}

// Expand builds the units for src. Images yield one unit using the file
// itself. Documents yield one unit per page, or a single unit for page one
// filed under the document's name in whole-document mode.
func (r *Router) Expand(ctx context.Context, src domain.EligiblePath, opts domain.ProcessingOptions) (*Expansion, error) {
	opts = opts.WithDefaults()
	name := filepath.Base(src.Path)
	stem := paths.Stem(src.Path)
	exp := &Expansion{Source: src, router: r}

	switch src.Kind {
	case domain.KindImage:
		exp.Units = []domain.PageUnit{{
			ImagePath: src.Path,
			Label:     name,
			BaseName:  stem,
			Options:   opts,
		}}
		return exp, nil

	case domain.KindPagedDocument:
	default:
		return nil, fmt.Errorf("%s: %w", name, domain.ErrUnsupportedFile)
	}

	if opts.Mode == domain.ModeWholeDocument {
		exp.Units = []domain.PageUnit{{
			Label:      name,
			BaseName:   stem,
			PageNumber: 1,
			Options:    opts,
			Temporary:  true,
		}}
	} else {
		count, err := r.pages.PageCount(src.Path)
		if err != nil {
			return nil, fmt.Errorf("count pages of %s: %w", name, err)
		}
		if count == 0 {
			return nil, domain.RenderingError(name+" has no pages", nil)
		}
		exp.Units = make([]domain.PageUnit, 0, count)
		for n := 1; n <= count; n++ {
			exp.Units = append(exp.Units, domain.PageUnit{
				Label:      fmt.Sprintf("%s (page %d)", name, n),
				BaseName:   fmt.Sprintf("%s_page_%d", stem, n),
				PageNumber: n,
				Options:    opts,
				Temporary:  true,
			})
		}
	}

	root := r.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	exp.tempDir = filepath.Join(root, "screenshot-wizard-"+uuid.NewString())
	if err := os.MkdirAll(exp.tempDir, 0o700); err != nil {
		return nil, domain.FilesystemError("create render directory", err)
	}

	r.log.Debug().Str("source", name).Int("units", len(exp.Units)).Str("mode", string(opts.Mode)).Msg("document expanded")
	return exp, nil
}

// Resolve returns unit i with its image rendered, rendering it if needed.
func (e *Expansion) Resolve(ctx context.Context, i int) (domain.PageUnit, error) {
	if i < 0 || i >= len(e.Units) {
		return domain.PageUnit{}, fmt.Errorf("unit %d: %w", i, domain.ErrPageOutOfRange)
	}
	if err := ctx.Err(); err != nil {
		return domain.PageUnit{}, err
	}

	u := e.Units[i]
	if u.ImagePath != "" {
		return u, nil
	}

	out := filepath.Join(e.tempDir, u.BaseName+".png")
	img, err := e.router.pages.RenderPage(e.Source.Path, u.PageNumber-1, out)
	if err != nil {
		return domain.PageUnit{}, fmt.Errorf("render %s: %w", u.Label, err)
	}
	u.ImagePath = img
	e.Units[i] = u
	return u, nil
}

// Cleanup removes rendered pages. Safe to call more than once.
func (e *Expansion) Cleanup() error {
	if e.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(e.tempDir)
	e.tempDir = ""
	if err != nil {
		return domain.FilesystemError("remove rendered pages", err)
	}
	return nil
}

// Run expands src and applies fn to each unit in order. The first failing
// unit stops the run; records for units already processed are returned with
// the error. Rendered pages are removed before Run returns.
func (r *Router) Run(ctx context.Context, src domain.EligiblePath, opts domain.ProcessingOptions, fn UnitFunc) ([]domain.OutputRecord, error) {
	exp, err := r.Expand(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := exp.Cleanup(); err != nil {
			r.log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	records := make([]domain.OutputRecord, 0, len(exp.Units))
	for i := range exp.Units {
		unit, err := exp.Resolve(ctx, i)
		if err != nil {
			return records, err
		}
		rec, err := fn(ctx, unit)
		if err != nil {
			return records, fmt.Errorf("%s: %w", unit.Label, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
