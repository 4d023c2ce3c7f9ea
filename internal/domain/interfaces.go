package domain

import (
	"context"
	"time"
)

// Analyzer sends one image to the content-understanding service.
type Analyzer interface {
	// AnalyzeFile analyzes the image at path and returns an outcome whose
	// categories never exceed maxCategories.
	AnalyzeFile(ctx context.Context, path string, opts ProcessingOptions, maxCategories int) (AnalysisOutcome, error)
}

// PageSource exposes the pages of a paged document.
type PageSource interface {
	PageCount(documentPath string) (int, error)
	// RenderPage rasterizes page index into outputPath and returns it.
	// It fails with ErrPageOutOfRange when index is not in [0, PageCount).
	RenderPage(documentPath string, index int, outputPath string) (string, error)
}

// OutputWriter renders an analysis outcome into an output document.
type OutputWriter interface {
	Render(outcome AnalysisOutcome, destination string, timestamp time.Time, thumbnail ThumbnailSize) (string, error)
	// Extension is the output format's file extension, including the dot.
	Extension() string
}
