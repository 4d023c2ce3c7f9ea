package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
)

// DefaultDPI is the rasterization resolution for document pages.
const DefaultDPI = 200

// nativeDPI is the point space of a PDF page.
const nativeDPI = 72

// Converter rasterizes PDF pages using go-fitz. It implements domain.PageSource.
// Each call opens the document on its own, so a Converter is safe for concurrent use.
type Converter struct {
	dpi       float64
	validator *Validator
	log       *observability.Logger
}

// NewConverter creates a new PDF converter rendering at dpi.
func NewConverter(dpi int, log *observability.Logger) *Converter {
	if log == nil {
		log = observability.Nop()
	}
	log = log.WithComponent("pdf")
	validator := NewValidator(log)
	if err := validator.ValidateDPI(dpi); err != nil {
		log.Warn().Err(err).Int("dpi", DefaultDPI).Msg("using default dpi")
		dpi = DefaultDPI
	}
	return &Converter{
		dpi:       float64(dpi),
		validator: validator,
		log:       log,
	}
}

// Zoom is the scale factor applied to the native 72 DPI page.
func (c *Converter) Zoom() float64 {
	return c.dpi / nativeDPI
}

// PageCount returns the number of pages in the document.
func (c *Converter) PageCount(documentPath string) (int, error) {
	doc, err := c.open(documentPath)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderPage rasterizes page index (0-based) to a PNG at outputPath.
func (c *Converter) RenderPage(documentPath string, index int, outputPath string) (string, error) {
	doc, err := c.open(documentPath)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	if index < 0 || index >= doc.NumPage() {
		return "", fmt.Errorf("page %d of %s (%d pages): %w", index, filepath.Base(documentPath), doc.NumPage(), domain.ErrPageOutOfRange)
	}

	img, err := doc.ImageDPI(index, c.dpi)
	if err != nil {
		return "", domain.RenderingError(fmt.Sprintf("Failed to render page %d", index+1), err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", domain.FilesystemError("create page directory", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return "", domain.FilesystemError(fmt.Sprintf("Failed to create output file for page %d", index+1), err)
	}
	err = imaging.Encode(out, img, imaging.PNG)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return "", domain.RenderingError(fmt.Sprintf("Failed to encode page %d as PNG", index+1), err)
	}

	b := img.Bounds()
	c.log.Debug().
		Str("document", filepath.Base(documentPath)).
		Int("page", index+1).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Msg("page rendered")

	return outputPath, nil
}

func (c *Converter) open(documentPath string) (*fitz.Document, error) {
	if err := c.validator.ValidateDocumentPath(documentPath); err != nil {
		return nil, err
	}
	doc, err := fitz.New(documentPath)
	if err != nil {
		return nil, domain.RenderingError("Failed to open PDF", err)
	}
	return doc, nil
}
