// Package render writes analysis outcomes as PDF documents.
package render

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
)

// Config holds page layout settings.
type Config struct {
	PageSize   string // A4 or letter
	FontFamily string
	FontSize   float64
	Margin     float64 // points
}

// DefaultConfig returns A4 Helvetica 11pt with one inch margins.
func DefaultConfig() Config {
	return Config{
		PageSize:   "A4",
		FontFamily: "Helvetica",
		FontSize:   11,
		Margin:     72,
	}
}

// Writer renders outcomes to PDF. It implements domain.OutputWriter.
type Writer struct {
	cfg Config
	log *observability.Logger
}

// NewWriter creates a PDF writer.
func NewWriter(cfg Config, log *observability.Logger) *Writer {
	d := DefaultConfig()
	if cfg.PageSize == "" {
		cfg.PageSize = d.PageSize
	}
	if cfg.FontFamily == "" {
		cfg.FontFamily = d.FontFamily
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = d.FontSize
	}
	if cfg.Margin <= 0 {
		cfg.Margin = d.Margin
	}
	if log == nil {
		log = observability.Nop()
	}
	return &Writer{cfg: cfg, log: log.WithComponent("render")}
}

// Extension returns ".pdf".
func (w *Writer) Extension() string { return ".pdf" }

// ThumbnailFraction is the share of the content width used by a thumbnail.
func ThumbnailFraction(size domain.ThumbnailSize) float64 {
	switch size {
	case domain.ThumbnailSmall:
		return 0.25
	case domain.ThumbnailFull:
		return 1.0
	default:
		return 0.5
	}
}

var (
	colorHeading = [3]int{0x2c, 0x3e, 0x50}
	colorBanner  = [3]int{0xec, 0xf0, 0xf1}
	colorRule    = [3]int{0xbd, 0xc3, 0xc7}
	colorFooter  = [3]int{0x7f, 0x8c, 0x8d}
)

// Render writes outcome to destination and returns the written path.
// The file appears under its final name only once complete.
func (w *Writer) Render(outcome domain.AnalysisOutcome, destination string, timestamp time.Time, thumbnail domain.ThumbnailSize) (string, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	doc := w.build(outcome, timestamp, thumbnail)
	if err := doc.Error(); err != nil {
		return "", domain.RenderingError("build PDF", err)
	}

	if err := writeAtomic(destination, doc); err != nil {
		return "", err
	}

	w.log.Info().Str("output", destination).Strs("categories", outcome.Categories).Msg("PDF generated")
	return destination, nil
}

func (w *Writer) build(outcome domain.AnalysisOutcome, timestamp time.Time, thumbnail domain.ThumbnailSize) *fpdf.Fpdf {
	size := "A4"
	if strings.EqualFold(w.cfg.PageSize, "letter") {
		size = "Letter"
	}

	doc := fpdf.New("P", "pt", size, "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	m := w.cfg.Margin
	doc.SetMargins(m, m, m)
	doc.SetAutoPageBreak(true, m)
	doc.SetTitle(outcome.SourceFile, true)
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	width := pageW - 2*m
	family := w.cfg.FontFamily

	// category banner
	doc.SetFont(family, "B", 12)
	doc.SetFillColor(colorBanner[0], colorBanner[1], colorBanner[2])
	doc.SetTextColor(colorHeading[0], colorHeading[1], colorHeading[2])
	doc.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	doc.SetCellMargin(12)
	doc.CellFormat(width, 36, tr("CATEGORIES: "+strings.Join(outcome.Categories, " | ")), "1", 1, "L", true, 0, "")
	doc.SetCellMargin(0)
	doc.Ln(20)
	w.rule(doc, width)
	doc.Ln(14)

	// body
	doc.SetTextColor(0, 0, 0)
	doc.SetFont(family, "", w.cfg.FontSize)
	lineHeight := w.cfg.FontSize * 1.4
	if outcome.ContentType == domain.ContentGraphic {
		w.thumbnail(doc, outcome.SourceImage, width*ThumbnailFraction(thumbnail))
		body := outcome.Description
		if body == "" {
			body = outcome.Text
		}
		doc.MultiCell(width, lineHeight, tr(body), "", "L", false)
	} else {
		doc.MultiCell(width, lineHeight, tr(outcome.Text), "", "L", false)
	}

	// footer
	doc.Ln(36)
	w.rule(doc, width)
	doc.Ln(8)
	doc.SetFont(family, "", 9)
	doc.SetTextColor(colorFooter[0], colorFooter[1], colorFooter[2])
	footer := fmt.Sprintf("Source: %s\nProcessed: %s", outcome.SourceFile, timestamp.Format("2006-01-02 15:04:05"))
	doc.MultiCell(width, 12, tr(footer), "", "L", false)

	return doc
}

func (w *Writer) rule(doc *fpdf.Fpdf, width float64) {
	left, _, _, _ := doc.GetMargins()
	y := doc.GetY()
	doc.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	doc.SetLineWidth(1)
	doc.Line(left, y, left+width, y)
}

// thumbnail embeds the source image scaled to targetWidth points.
// A missing or unreadable image is skipped.
func (w *Writer) thumbnail(doc *fpdf.Fpdf, source string, targetWidth float64) {
	if source == "" {
		return
	}
	img, err := imaging.Open(source)
	if err != nil {
		w.log.Debug().Str("source", source).Err(err).Msg("thumbnail skipped")
		return
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	targetHeight := targetWidth * float64(b.Dy()) / float64(b.Dx())

	_, pageH := doc.GetPageSize()
	_, top, _, bottom := doc.GetMargins()
	if maxH := pageH - top - bottom - 120; targetHeight > maxH {
		targetWidth *= maxH / targetHeight
		targetHeight = maxH
	}

	// Two pixels per point keeps thumbnails sharp without embedding huge images.
	var scaled image.Image = img
	if px := int(targetWidth * 2); px < b.Dx() {
		scaled = imaging.Resize(img, px, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
		w.log.Debug().Str("source", source).Err(err).Msg("thumbnail skipped")
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	name := "thumb-" + filepath.Base(source)
	doc.RegisterImageOptionsReader(name, opts, &buf)
	left, _, _, _ := doc.GetMargins()
	doc.ImageOptions(name, left, doc.GetY(), targetWidth, targetHeight, true, opts, 0, "")
	doc.Ln(12)
}

// writeAtomic writes doc to a temp file next to dest and renames it into place.
func writeAtomic(dest string, doc *fpdf.Fpdf) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.FilesystemError("create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.pdf")
	if err != nil {
		return domain.FilesystemError("create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := doc.Output(tmp); err != nil {
		cleanup()
		return domain.RenderingError("write PDF", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return domain.FilesystemError("sync PDF", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return domain.FilesystemError("close PDF", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return domain.FilesystemError("chmod PDF", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return domain.FilesystemError("rename PDF", err)
	}
	_ = syncDir(dir)
	return nil
}

// syncDir best-effort fsyncs dir to persist the rename.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
