package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

// writeSamplePDF creates an A4 document with the given number of pages.
func writeSamplePDF(t *testing.T, pages int) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 24)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Cell(200, 40, fmt.Sprintf("Page %d", i))
	}
	path := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func TestConverter_PageCount(t *testing.T) {
	c := NewConverter(72, nil)
	n, err := c.PageCount(writeSamplePDF(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConverter_RenderPage(t *testing.T) {
	src := writeSamplePDF(t, 2)
	out := filepath.Join(t.TempDir(), "pages", "p1.png")

	c := NewConverter(144, nil)
	assert.Equal(t, 2.0, c.Zoom())

	got, err := c.RenderPage(src, 1, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	// A4 is 595pt wide; at zoom 2 the raster is about twice that.
	assert.InDelta(t, 1190, img.Bounds().Dx(), 4)
}

func TestConverter_RenderPageOutOfRange(t *testing.T) {
	src := writeSamplePDF(t, 1)
	c := NewConverter(72, nil)

	for _, idx := range []int{-1, 1, 7} {
		_, err := c.RenderPage(src, idx, filepath.Join(t.TempDir(), "x.png"))
		assert.True(t, errors.Is(err, domain.ErrPageOutOfRange), "index %d", idx)
	}
}

func TestConverter_InvalidInputs(t *testing.T) {
	c := NewConverter(72, nil)
	dir := t.TempDir()

	_, err := c.PageCount(filepath.Join(dir, "missing.pdf"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	png := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(png, []byte("not a pdf"), 0o644))
	_, err = c.PageCount(png)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0o644))
	_, err = c.PageCount(broken)
	assert.Error(t, err)
}

func TestValidator_ValidateDPI(t *testing.T) {
	v := NewValidator(nil)
	tests := []struct {
		dpi     int
		wantErr bool
	}{
		{72, false},
		{200, false},
		{600, false},
		{0, true},
		{1200, true},
	}
	for _, tt := range tests {
		err := v.ValidateDPI(tt.dpi)
		assert.Equal(t, tt.wantErr, err != nil, "dpi %d", tt.dpi)
	}

	assert.Equal(t, float64(DefaultDPI)/72, NewConverter(0, nil).Zoom())
}
