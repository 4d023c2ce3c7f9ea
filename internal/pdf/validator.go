// Package pdf exposes the pages of PDF inputs as raster images.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
)

// maxSize is the size above which a large-document warning is logged.
const maxSize = 100 * 1024 * 1024 // 100MB

// Validator provides input validation for PDF files
type Validator struct {
	log *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(log *observability.Logger) *Validator {
	if log == nil {
		log = observability.Nop()
	}
	return &Validator{log: log}
}

// ValidateDocumentPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidateDocumentPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	if info.Size() > maxSize {
		v.log.Warn().
			Str("path", path).
			Int("size_mb", int(info.Size()/(1024*1024))).
			Msg("PDF file is very large, processing may take a while")
	}

	return nil
}

// ValidateDPI validates the rendering resolution
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < 36 || dpi > 600 {
		return domain.ValidationError(fmt.Sprintf("dpi must be between 36 and 600, got %d", dpi), nil)
	}
	return nil
}
