package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the recognized kind of an eligible input file.
type Kind string

const (
	KindImage         Kind = "image"
	KindPagedDocument Kind = "paged-document"
)

// EligiblePath is a filesystem path plus the kind derived from its extension.
type EligiblePath struct {
	Path string
	Kind Kind
}

// ContentType selects how an input is analyzed.
type ContentType string

const (
	ContentAuto    ContentType = "auto"
	ContentText    ContentType = "text"
	ContentGraphic ContentType = "graphic"
)

// ThumbnailSize is the rendering size class for graphic thumbnails.
type ThumbnailSize string

const (
	ThumbnailSmall  ThumbnailSize = "small"
	ThumbnailMedium ThumbnailSize = "medium"
	ThumbnailFull   ThumbnailSize = "full"
)

// DocumentMode selects how a paged document is decomposed.
type DocumentMode string

const (
	ModePerPage       DocumentMode = "per-page"
	ModeWholeDocument DocumentMode = "whole-document"
)

// UncategorizedLabel is the sentinel category used when none can be determined.
const UncategorizedLabel = "Uncategorized"

// NoTextLabel is used when the analysis response carries no text field.
const NoTextLabel = "[No text detected]"

// ProcessingOptions describes how one input is analyzed. It is an immutable value.
type ProcessingOptions struct {
	ContentType ContentType
	Thumbnail   ThumbnailSize
	Mode        DocumentMode
}

// DefaultProcessingOptions returns the options used when the caller supplies none.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		ContentType: ContentAuto,
		Thumbnail:   ThumbnailMedium,
		Mode:        ModePerPage,
	}
}

// WithDefaults fills zero fields from DefaultProcessingOptions.
func (o ProcessingOptions) WithDefaults() ProcessingOptions {
	d := DefaultProcessingOptions()
	if o.ContentType == "" {
		o.ContentType = d.ContentType
	}
	if o.Thumbnail == "" {
		o.Thumbnail = d.Thumbnail
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	return o
}

// Override returns the forced content type, or "" when the analysis should auto-detect.
func (o ProcessingOptions) Override() ContentType {
	if o.ContentType == ContentText || o.ContentType == ContentGraphic {
		return o.ContentType
	}
	return ""
}

// ParseContentType accepts auto, text or graphic (case-insensitive).
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ContentAuto:
		return ContentAuto, nil
	case ContentText:
		return ContentText, nil
	case ContentGraphic:
		return ContentGraphic, nil
	}
	return "", ValidationError(fmt.Sprintf("invalid content type %q (want auto, text or graphic)", s), nil)
}

// ParseThumbnailSize accepts small, medium or full.
func ParseThumbnailSize(s string) (ThumbnailSize, error) {
	switch ThumbnailSize(strings.ToLower(strings.TrimSpace(s))) {
	case "", ThumbnailMedium:
		return ThumbnailMedium, nil
	case ThumbnailSmall:
		return ThumbnailSmall, nil
	case ThumbnailFull:
		return ThumbnailFull, nil
	}
	return "", ValidationError(fmt.Sprintf("invalid thumbnail size %q (want small, medium or full)", s), nil)
}

// ParseDocumentMode accepts per-page or whole-document, with underscore spellings.
func ParseDocumentMode(s string) (DocumentMode, error) {
	v := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch v {
	case "", string(ModePerPage):
		return ModePerPage, nil
	case string(ModeWholeDocument), "whole-document-first-page-only", "whole":
		return ModeWholeDocument, nil
	}
	return "", ValidationError(fmt.Sprintf("invalid document mode %q (want per-page or whole-document)", s), nil)
}

// PageUnit is one analyzable image: an original image or a rendered document page.
type PageUnit struct {
	ImagePath string
	Label     string
	// BaseName is the output artifact stem for this unit.
	BaseName   string
	PageNumber int // 1-based; 0 for plain images
	Options    ProcessingOptions
	Temporary  bool
}

// AnalysisOutcome is the result of one analysis call.
type AnalysisOutcome struct {
	Text        string
	Description string
	Categories  []string
	ContentType ContentType
	// SourceImage is set only for graphic content.
	SourceImage string
	SourceFile  string
}

// OutputRecord links a generated artifact to its input.
type OutputRecord struct {
	InputPath  string
	OutputPath string
	Label      string
}

// DetectionEvent crosses the bridge from the background worker to the foreground.
type DetectionEvent struct {
	Path       EligiblePath
	DetectedAt time.Time
}

// ResultEvent reports the outcome of one processed input.
type ResultEvent struct {
	// Origin is the input's file name, used as its display label.
	Origin  string
	Path    string
	Success bool
}
