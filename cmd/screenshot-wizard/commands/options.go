package commands

import (
	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

// processingFlags are shared by watch, process and batch.
type processingFlags struct {
	mode        string
	contentType string
	thumbnail   string
}

func (f *processingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", string(domain.ModePerPage), "PDF handling: per-page or whole-document")
	cmd.Flags().StringVar(&f.contentType, "content-type", string(domain.ContentAuto), "content type: auto, text or graphic")
	cmd.Flags().StringVar(&f.thumbnail, "thumbnail", string(domain.ThumbnailMedium), "graphic thumbnail size: small, medium or full")
}

func (f *processingFlags) options() (domain.ProcessingOptions, error) {
	mode, err := domain.ParseDocumentMode(f.mode)
	if err != nil {
		return domain.ProcessingOptions{}, err
	}
	ct, err := domain.ParseContentType(f.contentType)
	if err != nil {
		return domain.ProcessingOptions{}, err
	}
	thumb, err := domain.ParseThumbnailSize(f.thumbnail)
	if err != nil {
		return domain.ProcessingOptions{}, err
	}
	return domain.ProcessingOptions{ContentType: ct, Thumbnail: thumb, Mode: mode}, nil
}
