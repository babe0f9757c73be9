package worker

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/domain"
)

// CompressWorker runs one compression pass outside the HTTP server.
type CompressWorker struct {
	triageService domain.TriageService
}

func NewCompressWorker(triageService domain.TriageService) *CompressWorker {
	return &CompressWorker{
		triageService: triageService,
	}
}

// Run compresses every large image once and logs the outcome per image.
// Only a failed scan is reported as an error.
func (w *CompressWorker) Run(ctx context.Context) (*domain.BatchReport, error) {
	zlog.Logger.Info().Msg("starting one-shot compression pass")

	report, err := w.triageService.CompressLargeImages(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("compression pass failed")
		return nil, fmt.Errorf("compress large images: %w", err)
	}

	for _, res := range report.Results {
		zlog.Logger.Info().
			Str("original_image_name", res.OriginalImageName).
			Str("compressed_image_path", res.CompressedImagePath).
			Msg("compressed")
	}
	for _, failure := range report.Failures {
		zlog.Logger.Error().
			Err(failure.Err).
			Str("ndi", failure.Descriptor.NDI).
			Str("image_id", failure.Descriptor.ImageID).
			Msg("not compressed")
	}

	zlog.Logger.Info().
		Int("compressed", report.Succeeded()).
		Int("failed", report.Failed()).
		Msg("one-shot compression pass finished")

	return report, nil
}
