package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/domain"
)

type TriageUsecase struct {
	scanner    domain.Scanner
	compressor domain.Compressor
	imagesDir  string
}

func NewTriageUsecase(
	scanner domain.Scanner,
	compressor domain.Compressor,
	imagesDir string,
) *TriageUsecase {
	return &TriageUsecase{
		scanner:    scanner,
		compressor: compressor,
		imagesDir:  imagesDir,
	}
}

// ListLargeImages scans the images directory for large frontal images.
func (u *TriageUsecase) ListLargeImages(ctx context.Context) ([]domain.ImageDescriptor, error) {
	runID := uuid.New().String()
	start := time.Now()

	images, err := u.scanner.Scan(ctx, u.imagesDir)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("run_id", runID).Msg("failed to list large images")
		return nil, fmt.Errorf("scan images: %w", err)
	}

	zlog.Logger.Info().
		Str("run_id", runID).
		Int("images", len(images)).
		Dur("elapsed", time.Since(start)).
		Msg("large images listed")

	return images, nil
}

// CompressLargeImages scans and then compresses everything the scan found.
// A scan failure aborts the pass; per-image failures end up in the report.
func (u *TriageUsecase) CompressLargeImages(ctx context.Context) (*domain.BatchReport, error) {
	runID := uuid.New().String()
	start := time.Now()

	images, err := u.scanner.Scan(ctx, u.imagesDir)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("run_id", runID).Msg("failed to scan images before compression")
		return nil, fmt.Errorf("scan images: %w", err)
	}

	zlog.Logger.Info().
		Str("run_id", runID).
		Int("images", len(images)).
		Msg("starting compression pass")

	report := u.compressor.CompressBatch(ctx, images)

	zlog.Logger.Info().
		Str("run_id", runID).
		Int("compressed", report.Succeeded()).
		Int("failed", report.Failed()).
		Dur("elapsed", time.Since(start)).
		Msg("compression pass finished")

	return report, nil
}
