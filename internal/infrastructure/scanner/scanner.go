package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
	"github.com/yokitheyo/frontaltriage/internal/domain"
)

// ImageScanner finds frontal images larger than a size threshold.
//
// Any error during the walk aborts the scan and nothing is returned, so an
// I/O failure is never reported as "no images".
type ImageScanner struct {
	names     domain.NameConvention
	minSizeKB int64
}

func NewImageScanner(cfg *config.TriageConfig) *ImageScanner {
	return &ImageScanner{
		names:     domain.NewNameConvention(cfg.FrontalSuffix),
		minSizeKB: cfg.MinSizeKB,
	}
}

// Scan walks root in lexical order and returns descriptors for every
// frontal image whose size in KB is strictly above the threshold.
func (s *ImageScanner) Scan(ctx context.Context, root string) ([]domain.ImageDescriptor, error) {
	images := []domain.ImageDescriptor{}
	matched := 0

	// WalkDir does not follow a symlinked root, so resolve it first.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("root", root).Msg("failed to resolve images root")
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrScanFailed, root, err)
	}

	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		imageID, ok := s.names.ImageID(d.Name())
		if !ok {
			return nil
		}
		matched++

		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		desc := domain.ImageDescriptor{
			ImageName: d.Name(),
			ImageSize: info.Size() / 1024,
			NDI:       filepath.Base(filepath.Dir(path)),
			ImageID:   imageID,
		}

		if desc.ImageSize <= s.minSizeKB {
			zlog.Logger.Debug().
				Str("image", path).
				Int64("size_kb", desc.ImageSize).
				Msg("frontal image below threshold, skipping")
			return nil
		}

		images = append(images, desc)
		return nil
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("root", root).Msg("image scan aborted")
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrScanFailed, root, err)
	}

	zlog.Logger.Info().
		Str("root", root).
		Str("resolved_root", resolved).
		Int("frontal", matched).
		Int("large", len(images)).
		Int64("min_size_kb", s.minSizeKB).
		Msg("image scan completed")

	return images, nil
}
