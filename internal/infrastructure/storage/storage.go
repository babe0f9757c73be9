package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
)

var ErrEmptyWrite = errors.New("no bytes written")

// Storage persists compressed images under a relative path such as
// "<ndi>/<image_id>_frontal.jpg" and returns where they ended up.
type Storage interface {
	Save(ctx context.Context, relPath string, reader io.Reader) (string, error)
}

// New returns the output storage rooted at triage.output_dir.
func New(cfg *config.TriageConfig) (Storage, error) {
	zlog.Logger.Info().Str("output_dir", cfg.OutputDir).Msg("Initializing local output storage")
	return NewLocalStorage(cfg.OutputDir)
}

// NewMirror returns the S3 mirror, or nil when it is disabled.
func NewMirror(cfg *config.MirrorConfig) (Storage, error) {
	if !cfg.Enabled {
		zlog.Logger.Info().Msg("S3 mirror disabled")
		return nil, nil
	}
	zlog.Logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Initializing S3 mirror")
	mirror, err := NewS3Storage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init s3 mirror: %w", err)
	}
	return mirror, nil
}
