package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"
)

type localStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("output path is empty, set triage.output_dir in config or env")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve output path %s: %w", basePath, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &localStorage{basePath: abs}, nil
}

// Save writes reader to basePath/relPath, creating parent directories and
// replacing any existing file. It returns the absolute path.
func (s *localStorage) Save(ctx context.Context, relPath string, reader io.Reader) (string, error) {
	if reader == nil {
		zlog.Logger.Error().Str("path", relPath).Msg("reader is nil")
		return "", fmt.Errorf("reader is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		zlog.Logger.Error().Err(err).Str("dir", filepath.Dir(fullPath)).Msg("failed to create directory")
		return "", fmt.Errorf("create directory for %s: %w", fullPath, err)
	}

	if _, err := os.Stat(fullPath); err == nil {
		zlog.Logger.Debug().Str("path", fullPath).Msg("file already exists, will be overwritten")
	}

	// Write to a sibling temp file and rename so readers never see a partial JPEG.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to create temp file")
		return "", fmt.Errorf("create file %s: %w", fullPath, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, reader)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to write file")
		return "", fmt.Errorf("write file %s: %w", fullPath, err)
	}
	if written == 0 {
		zlog.Logger.Error().Str("path", fullPath).Msg("no bytes written to file")
		return "", fmt.Errorf("%w: %s", ErrEmptyWrite, fullPath)
	}

	if err := tmp.Chmod(0644); err != nil {
		zlog.Logger.Error().Err(err).Str("path", tmpPath).Msg("failed to set file mode")
		return "", fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to close file")
		return "", fmt.Errorf("close file %s: %w", fullPath, err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to move file into place")
		return "", fmt.Errorf("rename %s: %w", fullPath, err)
	}
	committed = true

	zlog.Logger.Info().
		Str("path", fullPath).
		Int64("bytes", written).
		Msg("file saved successfully")

	return fullPath, nil
}
