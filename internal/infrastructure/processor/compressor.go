package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
	"github.com/yokitheyo/frontaltriage/internal/domain"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/storage"
)

// Quality ladder for the size search. Starting at 85 and stepping by 5
// reaches the floor after at most 17 encodes.
const (
	InitialQuality = 85
	QualityStep    = 5
	MinQuality     = 5
	MaxAttempts    = (InitialQuality-MinQuality)/QualityStep + 1
)

type encodeFunc func(w io.Writer, img image.Image, quality int) error

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// ImageCompressor re-encodes frontal images at decreasing JPEG quality
// until they fit a target size.
type ImageCompressor struct {
	imagesDir    string
	targetSizeKB int
	names        domain.NameConvention
	output       storage.Storage
	mirror       storage.Storage
	encode       encodeFunc
}

// NewImageCompressor builds a compressor reading from triage.images_dir and
// writing through output. mirror may be nil.
func NewImageCompressor(cfg *config.TriageConfig, output, mirror storage.Storage) *ImageCompressor {
	zlog.Logger.Info().
		Str("images_dir", cfg.ImagesDir).
		Int("target_size_kb", cfg.TargetSizeKB).
		Int("initial_quality", InitialQuality).
		Int("min_quality", MinQuality).
		Bool("mirror", mirror != nil).
		Msg("ImageCompressor initialized")
	return &ImageCompressor{
		imagesDir:    cfg.ImagesDir,
		targetSizeKB: cfg.TargetSizeKB,
		names:        domain.NewNameConvention(cfg.FrontalSuffix),
		output:       output,
		mirror:       mirror,
		encode:       encodeJPEG,
	}
}

// CompressOne compresses images_dir/ndi/<imageID><suffix> into
// <ndi>/<imageID><suffix> of the output storage.
func (c *ImageCompressor) CompressOne(ctx context.Context, ndi, imageID string, targetSizeKB int) (*domain.CompressionOutcome, error) {
	srcPath, err := c.resolveSource(ndi, imageID)
	if err != nil {
		return nil, err
	}

	img, err := decode(srcPath)
	if err != nil {
		return nil, err
	}

	data, quality, attempts, err := c.reduce(img, int64(targetSizeKB)*1024)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("source", srcPath).Msg("failed to encode image")
		return nil, err
	}

	relPath := filepath.Join(ndi, c.names.FileName(imageID))
	dstPath, err := c.output.Save(ctx, relPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: save %s: %w", domain.ErrStorageFailed, relPath, err)
	}

	if c.mirror != nil {
		if location, err := c.mirror.Save(ctx, relPath, bytes.NewReader(data)); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", relPath).Msg("failed to mirror compressed image")
		} else {
			zlog.Logger.Info().Str("path", relPath).Str("location", location).Msg("compressed image mirrored")
		}
	}

	outcome := &domain.CompressionOutcome{
		Path:      dstPath,
		Quality:   quality,
		Attempts:  attempts,
		SizeBytes: int64(len(data)),
	}

	zlog.Logger.Info().
		Str("source", srcPath).
		Str("destination", dstPath).
		Int("quality", quality).
		Int("attempts", attempts).
		Int64("size_kb", outcome.SizeKB()).
		Int("target_size_kb", targetSizeKB).
		Bool("target_met", outcome.SizeBytes < int64(targetSizeKB)*1024).
		Msg("image compressed")

	return outcome, nil
}

// CompressBatch compresses each descriptor in order. A failing image is
// recorded in the report and does not stop the batch.
func (c *ImageCompressor) CompressBatch(ctx context.Context, descriptors []domain.ImageDescriptor) *domain.BatchReport {
	report := &domain.BatchReport{
		Results:  []domain.CompressedImageResult{},
		Failures: []domain.CompressionFailure{},
	}

	for i, desc := range descriptors {
		if err := ctx.Err(); err != nil {
			zlog.Logger.Warn().Err(err).Int("remaining", len(descriptors)-i).Msg("batch interrupted")
			for _, rest := range descriptors[i:] {
				report.Failures = append(report.Failures, domain.CompressionFailure{Descriptor: rest, Err: err})
			}
			break
		}

		outcome, err := c.CompressOne(ctx, desc.NDI, desc.ImageID, c.targetSizeKB)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("ndi", desc.NDI).
				Str("image_id", desc.ImageID).
				Msg("Error compressing image")
			report.Failures = append(report.Failures, domain.CompressionFailure{Descriptor: desc, Err: err})
			continue
		}

		report.Results = append(report.Results, domain.CompressedImageResult{
			CompressedImageName: filepath.Base(outcome.Path),
			CompressedImagePath: outcome.Path,
			OriginalImageName:   desc.ImageName,
		})
	}

	return report
}

// reduce encodes img from InitialQuality downwards until the encoding is
// smaller than targetBytes or an encode at MinQuality has been done.
func (c *ImageCompressor) reduce(img image.Image, targetBytes int64) ([]byte, int, int, error) {
	var buf bytes.Buffer
	quality := InitialQuality
	attempts := 0

	for {
		buf.Reset()
		if err := c.encode(&buf, img, quality); err != nil {
			return nil, quality, attempts, fmt.Errorf("%w at quality %d: %w", domain.ErrEncodeFailed, quality, err)
		}
		attempts++

		size := int64(buf.Len())
		zlog.Logger.Debug().
			Int("quality", quality).
			Int64("size_bytes", size).
			Int64("target_bytes", targetBytes).
			Msg("encoded candidate")

		if size < targetBytes || quality == MinQuality {
			break
		}

		quality -= QualityStep
		if quality < MinQuality {
			quality = MinQuality
		}
	}

	return buf.Bytes(), quality, attempts, nil
}

// resolveSource finds the source file in images_dir/ndi, matching the file
// name case-insensitively. An exact-case match wins.
func (c *ImageCompressor) resolveSource(ndi, imageID string) (string, error) {
	if ndi == "" || ndi == "." || ndi == ".." || strings.ContainsAny(ndi, `/\`) {
		return "", fmt.Errorf("%w: invalid ndi %q", domain.ErrSourceNotFound, ndi)
	}

	dir := filepath.Join(c.imagesDir, ndi)
	want := c.names.FileName(imageID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("dir", dir).Msg("failed to read source directory")
		return "", fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, dir, err)
	}

	found := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == want {
			found = entry.Name()
			break
		}
		if found == "" && c.names.SameFile(entry.Name(), want) {
			found = entry.Name()
		}
	}
	if found == "" {
		zlog.Logger.Error().Str("dir", dir).Str("name", want).Msg("source image not found")
		return "", fmt.Errorf("%w: %s", domain.ErrSourceNotFound, filepath.Join(dir, want))
	}

	abs, err := filepath.Abs(filepath.Join(dir, found))
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	return abs, nil
}

func decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", path).Msg("failed to open image")
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", path).Msg("failed to decode image")
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDecodeFailed, path, err)
	}
	width, height := GetImageDimensions(img)
	if width == 0 || height == 0 {
		zlog.Logger.Error().Str("path", path).Msg("decoded image is empty")
		return nil, fmt.Errorf("%w: %s: empty image", domain.ErrDecodeFailed, path)
	}

	zlog.Logger.Debug().
		Str("path", path).
		Int("width", width).
		Int("height", height).
		Msg("Image decoded successfully")

	return img, nil
}

func GetImageDimensions(img image.Image) (width, height int) {
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy()
}
