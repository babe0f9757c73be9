package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
	"github.com/yokitheyo/frontaltriage/internal/domain"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/storage"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fixture struct {
	imagesDir string
	outputDir string
	cfg       config.TriageConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default().Triage
	cfg.ImagesDir = filepath.Join(root, "images")
	cfg.OutputDir = filepath.Join(root, "compressed_images")
	require.NoError(t, os.MkdirAll(cfg.ImagesDir, 0o755))
	return &fixture{imagesDir: cfg.ImagesDir, outputDir: cfg.OutputDir, cfg: cfg}
}

func (f *fixture) compressor(t *testing.T, mirror storage.Storage) *ImageCompressor {
	t.Helper()
	output, err := storage.NewLocalStorage(f.outputDir)
	require.NoError(t, err)
	return NewImageCompressor(&f.cfg, output, mirror)
}

// writeJPEG stores a small valid JPEG padded with trailing zeros up to padKB.
func (f *fixture) writeJPEG(t *testing.T, ndi, name string, padKB int) string {
	t.Helper()
	img := imaging.New(64, 48, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	if missing := padKB*1024 - buf.Len(); missing > 0 {
		buf.Write(make([]byte, missing))
	}
	return f.write(t, ndi, name, buf.Bytes())
}

func (f *fixture) write(t *testing.T, ndi, name string, data []byte) string {
	t.Helper()
	dir := filepath.Join(f.imagesDir, ndi)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// sizedEncoder writes quality KB per encode and records each quality used.
func sizedEncoder(qualities *[]int) encodeFunc {
	return func(w io.Writer, _ image.Image, quality int) error {
		*qualities = append(*qualities, quality)
		_, err := w.Write(make([]byte, quality*1024))
		return err
	}
}

type recordingStorage struct {
	saved map[string][]byte
	err   error
}

func (s *recordingStorage) Save(_ context.Context, relPath string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[relPath] = data
	return "s3://bucket/" + relPath, nil
}

func TestCompressOne_LargeImageScenario(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 2048)

	outcome, err := f.compressor(t, nil).CompressOne(context.Background(), "P001", "P001", 1024)
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join(f.outputDir, "P001", "P001_frontal.jpg"))
	require.NoError(t, err)
	assert.Equal(t, want, outcome.Path)
	assert.Equal(t, InitialQuality, outcome.Quality)
	assert.Equal(t, 1, outcome.Attempts)

	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, outcome.SizeBytes, info.Size())
	assert.Less(t, info.Size(), int64(1024*1024))

	_, err = imaging.Open(want)
	assert.NoError(t, err, "output must be a decodable JPEG")
}

func TestCompressOne_SingleEncodeWhenFirstFits(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	c := f.compressor(t, nil)
	var qualities []int
	c.encode = sizedEncoder(&qualities)

	outcome, err := c.CompressOne(context.Background(), "P001", "P001", 86)
	require.NoError(t, err)

	assert.Equal(t, []int{85}, qualities)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 85, outcome.Quality)
}

func TestCompressOne_StopsAtFirstQualityBelowTarget(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	c := f.compressor(t, nil)
	var qualities []int
	c.encode = sizedEncoder(&qualities)

	outcome, err := c.CompressOne(context.Background(), "P001", "P001", 61)
	require.NoError(t, err)

	assert.Equal(t, []int{85, 80, 75, 70, 65, 60}, qualities)
	assert.Equal(t, 60, outcome.Quality)
	assert.EqualValues(t, 60*1024, outcome.SizeBytes)

	info, err := os.Stat(outcome.Path)
	require.NoError(t, err)
	assert.EqualValues(t, 60*1024, info.Size())
}

func TestCompressOne_SizeEqualToTargetIsNotEnough(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	c := f.compressor(t, nil)
	var qualities []int
	c.encode = sizedEncoder(&qualities)

	outcome, err := c.CompressOne(context.Background(), "P001", "P001", 85)
	require.NoError(t, err)

	assert.Equal(t, []int{85, 80}, qualities)
	assert.Equal(t, 80, outcome.Quality)
}

func TestCompressOne_FloorReachedAtQualityFive(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	c := f.compressor(t, nil)
	var qualities []int
	c.encode = sizedEncoder(&qualities)

	outcome, err := c.CompressOne(context.Background(), "P001", "P001", 1)
	require.NoError(t, err)

	require.Len(t, qualities, MaxAttempts)
	assert.Equal(t, 17, MaxAttempts)
	assert.Equal(t, MinQuality, qualities[len(qualities)-1])
	for i := 1; i < len(qualities); i++ {
		assert.Less(t, qualities[i], qualities[i-1], "quality must decrease every step")
	}
	assert.Equal(t, MinQuality, outcome.Quality)
	assert.Equal(t, MaxAttempts, outcome.Attempts)
}

func TestCompressOne_RealEncoderFloor(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)

	outcome, err := f.compressor(t, nil).CompressOne(context.Background(), "P001", "P001", 0)
	require.NoError(t, err)

	assert.Equal(t, MinQuality, outcome.Quality)
	assert.Equal(t, MaxAttempts, outcome.Attempts)
	assert.FileExists(t, outcome.Path)
}

func TestCompressOne_UpperCaseExtension(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P002", "P002_frontal.JPG", 1500)

	outcome, err := f.compressor(t, nil).CompressOne(context.Background(), "P002", "P002", 1024)
	require.NoError(t, err)

	assert.Equal(t, "P002_frontal.jpg", filepath.Base(outcome.Path))
	assert.FileExists(t, outcome.Path)
}

func TestCompressOne_PrefersExactCaseMatch(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P003", "P003_frontal.jpg", 0)
	f.write(t, "P003", "P003_FRONTAL.JPG", []byte("garbage"))

	entries, err := os.ReadDir(filepath.Join(f.imagesDir, "P003"))
	require.NoError(t, err)
	if len(entries) != 2 {
		t.Skip("case-insensitive filesystem")
	}

	_, err = f.compressor(t, nil).CompressOne(context.Background(), "P003", "P003", 1024)
	assert.NoError(t, err)
}

func TestCompressOne_OverwritesExistingOutput(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	dst := filepath.Join(f.outputDir, "P001", "P001_frontal.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, make([]byte, 512*1024), 0o644))

	outcome, err := f.compressor(t, nil).CompressOne(context.Background(), "P001", "P001", 1024)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, outcome.SizeBytes, info.Size())
}

func TestCompressOne_Errors(t *testing.T) {
	f := newFixture(t)
	f.write(t, "BAD", "BAD_frontal.jpg", []byte("this is not an image"))
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	c := f.compressor(t, nil)
	ctx := context.Background()

	_, err := c.CompressOne(ctx, "BAD", "BAD", 1024)
	assert.ErrorIs(t, err, domain.ErrDecodeFailed)

	_, err = c.CompressOne(ctx, "P001", "P999", 1024)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = c.CompressOne(ctx, "NOPE", "NOPE", 1024)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = c.CompressOne(ctx, "..", "P001", 1024)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	c.encode = func(io.Writer, image.Image, int) error { return errors.New("boom") }
	_, err = c.CompressOne(ctx, "P001", "P001", 1024)
	assert.ErrorIs(t, err, domain.ErrEncodeFailed)
	assert.NoFileExists(t, filepath.Join(f.outputDir, "P001", "P001_frontal.jpg"))
}

func TestCompressOne_MirrorsOutput(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	mirror := &recordingStorage{}

	outcome, err := f.compressor(t, mirror).CompressOne(context.Background(), "P001", "P001", 1024)
	require.NoError(t, err)

	local, err := os.ReadFile(outcome.Path)
	require.NoError(t, err)
	assert.Equal(t, local, mirror.saved[filepath.Join("P001", "P001_frontal.jpg")])
}

func TestCompressOne_MirrorFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	mirror := &recordingStorage{err: errors.New("s3 down")}

	outcome, err := f.compressor(t, mirror).CompressOne(context.Background(), "P001", "P001", 1024)
	require.NoError(t, err)
	assert.FileExists(t, outcome.Path)
}

func TestCompressBatch_SkipsBadImages(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 2048)
	f.write(t, "P404", "P404_frontal.jpg", make([]byte, 2048*1024))
	f.writeJPEG(t, "P002", "P002_frontal.JPG", 1500)

	descriptors := []domain.ImageDescriptor{
		{ImageName: "P001_frontal.jpg", ImageSize: 2048, NDI: "P001", ImageID: "P001"},
		{ImageName: "P404_frontal.jpg", ImageSize: 2048, NDI: "P404", ImageID: "P404"},
		{ImageName: "P002_frontal.JPG", ImageSize: 1500, NDI: "P002", ImageID: "P002"},
	}

	report := f.compressor(t, nil).CompressBatch(context.Background(), descriptors)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "P001_frontal.jpg", report.Results[0].CompressedImageName)
	assert.Equal(t, "P001_frontal.jpg", report.Results[0].OriginalImageName)
	assert.True(t, filepath.IsAbs(report.Results[0].CompressedImagePath))
	assert.Equal(t, "P002_frontal.jpg", report.Results[1].CompressedImageName)
	assert.Equal(t, "P002_frontal.JPG", report.Results[1].OriginalImageName)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "P404", report.Failures[0].Descriptor.NDI)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrDecodeFailed)
}

func TestCompressBatch_Empty(t *testing.T) {
	f := newFixture(t)

	report := f.compressor(t, nil).CompressBatch(context.Background(), nil)

	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
}

func TestCompressBatch_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.writeJPEG(t, "P001", "P001_frontal.jpg", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.compressor(t, nil).CompressBatch(ctx, []domain.ImageDescriptor{
		{ImageName: "P001_frontal.jpg", NDI: "P001", ImageID: "P001"},
	})

	assert.Empty(t, report.Results)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, context.Canceled)
}
