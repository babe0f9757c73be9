package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
)

type s3Storage struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3Storage(cfg *config.MirrorConfig) (Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}

	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			zlog.Logger.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("unable to create bucket, ensure it exists and credentials are correct")
		} else {
			zlog.Logger.Info().Str("bucket", cfg.Bucket).Msg("created s3 bucket")
		}
	}

	return &s3Storage{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *s3Storage) objectName(relPath string) string {
	return path.Join(s.prefix, filepath.ToSlash(relPath))
}

// Save uploads reader as a JPEG object and returns an s3:// location.
func (s *s3Storage) Save(ctx context.Context, relPath string, reader io.Reader) (string, error) {
	if reader == nil {
		zlog.Logger.Error().Str("path", relPath).Msg("reader is nil")
		return "", fmt.Errorf("reader is nil")
	}

	objectName := s.objectName(relPath)

	// A known size lets minio send one PUT instead of a multipart upload.
	size := int64(-1)
	if sized, ok := reader.(interface{ Len() int }); ok {
		size = int64(sized.Len())
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("object", objectName).Msg("failed to put object to s3")
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, objectName)
	zlog.Logger.Info().Str("location", location).Int64("bytes", info.Size).Msg("object saved to s3")
	return location, nil
}
