package domain

import "context"

type Scanner interface {
	Scan(ctx context.Context, root string) ([]ImageDescriptor, error)
}

type Compressor interface {
	CompressOne(ctx context.Context, ndi, imageID string, targetSizeKB int) (*CompressionOutcome, error)
	CompressBatch(ctx context.Context, descriptors []ImageDescriptor) *BatchReport
}

type TriageService interface {
	ListLargeImages(ctx context.Context) ([]ImageDescriptor, error)
	CompressLargeImages(ctx context.Context) (*BatchReport, error)
}
