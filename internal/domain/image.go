package domain

import "strings"

// DefaultFrontalSuffix marks a frontal-view image file.
const DefaultFrontalSuffix = "_frontal.jpg"

// ImageDescriptor is one large frontal image found by a scan.
type ImageDescriptor struct {
	ImageName string `json:"image_name"`
	ImageSize int64  `json:"image_size"`
	NDI       string `json:"ndi"`
	ImageID   string `json:"image_id"`
}

// CompressedImageResult is one successfully compressed image.
type CompressedImageResult struct {
	CompressedImageName string `json:"compressed_image_name"`
	CompressedImagePath string `json:"compressed_image_path"`
	OriginalImageName   string `json:"original_image_name"`
}

// CompressionOutcome describes a single quality-reduction run.
type CompressionOutcome struct {
	Path      string
	Quality   int
	Attempts  int
	SizeBytes int64
}

// SizeKB returns the encoded size in whole kilobytes.
func (o *CompressionOutcome) SizeKB() int64 {
	return o.SizeBytes / 1024
}

type CompressionFailure struct {
	Descriptor ImageDescriptor
	Err        error
}

// BatchReport keeps successes and failures of a batch in input order.
type BatchReport struct {
	Results  []CompressedImageResult
	Failures []CompressionFailure
}

func (r *BatchReport) Succeeded() int {
	return len(r.Results)
}

func (r *BatchReport) Failed() int {
	return len(r.Failures)
}

// NameConvention ties image ids to file names. The scanner and the
// compressor must both go through it so the two directions stay in sync.
type NameConvention struct {
	Suffix string
}

func NewNameConvention(suffix string) NameConvention {
	if suffix == "" {
		suffix = DefaultFrontalSuffix
	}
	return NameConvention{Suffix: suffix}
}

// Matches reports whether name carries the suffix, ignoring case.
func (n NameConvention) Matches(name string) bool {
	return len(name) >= len(n.Suffix) && strings.EqualFold(name[len(name)-len(n.Suffix):], n.Suffix)
}

// ImageID strips the suffix from name. ok is false when name does not match.
func (n NameConvention) ImageID(name string) (id string, ok bool) {
	if !n.Matches(name) {
		return "", false
	}
	return name[:len(name)-len(n.Suffix)], true
}

// FileName returns the canonical file name for an image id.
func (n NameConvention) FileName(imageID string) string {
	return imageID + n.Suffix
}

// SameFile compares two file names the way Matches compares suffixes.
func (n NameConvention) SameFile(a, b string) bool {
	return strings.EqualFold(a, b)
}
