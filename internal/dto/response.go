package dto

import "github.com/yokitheyo/frontaltriage/internal/domain"

// InternalServerError is the only error body the API returns.
const InternalServerError = "Internal Server Error"

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// MapImagesToResponse never returns nil so an empty scan renders as [].
func MapImagesToResponse(images []domain.ImageDescriptor) []domain.ImageDescriptor {
	if images == nil {
		return []domain.ImageDescriptor{}
	}
	return images
}

// MapReportToResponse keeps only the successful entries of a batch.
func MapReportToResponse(report *domain.BatchReport) []domain.CompressedImageResult {
	if report == nil || report.Results == nil {
		return []domain.CompressedImageResult{}
	}
	return report.Results
}
