package http

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/domain"
	"github.com/yokitheyo/frontaltriage/internal/dto"
)

type ImageHandler struct {
	service domain.TriageService
}

func NewImageHandler(service domain.TriageService) *ImageHandler {
	return &ImageHandler{service: service}
}

func (h *ImageHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.GET("/get_images", h.GetImages)
	engine.GET("/compress_images", h.CompressImages)
}

// GetImages GET /get_images
func (h *ImageHandler) GetImages(c *ginext.Context) {
	images, err := h.service.ListLargeImages(c.Request.Context())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("An error occurred while listing images")
		h.internalError(c)
		return
	}

	c.JSON(http.StatusOK, dto.MapImagesToResponse(images))
}

// CompressImages GET /compress_images
func (h *ImageHandler) CompressImages(c *ginext.Context) {
	report, err := h.service.CompressLargeImages(c.Request.Context())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("An error occurred while compressing images")
		h.internalError(c)
		return
	}

	if report == nil {
		report = &domain.BatchReport{}
	}
	for _, failure := range report.Failures {
		zlog.Logger.Warn().
			Err(failure.Err).
			Str("ndi", failure.Descriptor.NDI).
			Str("image_name", failure.Descriptor.ImageName).
			Msg("image left out of compression response")
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}

func (h *ImageHandler) internalError(c *ginext.Context) {
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: dto.InternalServerError,
	})
}
