package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"breeze-gateway/internal/catalog"
	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/service"
	"breeze-gateway/internal/utils"
	"breeze-gateway/pkg/response"
)

// BreezeController serves metadata to Breeze clients
type BreezeController struct {
	service service.MetadataService
}

func NewBreezeController(service service.MetadataService) *BreezeController {
	return &BreezeController{
		service: service,
	}
}

// GetMetadata godoc
// @Summary Breeze metadata of a service
// @Description Returns the raw Breeze metadata document. Supports conditional requests with If-None-Match.
// @Tags breeze
// @Produce json
// @Param service path string true "Breeze service name"
// @Success 200 {object} breeze.Metadata
// @Success 304
// @Failure 404 {object} response.StandardResponse
// @Failure 500 {object} response.StandardResponse
// @Router /breeze/{service}/Metadata [get]
func (bc *BreezeController) GetMetadata(c *gin.Context) {
	doc, err := bc.service.Metadata(c.Request.Context(), c.Param("service"))
	if err != nil {
		sendError(c, metadataError(err))
		return
	}

	c.Header("ETag", doc.ETag())
	c.Header("Cache-Control", "no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), doc.ETag()) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", doc.Body)
}

// metadataError maps service errors of metadata requests to API errors
func metadataError(err error) *utils.AppError {
	switch {
	case errors.Is(err, catalog.ErrServiceNotFound):
		return utils.NewErrorBuilder(utils.ErrCodeServiceNotFound).
			WithDetails(err.Error()).
			WithCause(err).
			Build()
	case errors.Is(err, service.ErrPublishingDisabled):
		return utils.NewErrorBuilder(utils.ErrCodePublishingDisabled).WithCause(err).Build()
	case errors.Is(err, service.ErrPublishFailed):
		return utils.NewErrorBuilder(utils.ErrCodePublishFailed).
			WithDetails(err.Error()).
			WithCause(err).
			Build()
	default:
		return utils.NewMetadataBuildError(err)
	}
}

// etagMatches evaluates an If-None-Match header against etag, using weak comparison
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func sendError(c *gin.Context, appErr *utils.AppError) {
	if appErr.Cause != nil {
		_ = c.Error(appErr.Cause)
	}
	c.JSON(utils.GetErrorStatus(appErr), response.ErrorResponseFromAppError(appErr, middleware.GetCorrelationID(c)))
}
