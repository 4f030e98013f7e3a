package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/repository"
	"breeze-gateway/internal/service"
	"breeze-gateway/internal/utils"
	"breeze-gateway/pkg/response"
)

// RateLimitStatsProvider reports the state of the request rate limiter
type RateLimitStatsProvider interface {
	GetStats() middleware.RateLimitStats
}

// StatsResponse is the metadata statistics plus the rate limiter state when limiting is enabled
type StatsResponse struct {
	*service.StatsResponse
	RateLimit *middleware.RateLimitStats `json:"rateLimit,omitempty"`
}

// MetadataController exposes the management API of metadata documents
type MetadataController struct {
	service   service.MetadataService
	limiter   RateLimitStatsProvider
	validator *validator.Validate
}

// NewMetadataController creates the controller. limiter may be nil when rate limiting is off.
func NewMetadataController(service service.MetadataService, limiter RateLimitStatsProvider) *MetadataController {
	return &MetadataController{
		service:   service,
		limiter:   limiter,
		validator: validator.New(),
	}
}

// ListServices godoc
// @Summary List Breeze services
// @Tags metadata
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]service.ServiceInfo}
// @Router /api/v1/services [get]
func (mc *MetadataController) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse(mc.service.Services(), middleware.GetCorrelationID(c)))
}

// Invalidate godoc
// @Summary Drop the cached document of a service
// @Tags metadata
// @Produce json
// @Param service path string true "Breeze service name"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/metadata/{service}/invalidate [post]
func (mc *MetadataController) Invalidate(c *gin.Context) {
	if err := mc.service.Invalidate(c.Param("service")); err != nil {
		sendError(c, metadataError(err))
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessageResponse("Metadata cache invalidated", middleware.GetCorrelationID(c)))
}

// Publish godoc
// @Summary Publish the document of a service to the configured targets
// @Tags metadata
// @Produce json
// @Param service path string true "Breeze service name"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Failure 502 {object} response.StandardResponse
// @Router /api/v1/metadata/{service}/publish [post]
func (mc *MetadataController) Publish(c *gin.Context) {
	err := mc.service.Publish(c.Request.Context(), c.Param("service"))
	if err == nil {
		c.JSON(http.StatusOK, response.SuccessMessageResponse("Metadata published", middleware.GetCorrelationID(c)))
		return
	}

	sendError(c, metadataError(err))
}

// Stats godoc
// @Summary Metadata cache and build statistics
// @Tags metadata
// @Produce json
// @Success 200 {object} response.StandardResponse{data=StatsResponse}
// @Router /api/v1/metadata/stats [get]
func (mc *MetadataController) Stats(c *gin.Context) {
	stats := StatsResponse{StatsResponse: mc.service.Stats()}
	if mc.limiter != nil {
		limits := mc.limiter.GetStats()
		stats.RateLimit = &limits
	}
	c.JSON(http.StatusOK, response.SuccessResponse(stats, middleware.GetCorrelationID(c)))
}

// ListSnapshots godoc
// @Summary List stored metadata versions
// @Tags snapshots
// @Produce json
// @Param service query string false "Filter by service"
// @Param limit query int false "Maximum number of items to return (default: 20, max: 100)"
// @Param offset query int false "Number of items to skip (default: 0)"
// @Success 200 {object} response.StandardResponse{data=service.ListSnapshotsResponse}
// @Router /api/v1/snapshots [get]
func (mc *MetadataController) ListSnapshots(c *gin.Context) {
	var req service.ListSnapshotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		sendError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidParameters).WithDetails(err.Error()).Build())
		return
	}
	if err := mc.validator.Struct(&req); err != nil {
		sendError(c, utils.NewValidationError("Validation failed", err.Error()))
		return
	}

	resp, err := mc.service.ListSnapshots(c.Request.Context(), &req)
	if err != nil {
		sendError(c, snapshotError(err))
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(resp, middleware.GetCorrelationID(c)))
}

// GetSnapshot godoc
// @Summary Get a stored metadata version, including its document
// @Tags snapshots
// @Produce json
// @Param id path string true "Snapshot UUID"
// @Success 200 {object} response.StandardResponse{data=model.MetadataSnapshot}
// @Failure 400 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/snapshots/{id} [get]
func (mc *MetadataController) GetSnapshot(c *gin.Context) {
	snapshot, err := mc.service.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, snapshotError(err))
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(snapshot, middleware.GetCorrelationID(c)))
}

func snapshotError(err error) *utils.AppError {
	switch {
	case errors.Is(err, repository.ErrInvalidUUID):
		return utils.NewErrorBuilder(utils.ErrCodeInvalidUUID).WithCause(err).Build()
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return utils.NewErrorBuilder(utils.ErrCodeSnapshotNotFound).WithCause(err).Build()
	case errors.Is(err, service.ErrSnapshotsDisabled):
		return utils.NewErrorBuilder(utils.ErrCodeSnapshotsUnavailable).WithCause(err).Build()
	default:
		return utils.NewDatabaseError(err, "Failed to read snapshots")
	}
}
