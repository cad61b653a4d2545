package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/errors"
	dto "github.com/johnquangdev/meeting-intel/internal/adapter/dto/pipeline"
	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
)

// Records handles warehouse and client-mapping endpoints. Either repository
// may be nil when the warehouse is disabled.
type Records struct {
	records  repositories.RecordRepository
	mappings repositories.ClientMappingRepository
	logger   *zap.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(records repositories.RecordRepository, mappings repositories.ClientMappingRepository, logger *zap.Logger) *Records {
	return &Records{records: records, mappings: mappings, logger: logger}
}

// Recent lists the most recently scored records
// @Summary      Recent records
// @Tags         Records
// @Produce      json
// @Param        limit  query  int  false  "Max records"  default(10)
// @Router       /v1/records/recent [get]
func (h *Records) Recent(c echo.Context) error {
	if h.records == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	req := dto.RecentQuery{Limit: dto.DefaultRecentLimit}
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	records, err := h.records.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("recent", err))
	}
	return HandleSuccess(h.logger, c, records)
}

// Get returns the stored record for a meeting
// @Summary      Get record
// @Tags         Records
// @Produce      json
// @Param        meeting_id  path  string  true  "Meeting ID"
// @Router       /v1/records/{meeting_id} [get]
func (h *Records) Get(c echo.Context) error {
	if h.records == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	record, err := h.records.GetByMeetingID(c.Request().Context(), c.Param("meeting_id"))
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleSuccess(h.logger, c, record)
}

// Info summarises the warehouse table
// @Summary      Warehouse info
// @Tags         Records
// @Produce      json
// @Router       /v1/records/info [get]
func (h *Records) Info(c echo.Context) error {
	if h.records == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	info, err := h.records.Info(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("info", err))
	}
	return HandleSuccess(h.logger, c, info)
}

// Dedupe removes all but the latest row per meeting
// @Summary      Dedupe records
// @Tags         Records
// @Produce      json
// @Router       /v1/records/dedupe [post]
func (h *Records) Dedupe(c echo.Context) error {
	if h.records == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	removed, err := h.records.Dedupe(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("dedupe", err))
	}

	if h.logger != nil {
		h.logger.Info("🧹 Warehouse deduplicated", zap.Int64("removed", removed))
	}
	return HandleSuccess(h.logger, c, dto.DedupeResponse{Removed: removed})
}

// ListMappings lists client-name mappings
// @Summary      List client mappings
// @Tags         Client Mappings
// @Produce      json
// @Router       /v1/client-mappings [get]
func (h *Records) ListMappings(c echo.Context) error {
	if h.mappings == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	mappings, err := h.mappings.List(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("list client mappings", err))
	}
	return HandleSuccess(h.logger, c, mappings)
}

// SaveMapping adds or replaces a client-name mapping
// @Summary      Save client mapping
// @Tags         Client Mappings
// @Accept       json
// @Produce      json
// @Param        request  body  pipeline.ClientMappingRequest  true  "Mapping"
// @Router       /v1/client-mappings [post]
func (h *Records) SaveMapping(c echo.Context) error {
	if h.mappings == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	var req dto.ClientMappingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	mapping := &entities.ClientMapping{
		VariantName:   req.VariantName,
		CanonicalName: req.CanonicalName,
		Notes:         req.Notes,
	}
	if err := h.mappings.Save(c.Request().Context(), mapping); err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleSuccess(h.logger, c, mapping)
}

// DeleteMapping removes the mapping for a variant
// @Summary      Delete client mapping
// @Tags         Client Mappings
// @Param        variant  query  string  true  "Variant name"
// @Router       /v1/client-mappings [delete]
func (h *Records) DeleteMapping(c echo.Context) error {
	if h.mappings == nil {
		return HandleError(h.logger, c, errors.ErrUnavailable("warehouse"))
	}
	variant := c.QueryParam("variant")
	if variant == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("variant is required"))
	}
	if err := h.mappings.Delete(c.Request().Context(), variant); err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleSuccess(h.logger, c, map[string]string{"deleted": variant})
}
