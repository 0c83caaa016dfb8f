package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/service"
	"certhub/backend/pkg/response"
)

// AvailabilityHandler serves the examiner availability endpoints.
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler creates an AvailabilityHandler.
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// Create declares one availability window for the calling examiner.
// POST /api/v1/availability
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	examinerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	window, err := h.availabilitySvc.Create(c.Request.Context(), examinerID, &req)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.Created(c, window)
}

// ListMine returns the calling examiner's windows.
// GET /api/v1/availability
func (h *AvailabilityHandler) ListMine(c *gin.Context) {
	examinerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	windows, err := h.availabilitySvc.ListByExaminer(c.Request.Context(), examinerID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": windows})
}

// Revoke removes a window and cascades over the exams it was covering.
// DELETE /api/v1/availability/:id
func (h *AvailabilityHandler) Revoke(c *gin.Context) {
	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	requesterRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.Revoke(c.Request.Context(), requesterID, requesterRole, c.Param("id"))
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportICS creates windows from an iCalendar feed, by URL or inline.
// POST /api/v1/availability/import-ics
func (h *AvailabilityHandler) ImportICS(c *gin.Context) {
	var req dto.ImportAvailabilityICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	examinerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.ImportICS(c.Request.Context(), examinerID, &req)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AvailabilityHandler) handleAvailabilityError(c *gin.Context, err error) {
	var conflict *service.SlotConflictError
	switch {
	case errors.Is(err, service.ErrWindowNotFound):
		response.NotFound(c, 15003, "availability window not found")
	case errors.Is(err, service.ErrNotWindowOwner):
		response.Forbidden(c, 15004, "availability window belongs to another examiner")
	case errors.Is(err, service.ErrWindowInvalidRange),
		errors.Is(err, service.ErrWindowInvalidStamp):
		response.BadRequest(c, 15001, err.Error())
	case errors.Is(err, service.ErrICSNoInput):
		response.BadRequest(c, 15005, "either an ICS URL or inline content is required")
	case errors.Is(err, service.ErrICSInvalid):
		response.BadRequest(c, 15006, "calendar content could not be parsed")
	case errors.As(err, &conflict):
		response.Conflict(c, 15002, conflict.Message, conflict.Conflicts)
	default:
		response.InternalError(c)
	}
}
