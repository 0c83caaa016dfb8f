package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/service"
	"certhub/backend/pkg/response"
)

// SessionHandler serves the training session endpoints.
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Create registers a training session and triggers exam auto-scheduling.
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	creatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), creatorID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// Get returns one session with its exam, when one exists.
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// List returns sessions with optional creator filtering.
// GET /api/v1/sessions?created_by=xxx
func (h *SessionHandler) List(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	sessions, total, err := h.sessionSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, sessions, total, req.GetPage(), req.GetPageSize())
}

// Update changes a session; a new slot list replaces the old one.
// PUT /api/v1/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Update(c.Request.Context(), requesterID, c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// Delete removes a session and cancels its exam.
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessionSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// Enroll adds the calling student to a session.
// POST /api/v1/sessions/:id/enroll
func (h *SessionHandler) Enroll(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Enroll(c.Request.Context(), studentID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrAlreadyEnrolled) {
			response.Error(c, http.StatusConflict, 13005, "already enrolled in this session")
			return
		}
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, nil)
}

func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	var conflict *service.SlotConflictError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13004, "training session not found")
	case errors.Is(err, service.ErrInvalidSlotDate),
		errors.Is(err, service.ErrInvalidSlotTime),
		errors.Is(err, service.ErrSlotOutsideWindow):
		response.BadRequest(c, 13002, err.Error())
	case errors.As(err, &conflict):
		response.Conflict(c, 13003, conflict.Message, conflict.Conflicts)
	default:
		response.InternalError(c)
	}
}
