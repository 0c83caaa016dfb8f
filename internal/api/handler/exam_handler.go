package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/service"
	pkgerrors "certhub/backend/pkg/errors"
	"certhub/backend/pkg/response"
)

// ExamHandler serves the exam scheduling endpoints.
type ExamHandler struct {
	examSvc service.ExamService
}

// NewExamHandler creates an ExamHandler.
func NewExamHandler(examSvc service.ExamService) *ExamHandler {
	return &ExamHandler{examSvc: examSvc}
}

// Schedule books an exam for a session and runs examiner assignment.
// The exam is persisted with a sentinel reason even when no examiner
// qualifies.
// POST /api/v1/exams
func (h *ExamHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	exam, err := h.examSvc.Schedule(c.Request.Context(), requesterID, &req)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.Created(c, exam)
}

// Reschedule changes an exam's slot or venue; slot changes re-run
// examiner assignment.
// PUT /api/v1/exams/:id
func (h *ExamHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	exam, err := h.examSvc.Reschedule(c.Request.Context(), requesterID, c.Param("id"), &req)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, exam)
}

// Cancel deletes an exam and notifies the affected parties.
// DELETE /api/v1/exams/:id
func (h *ExamHandler) Cancel(c *gin.Context) {
	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.examSvc.Cancel(c.Request.Context(), requesterID, c.Param("id")); err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, nil)
}

// Get returns one exam.
// GET /api/v1/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.examSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, exam)
}

// List returns exams filtered by date, session or examiner.
// GET /api/v1/exams
func (h *ExamHandler) List(c *gin.Context) {
	var req dto.ExamListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "request validation failed")
		return
	}

	exams, total, err := h.examSvc.List(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExamDate) {
			response.BadRequest(c, 14001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OKPage(c, exams, total, req.GetPage(), req.GetPageSize())
}

func (h *ExamHandler) handleExamError(c *gin.Context, err error) {
	var conflict *service.SlotConflictError
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.NotFound(c, 14004, "exam not found")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13004, "training session not found")
	case errors.Is(err, service.ErrExamAlreadyScheduled):
		response.Error(c, http.StatusConflict, 14002, "an exam is already scheduled for this session")
	case errors.Is(err, service.ErrInvalidExamDate),
		errors.Is(err, service.ErrInvalidExamTime),
		errors.Is(err, service.ErrExamOutsideWindow):
		response.BadRequest(c, 14001, err.Error())
	case errors.As(err, &conflict):
		response.Conflict(c, 14003, conflict.Message, conflict.Conflicts)
	case errors.Is(err, pkgerrors.ErrExaminerAtCapacity):
		response.Error(c, http.StatusConflict, 14006, "examiner has reached the daily exam limit")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 14005, "exam was modified by another operation, refresh and retry")
	default:
		response.InternalError(c)
	}
}
