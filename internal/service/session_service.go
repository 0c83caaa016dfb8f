package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"certhub/backend/config"
	"certhub/backend/internal/dto"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
)

var (
	ErrSessionNotFound   = errors.New("training session not found")
	ErrInvalidSlotDate   = errors.New("invalid class date, expected YYYY-MM-DD")
	ErrInvalidSlotTime   = errors.New("invalid class time, expected HH:MM")
	ErrSlotOutsideWindow = errors.New("class start time is outside the allowed window")
	ErrAlreadyEnrolled   = errors.New("student is already enrolled in this session")
)

// SessionService manages training sessions and their class slots.
//
// Creating a session triggers exam auto-scheduling after the session write
// has committed, so the exam derivation always sees durable slot data.
type SessionService interface {
	Create(ctx context.Context, creatorID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error)
	Update(ctx context.Context, requesterID, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	Delete(ctx context.Context, sessionID string) error
	Enroll(ctx context.Context, studentID, sessionID string) error
}

type sessionService struct {
	repo        *repository.Repository
	examService ExamService
	cfg         *config.SchedulingConfig
	logger      *zap.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(cfg *config.SchedulingConfig, repo *repository.Repository, examService ExamService, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, examService: examService, cfg: cfg, logger: logger}
}

// ════════════════════════════════════════════
// creation
// ════════════════════════════════════════════

func (s *sessionService) Create(ctx context.Context, creatorID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	slots, err := s.buildSlots(req.ClassSlots)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlotConflicts(ctx, creatorID, "", slots); err != nil {
		return nil, err
	}

	session := &model.TrainingSession{
		Title:       req.Title,
		Description: req.Description,
		IsLive:      req.IsLive,
		Location:    req.Location,
		OnlineLink:  req.OnlineLink,
		CreatedByID: creatorID,
		ClassSlots:  slots,
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		return nil, err
	}

	// the session write is committed at this point; schedule the exam off
	// the request path so a slow resolver never delays the response
	s.scheduleAfterCommit(session.SessionID)

	return s.GetByID(ctx, session.SessionID)
}

// scheduleAfterCommit runs exam auto-scheduling in the background. The exam
// service re-checks for an existing exam, so a duplicate trigger is safe.
func (s *sessionService) scheduleAfterCommit(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.examService.AutoScheduleSession(ctx, sessionID); err != nil {
			s.logger.Error("auto-scheduling after session creation failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}

// ════════════════════════════════════════════
// queries
// ════════════════════════════════════════════

func (s *sessionService) GetByID(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	resp := toSessionResponse(session)
	resp.Exam = s.resolveExam(ctx, sessionID)
	return &resp, nil
}

func (s *sessionService) List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	sessions, total, err := s.repo.Session.List(ctx, req.CreatedBy, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		return nil, 0, err
	}

	responses := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp := toSessionResponse(&sessions[i])
		resp.Exam = s.resolveExam(ctx, sessions[i].SessionID)
		responses = append(responses, resp)
	}
	return responses, total, nil
}

// resolveExam looks up the session's exam by query. A session without an
// exam is a normal state (auto-scheduling pending, or the exam was
// cancelled), so a miss produces nil rather than an error.
func (s *sessionService) resolveExam(ctx context.Context, sessionID string) *dto.ExamResponse {
	exam, err := s.repo.Exam.GetBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("resolve session exam failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil
	}
	resp := toExamResponse(exam)
	return &resp
}

// ════════════════════════════════════════════
// mutation
// ════════════════════════════════════════════

func (s *sessionService) Update(ctx context.Context, requesterID, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.IsLive != nil {
		session.IsLive = *req.IsLive
	}
	if req.Location != nil {
		session.Location = req.Location
	}
	if req.OnlineLink != nil {
		session.OnlineLink = req.OnlineLink
	}
	session.UpdatedBy = &requesterID

	if req.ClassSlots != nil {
		slots, err := s.buildSlots(req.ClassSlots)
		if err != nil {
			return nil, err
		}
		if err := s.checkSlotConflicts(ctx, session.CreatedByID, sessionID, slots); err != nil {
			return nil, err
		}
		for i := range slots {
			slots[i].SessionID = sessionID
		}
		if err := s.repo.Session.ReplaceSlots(ctx, sessionID, slots); err != nil {
			s.logger.Error("replace class slots failed", zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
	}

	if err := s.repo.Session.Update(ctx, session); err != nil {
		s.logger.Error("update session failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, sessionID)
}

// Delete removes the session and cancels its exam if one exists.
func (s *sessionService) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.repo.Session.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	exam, err := s.repo.Exam.GetBySession(ctx, sessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("look up session exam failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	if exam != nil {
		if err := s.examService.Cancel(ctx, exam.CreatedByID, exam.ExamID); err != nil && !errors.Is(err, ErrExamNotFound) {
			return err
		}
	}

	if err := s.repo.Session.Delete(ctx, sessionID); err != nil {
		s.logger.Error("delete session failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (s *sessionService) Enroll(ctx context.Context, studentID, sessionID string) error {
	if _, err := s.repo.Session.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	enrollments, err := s.repo.Enrollment.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("list enrollments failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	for _, e := range enrollments {
		if e.StudentID == studentID {
			return ErrAlreadyEnrolled
		}
	}

	enrollment := &model.Enrollment{SessionID: sessionID, StudentID: studentID}
	if err := s.repo.Enrollment.Create(ctx, enrollment); err != nil {
		s.logger.Error("create enrollment failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

// ── helpers ──

// buildSlots validates and converts the requested class slots. Position
// preserves request order, independent of date order.
func (s *sessionService) buildSlots(requests []dto.ClassSlotRequest) ([]model.ClassSlot, error) {
	earliest, err := parseClock(s.cfg.EarliestSlotStart)
	if err != nil {
		return nil, err
	}
	latest, err := parseClock(s.cfg.LatestSlotStart)
	if err != nil {
		return nil, err
	}

	slots := make([]model.ClassSlot, 0, len(requests))
	for i, r := range requests {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, ErrInvalidSlotDate
		}
		start, err := parseClock(r.Time)
		if err != nil {
			return nil, ErrInvalidSlotTime
		}
		if start < earliest || start >= latest {
			return nil, ErrSlotOutsideWindow
		}
		slots = append(slots, model.ClassSlot{
			Date:            truncateToDay(date),
			StartTime:       r.Time,
			DurationMinutes: r.DurationMinutes,
			Position:        i,
		})
	}
	return slots, nil
}

// checkSlotConflicts rejects the new slot list when any slot overlaps
// another slot in the same request, or any slot of the creator's other
// sessions. excludeSessionID skips the session being updated.
func (s *sessionService) checkSlotConflicts(ctx context.Context, creatorID, excludeSessionID string, slots []model.ClassSlot) error {
	var conflicts []dto.ClassSlotResponse

	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slotsOverlap(slots[i].Date, slots[i].StartTime, slots[i].DurationMinutes,
				slots[j].Date, slots[j].StartTime, slots[j].DurationMinutes) {
				conflicts = append(conflicts, toClassSlotResponse(&slots[j]))
			}
		}
	}
	if len(conflicts) > 0 {
		return &SlotConflictError{
			Message:   "class slots in the request overlap each other",
			Conflicts: conflicts,
		}
	}

	existing, err := s.repo.Session.ListSlotsByCreator(ctx, creatorID, excludeSessionID)
	if err != nil {
		s.logger.Error("list creator class slots failed", zap.Error(err))
		return err
	}

	for i := range slots {
		for j := range existing {
			if slotsOverlap(slots[i].Date, slots[i].StartTime, slots[i].DurationMinutes,
				existing[j].Date, existing[j].StartTime, existing[j].DurationMinutes) {
				conflicts = append(conflicts, toClassSlotResponse(&existing[j]))
			}
		}
	}
	if len(conflicts) > 0 {
		return &SlotConflictError{
			Message:   "class slots overlap the creator's existing sessions",
			Conflicts: conflicts,
		}
	}
	return nil
}

func toClassSlotResponse(slot *model.ClassSlot) dto.ClassSlotResponse {
	return dto.ClassSlotResponse{
		ID:              slot.ClassSlotID,
		Date:            slot.Date.Format("2006-01-02"),
		Time:            slot.StartTime,
		DurationMinutes: slot.DurationMinutes,
	}
}

// toSessionResponse converts a session row. The exam is attached by the
// caller after a separate lookup.
func toSessionResponse(session *model.TrainingSession) dto.SessionResponse {
	slots := make([]dto.ClassSlotResponse, 0, len(session.ClassSlots))
	for i := range session.ClassSlots {
		slots = append(slots, toClassSlotResponse(&session.ClassSlots[i]))
	}
	return dto.SessionResponse{
		ID:          session.SessionID,
		Title:       session.Title,
		Description: session.Description,
		IsLive:      session.IsLive,
		Location:    session.Location,
		OnlineLink:  session.OnlineLink,
		CreatedBy:   session.CreatedByID,
		ClassSlots:  slots,
		CreatedAt:   session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   session.UpdatedAt.Format(time.RFC3339),
	}
}
