package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"certhub/backend/config"
	"certhub/backend/internal/dto"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
	pkgerrors "certhub/backend/pkg/errors"
)

var (
	ErrExamNotFound         = errors.New("exam not found")
	ErrExamAlreadyScheduled = errors.New("an exam is already scheduled for this session")
	ErrInvalidExamDate      = errors.New("invalid exam date, expected YYYY-MM-DD")
	ErrInvalidExamTime      = errors.New("invalid exam time, expected HH:MM")
	ErrExamOutsideWindow    = errors.New("exam start time is outside the allowed window")
)

// ExamService schedules, reschedules and cancels exams. Every write path
// runs the assignment resolver; exams are persisted even when no examiner
// could be assigned, carrying the sentinel reason instead.
type ExamService interface {
	Schedule(ctx context.Context, requesterID string, req *dto.ScheduleExamRequest) (*dto.ExamResponse, error)
	Reschedule(ctx context.Context, requesterID, examID string, req *dto.RescheduleExamRequest) (*dto.ExamResponse, error)
	Cancel(ctx context.Context, requesterID, examID string) error
	GetByID(ctx context.Context, examID string) (*dto.ExamResponse, error)
	List(ctx context.Context, req *dto.ExamListRequest) ([]dto.ExamResponse, int64, error)

	// AutoScheduleSession derives and persists the exam for a freshly
	// created session. Idempotent: a session that already has an exam is
	// left untouched.
	AutoScheduleSession(ctx context.Context, sessionID string) error
}

type examService struct {
	repo     *repository.Repository
	resolver AssignmentResolver
	notifier Notifier
	cfg      *config.SchedulingConfig
	logger   *zap.Logger
}

// NewExamService creates an ExamService.
func NewExamService(cfg *config.SchedulingConfig, repo *repository.Repository, resolver AssignmentResolver, notifier Notifier, logger *zap.Logger) ExamService {
	return &examService{repo: repo, resolver: resolver, notifier: notifier, cfg: cfg, logger: logger}
}

// ════════════════════════════════════════════
// manual scheduling
// ════════════════════════════════════════════

func (s *examService) Schedule(ctx context.Context, requesterID string, req *dto.ScheduleExamRequest) (*dto.ExamResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidExamDate
	}
	if err := s.validateManualStart(req.Time); err != nil {
		return nil, err
	}

	session, err := s.repo.Session.GetByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("load session failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil, err
	}

	if _, err := s.repo.Exam.GetBySession(ctx, session.SessionID); err == nil {
		return nil, ErrExamAlreadyScheduled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("look up session exam failed", zap.String("session_id", session.SessionID), zap.Error(err))
		return nil, err
	}

	if err := s.checkExamConflicts(ctx, date, req.Time, req.DurationMinutes, ""); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		SessionID:       session.SessionID,
		Date:            truncateToDay(date),
		StartTime:       req.Time,
		DurationMinutes: req.DurationMinutes,
		IsOnline:        req.IsOnline,
		Location:        req.Location,
		OnlineLink:      req.OnlineLink,
		CreatedByID:     requesterID,
	}

	if err := s.resolveAndCreate(ctx, exam); err != nil {
		return nil, err
	}

	s.notifier.ExamScheduled(ctx, exam)
	return s.GetByID(ctx, exam.ExamID)
}

// ════════════════════════════════════════════
// automatic scheduling (session post-commit hook)
// ════════════════════════════════════════════

func (s *examService) AutoScheduleSession(ctx context.Context, sessionID string) error {
	// idempotency: a second trigger for the same session is a no-op
	if _, err := s.repo.Exam.GetBySession(ctx, sessionID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("look up session exam failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// session deleted before the hook ran; nothing to schedule
			s.logger.Warn("session gone before auto-scheduling", zap.String("session_id", sessionID))
			return nil
		}
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	date, ok := computeExamDate(session.ClassSlots, s.cfg.ExamLeadDays)
	if !ok {
		s.logger.Warn("session has no class slots, skipping auto-scheduling",
			zap.String("session_id", sessionID))
		return nil
	}

	startTime := s.cfg.DefaultExamTime
	duration := s.cfg.DefaultExamDurationMinutes

	if err := s.checkExamConflicts(ctx, date, startTime, duration, ""); err != nil {
		var conflictErr *SlotConflictError
		if errors.As(err, &conflictErr) {
			return fmt.Errorf("derived exam slot for session %s is taken: %s", sessionID, conflictErr.Message)
		}
		return err
	}

	exam := &model.Exam{
		SessionID:       session.SessionID,
		Date:            date,
		StartTime:       startTime,
		DurationMinutes: duration,
		IsOnline:        !session.IsLive,
		Location:        session.Location,
		OnlineLink:      session.OnlineLink,
		CreatedByID:     session.CreatedByID,
	}

	if err := s.resolveAndCreate(ctx, exam); err != nil {
		return err
	}

	s.notifier.ExamScheduled(ctx, exam)
	return nil
}

// resolveAndCreate runs the resolver and persists the exam. When the
// capacity guard rejects the chosen examiner (cap filled between ranking
// and commit), that examiner is excluded and the resolver runs again, until
// either an insert succeeds or the sentinel outcome is reached.
func (s *examService) resolveAndCreate(ctx context.Context, exam *model.Exam) error {
	exclude := make(map[string]bool)
	for {
		decision, err := s.resolver.Resolve(ctx, exam.Date, exam.StartTime, exam.DurationMinutes, exclude)
		if err != nil {
			return err
		}

		if !decision.Assigned() {
			exam.AssignedExaminerID = nil
			exam.AssignmentReason = decision.Reason
			if err := s.repo.Exam.Create(ctx, exam); err != nil {
				s.logger.Error("persist unassigned exam failed", zap.Error(err))
				return err
			}
			return nil
		}

		exam.AssignedExaminerID = &decision.Examiner.UserID
		exam.AssignmentReason = decision.Reason
		err = s.repo.Exam.CreateAssigned(ctx, exam, s.cfg.DefaultMaxExamsPerDay)
		if err == nil {
			return nil
		}
		if errors.Is(err, pkgerrors.ErrExaminerAtCapacity) {
			s.logger.Info("examiner filled up concurrently, re-resolving",
				zap.String("examiner_id", decision.Examiner.UserID))
			exclude[decision.Examiner.UserID] = true
			continue
		}
		s.logger.Error("persist assigned exam failed", zap.Error(err))
		return err
	}
}

// ════════════════════════════════════════════
// rescheduling
// ════════════════════════════════════════════

func (s *examService) Reschedule(ctx context.Context, requesterID, examID string, req *dto.RescheduleExamRequest) (*dto.ExamResponse, error) {
	exam, err := s.repo.Exam.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		s.logger.Error("load exam failed", zap.String("exam_id", examID), zap.Error(err))
		return nil, err
	}

	slotChanged := false
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, ErrInvalidExamDate
		}
		exam.Date = truncateToDay(date)
		slotChanged = true
	}
	if req.Time != nil {
		exam.StartTime = *req.Time
		slotChanged = true
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
		slotChanged = true
	}
	if req.IsOnline != nil {
		exam.IsOnline = *req.IsOnline
	}
	if req.Location != nil {
		exam.Location = req.Location
	}
	if req.OnlineLink != nil {
		exam.OnlineLink = req.OnlineLink
	}
	exam.UpdatedBy = &requesterID

	if slotChanged {
		if err := s.validateManualStart(exam.StartTime); err != nil {
			return nil, err
		}
		if err := s.checkExamConflicts(ctx, exam.Date, exam.StartTime, exam.DurationMinutes, exam.ExamID); err != nil {
			return nil, err
		}
		// the previous assignment was made for the old slot; re-resolve
		if err := s.resolveAndUpdate(ctx, exam); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.Exam.Update(ctx, exam, s.cfg.DefaultMaxExamsPerDay); err != nil {
			s.logger.Error("update exam failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
			return nil, err
		}
	}

	s.notifier.ExamRescheduled(ctx, exam)
	return s.GetByID(ctx, exam.ExamID)
}

// resolveAndUpdate is resolveAndCreate's counterpart for moved exams: the
// write is an optimistic-lock update and the recount skips the exam's own
// row, so keeping the same examiner on the same day cannot self-collide.
func (s *examService) resolveAndUpdate(ctx context.Context, exam *model.Exam) error {
	exclude := make(map[string]bool)
	for {
		decision, err := s.resolver.Resolve(ctx, exam.Date, exam.StartTime, exam.DurationMinutes, exclude)
		if err != nil {
			return err
		}

		if decision.Assigned() {
			exam.AssignedExaminerID = &decision.Examiner.UserID
		} else {
			exam.AssignedExaminerID = nil
		}
		exam.AssignmentReason = decision.Reason

		err = s.repo.Exam.Update(ctx, exam, s.cfg.DefaultMaxExamsPerDay)
		if err == nil {
			return nil
		}
		if decision.Assigned() && errors.Is(err, pkgerrors.ErrExaminerAtCapacity) {
			s.logger.Info("examiner filled up concurrently, re-resolving",
				zap.String("examiner_id", decision.Examiner.UserID))
			exclude[decision.Examiner.UserID] = true
			continue
		}
		s.logger.Error("update exam failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
		return err
	}
}

// ════════════════════════════════════════════
// cancellation and queries
// ════════════════════════════════════════════

func (s *examService) Cancel(ctx context.Context, requesterID, examID string) error {
	exam, err := s.repo.Exam.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		s.logger.Error("load exam failed", zap.String("exam_id", examID), zap.Error(err))
		return err
	}

	if err := s.repo.Exam.Delete(ctx, examID); err != nil {
		s.logger.Error("delete exam failed", zap.String("exam_id", examID), zap.Error(err))
		return err
	}

	s.notifier.ExamCancelled(ctx, exam, "cancelled by the coordinator")
	return nil
}

func (s *examService) GetByID(ctx context.Context, examID string) (*dto.ExamResponse, error) {
	exam, err := s.repo.Exam.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		s.logger.Error("load exam failed", zap.String("exam_id", examID), zap.Error(err))
		return nil, err
	}
	resp := toExamResponse(exam)
	return &resp, nil
}

func (s *examService) List(ctx context.Context, req *dto.ExamListRequest) ([]dto.ExamResponse, int64, error) {
	var date *time.Time
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, 0, ErrInvalidExamDate
		}
		date = &d
	}

	exams, total, err := s.repo.Exam.List(ctx, date, req.SessionID, req.ExaminerID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list exams failed", zap.Error(err))
		return nil, 0, err
	}

	responses := make([]dto.ExamResponse, 0, len(exams))
	for i := range exams {
		responses = append(responses, toExamResponse(&exams[i]))
	}
	return responses, total, nil
}

// ── helpers ──

// validateManualStart enforces the start window for coordinator-requested
// slots: on or after the earliest start, strictly before the manual cutoff.
func (s *examService) validateManualStart(clock string) error {
	start, err := parseClock(clock)
	if err != nil {
		return ErrInvalidExamTime
	}
	earliest, err := parseClock(s.cfg.EarliestSlotStart)
	if err != nil {
		return err
	}
	cutoff, err := parseClock(s.cfg.LatestManualExamStart)
	if err != nil {
		return err
	}
	if start < earliest || start >= cutoff {
		return ErrExamOutsideWindow
	}
	return nil
}

// checkExamConflicts rejects a slot overlapping any other exam on the same
// calendar day. excludeExamID skips the exam being moved.
func (s *examService) checkExamConflicts(ctx context.Context, date time.Time, startTime string, duration int, excludeExamID string) error {
	existing, err := s.repo.Exam.ListOnDate(ctx, date, excludeExamID)
	if err != nil {
		s.logger.Error("list exams on date failed", zap.Error(err))
		return err
	}

	var conflicts []dto.ExamResponse
	for i := range existing {
		e := &existing[i]
		if slotsOverlap(date, startTime, duration, e.Date, e.StartTime, e.DurationMinutes) {
			conflicts = append(conflicts, toExamResponse(e))
		}
	}
	if len(conflicts) > 0 {
		return &SlotConflictError{
			Message:   "requested slot overlaps existing exams",
			Conflicts: conflicts,
		}
	}
	return nil
}

// toExamResponse converts an exam row, with its optional preloaded
// examiner, to the API payload.
func toExamResponse(exam *model.Exam) dto.ExamResponse {
	resp := dto.ExamResponse{
		ID:               exam.ExamID,
		SessionID:        exam.SessionID,
		Date:             exam.Date.Format("2006-01-02"),
		Time:             exam.StartTime,
		DurationMinutes:  exam.DurationMinutes,
		IsOnline:         exam.IsOnline,
		Location:         exam.Location,
		OnlineLink:       exam.OnlineLink,
		CreatedBy:        exam.CreatedByID,
		AssignmentReason: exam.AssignmentReason,
		CreatedAt:        exam.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        exam.UpdatedAt.Format(time.RFC3339),
	}
	if exam.AssignedExaminer != nil {
		u := toUserResponse(exam.AssignedExaminer)
		resp.AssignedExaminer = &u
	}
	return resp
}
