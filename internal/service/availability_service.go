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
	ErrWindowNotFound     = errors.New("availability window not found")
	ErrNotWindowOwner     = errors.New("availability window belongs to another examiner")
	ErrWindowInvalidRange = errors.New("availability end must be after its start")
	ErrWindowInvalidStamp = errors.New("invalid timestamp, expected RFC 3339")
)

// AvailabilityService manages examiner availability windows.
//
// Revoking a window cascades over the exams it was backing: each affected
// exam is independently reassigned to another available examiner, or
// cancelled when none exists. One exam's failure never blocks the rest.
type AvailabilityService interface {
	Create(ctx context.Context, examinerID string, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	ListByExaminer(ctx context.Context, examinerID string) ([]dto.AvailabilityResponse, error)
	Revoke(ctx context.Context, requesterID, requesterRole, availabilityID string) (*dto.RevocationResponse, error)
	ImportICS(ctx context.Context, examinerID string, req *dto.ImportAvailabilityICSRequest) (*dto.ImportAvailabilityICSResponse, error)
}

type availabilityService struct {
	repo     *repository.Repository
	resolver AssignmentResolver
	notifier Notifier
	cfg      *config.SchedulingConfig
	logger   *zap.Logger
}

// NewAvailabilityService creates an AvailabilityService.
func NewAvailabilityService(cfg *config.SchedulingConfig, repo *repository.Repository, resolver AssignmentResolver, notifier Notifier, logger *zap.Logger) AvailabilityService {
	return &availabilityService{repo: repo, resolver: resolver, notifier: notifier, cfg: cfg, logger: logger}
}

// ════════════════════════════════════════════
// declaration
// ════════════════════════════════════════════

func (s *availabilityService) Create(ctx context.Context, examinerID string, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	from, to, err := parseWindowRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	window, err := s.createWindow(ctx, examinerID, from, to)
	if err != nil {
		return nil, err
	}

	resp := toAvailabilityResponse(window)
	return &resp, nil
}

// createWindow validates against the examiner's existing windows and
// persists. Shared by the manual and the ICS import paths.
func (s *availabilityService) createWindow(ctx context.Context, examinerID string, from, to time.Time) (*model.AvailabilityWindow, error) {
	overlapping, err := s.repo.Availability.ListOverlapping(ctx, examinerID, from, to)
	if err != nil {
		s.logger.Error("list overlapping windows failed", zap.Error(err))
		return nil, err
	}
	if len(overlapping) > 0 {
		conflicts := make([]dto.AvailabilityResponse, 0, len(overlapping))
		for i := range overlapping {
			conflicts = append(conflicts, toAvailabilityResponse(&overlapping[i]))
		}
		return nil, &SlotConflictError{
			Message:   "availability window overlaps existing windows",
			Conflicts: conflicts,
		}
	}

	window := &model.AvailabilityWindow{
		ExaminerID:    examinerID,
		AvailableFrom: from,
		AvailableTo:   to,
	}
	if err := s.repo.Availability.Create(ctx, window); err != nil {
		s.logger.Error("create availability window failed", zap.Error(err))
		return nil, err
	}
	return window, nil
}

func (s *availabilityService) ListByExaminer(ctx context.Context, examinerID string) ([]dto.AvailabilityResponse, error) {
	windows, err := s.repo.Availability.ListByExaminer(ctx, examinerID)
	if err != nil {
		s.logger.Error("list availability windows failed", zap.Error(err))
		return nil, err
	}

	responses := make([]dto.AvailabilityResponse, 0, len(windows))
	for i := range windows {
		responses = append(responses, toAvailabilityResponse(&windows[i]))
	}
	return responses, nil
}

// ════════════════════════════════════════════
// revocation cascade
// ════════════════════════════════════════════

func (s *availabilityService) Revoke(ctx context.Context, requesterID, requesterRole, availabilityID string) (*dto.RevocationResponse, error) {
	window, err := s.repo.Availability.GetByID(ctx, availabilityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWindowNotFound
		}
		s.logger.Error("load availability window failed", zap.String("availability_id", availabilityID), zap.Error(err))
		return nil, err
	}
	if window.ExaminerID != requesterID && requesterRole != model.RoleCoordinator {
		return nil, ErrNotWindowOwner
	}

	// remove the window first: the cascade's coverage checks and the
	// resolver must not see the revoked interval as available
	if err := s.repo.Availability.Delete(ctx, availabilityID); err != nil {
		s.logger.Error("delete availability window failed", zap.String("availability_id", availabilityID), zap.Error(err))
		return nil, err
	}

	outcomes := s.cascade(ctx, window)

	resp := &dto.RevocationResponse{
		Removed:  toAvailabilityResponse(window),
		Message:  fmt.Sprintf("availability window removed, %d exams affected", len(outcomes)),
		Outcomes: outcomes,
	}
	return resp, nil
}

// cascade walks the examiner's exams inside the removed window and resolves
// each one independently.
func (s *availabilityService) cascade(ctx context.Context, window *model.AvailabilityWindow) []dto.CascadeOutcome {
	exams, err := s.repo.Exam.ListByExaminerWithin(ctx, window.ExaminerID, window.AvailableFrom, window.AvailableTo)
	if err != nil {
		s.logger.Error("list exams within revoked window failed",
			zap.String("examiner_id", window.ExaminerID), zap.Error(err))
		return []dto.CascadeOutcome{{Status: dto.CascadeStatusError, Detail: "could not enumerate affected exams"}}
	}

	outcomes := make([]dto.CascadeOutcome, 0, len(exams))
	for i := range exams {
		exam := &exams[i]

		covered, err := s.stillCovered(ctx, exam, window.ExaminerID)
		if err != nil {
			outcomes = append(outcomes, dto.CascadeOutcome{
				ExamID: exam.ExamID,
				Status: dto.CascadeStatusError,
				Detail: "coverage check failed",
			})
			continue
		}
		if covered {
			// another window of the same examiner still backs this exam
			continue
		}

		outcomes = append(outcomes, s.resolveAffected(ctx, exam, window.ExaminerID))
	}
	return outcomes
}

// stillCovered reports whether any of the examiner's remaining windows
// fully contains the exam's interval.
func (s *availabilityService) stillCovered(ctx context.Context, exam *model.Exam, examinerID string) (bool, error) {
	start, err := combineDateTime(exam.Date, exam.StartTime)
	if err != nil {
		return false, err
	}
	end := start.Add(time.Duration(exam.DurationMinutes) * time.Minute)

	windows, err := s.repo.Availability.ListCovering(ctx, start, end)
	if err != nil {
		s.logger.Error("list covering windows failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
		return false, err
	}
	for _, w := range windows {
		if w.ExaminerID == examinerID {
			return true, nil
		}
	}
	return false, nil
}

// resolveAffected reassigns one orphaned exam or cancels it. The revoking
// examiner is excluded from every resolver run.
func (s *availabilityService) resolveAffected(ctx context.Context, exam *model.Exam, revokedExaminerID string) dto.CascadeOutcome {
	exclude := map[string]bool{revokedExaminerID: true}
	for {
		decision, err := s.resolver.Resolve(ctx, exam.Date, exam.StartTime, exam.DurationMinutes, exclude)
		if err != nil {
			s.logger.Error("resolve replacement examiner failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
			return dto.CascadeOutcome{
				ExamID: exam.ExamID,
				Status: dto.CascadeStatusError,
				Detail: "replacement resolution failed",
			}
		}

		if !decision.Assigned() {
			return s.cancelAffected(ctx, exam)
		}

		err = s.repo.Exam.Reassign(ctx, exam, decision.Examiner.UserID, decision.Reason, s.cfg.DefaultMaxExamsPerDay)
		if err == nil {
			s.notifier.ExamReassigned(ctx, exam)
			return dto.CascadeOutcome{
				ExamID: exam.ExamID,
				Status: dto.CascadeStatusReassigned,
				Detail: decision.Reason,
			}
		}
		if errors.Is(err, pkgerrors.ErrExaminerAtCapacity) {
			exclude[decision.Examiner.UserID] = true
			continue
		}
		s.logger.Error("reassign exam failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
		return dto.CascadeOutcome{
			ExamID: exam.ExamID,
			Status: dto.CascadeStatusError,
			Detail: "reassignment write failed",
		}
	}
}

func (s *availabilityService) cancelAffected(ctx context.Context, exam *model.Exam) dto.CascadeOutcome {
	if err := s.repo.Exam.Delete(ctx, exam.ExamID); err != nil {
		s.logger.Error("cancel exam failed", zap.String("exam_id", exam.ExamID), zap.Error(err))
		return dto.CascadeOutcome{
			ExamID: exam.ExamID,
			Status: dto.CascadeStatusError,
			Detail: "cancellation write failed",
		}
	}
	s.notifier.ExamCancelled(ctx, exam, "the assigned examiner withdrew availability and no replacement was found")
	return dto.CascadeOutcome{
		ExamID: exam.ExamID,
		Status: dto.CascadeStatusCancelled,
		Detail: "no replacement examiner available",
	}
}

// ════════════════════════════════════════════
// ICS import
// ════════════════════════════════════════════

// ImportICS turns a calendar feed's events into availability windows.
// Windows overlapping existing declarations are skipped, not errors; the
// response reports both counts.
func (s *availabilityService) ImportICS(ctx context.Context, examinerID string, req *dto.ImportAvailabilityICSRequest) (*dto.ImportAvailabilityICSResponse, error) {
	content := req.Content
	if content == "" {
		if req.URL == "" {
			return nil, ErrICSNoInput
		}
		fetched, err := fetchICS(ctx, req.URL)
		if err != nil {
			s.logger.Error("fetch ics feed failed", zap.String("url", req.URL), zap.Error(err))
			return nil, err
		}
		content = fetched
	}

	intervals, err := parseAvailabilityICS(content)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportAvailabilityICSResponse{}
	for _, iv := range intervals {
		window, err := s.createWindow(ctx, examinerID, iv.from, iv.to)
		if err != nil {
			var conflictErr *SlotConflictError
			if errors.As(err, &conflictErr) {
				resp.Skipped++
				continue
			}
			return nil, err
		}
		resp.Imported++
		resp.Windows = append(resp.Windows, toAvailabilityResponse(window))
	}
	return resp, nil
}

// ── helpers ──

func parseWindowRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrWindowInvalidStamp
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrWindowInvalidStamp
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrWindowInvalidRange
	}
	return from.UTC(), to.UTC(), nil
}

func toAvailabilityResponse(window *model.AvailabilityWindow) dto.AvailabilityResponse {
	return dto.AvailabilityResponse{
		ID:         window.AvailabilityID,
		ExaminerID: window.ExaminerID,
		From:       window.AvailableFrom.Format(time.RFC3339),
		To:         window.AvailableTo.Format(time.RFC3339),
		CreatedAt:  window.CreatedAt.Format(time.RFC3339),
	}
}
