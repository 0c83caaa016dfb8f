package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"certhub/backend/config"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
)

// Sentinel assignment reasons. A missing examiner is a representable
// outcome, not an error; exams are persisted carrying one of these.
const (
	ReasonNoExaminers   = "No examiners available for this time slot"
	ReasonAllAtCapacity = "All available examiners have reached their daily limit"
)

// AssignmentDecision is the resolver's outcome. Examiner is nil for the
// sentinel cases; Reason is always non-empty.
type AssignmentDecision struct {
	Examiner *model.User
	Reason   string
}

// Assigned reports whether the decision carries an examiner.
func (d *AssignmentDecision) Assigned() bool { return d.Examiner != nil }

// AssignmentResolver selects an examiner for a candidate exam window under
// availability and workload constraints.
type AssignmentResolver interface {
	// Resolve never fails for "no examiner found"; it returns an error only
	// when a data access operation fails.
	Resolve(ctx context.Context, date time.Time, startTime string, durationMinutes int, exclude map[string]bool) (*AssignmentDecision, error)
}

type assignmentResolver struct {
	repo   *repository.Repository
	cfg    *config.SchedulingConfig
	logger *zap.Logger
}

// NewAssignmentResolver creates an AssignmentResolver.
func NewAssignmentResolver(cfg *config.SchedulingConfig, repo *repository.Repository, logger *zap.Logger) AssignmentResolver {
	return &assignmentResolver{repo: repo, cfg: cfg, logger: logger}
}

// rankedCandidate pairs an available examiner with the day's workload.
type rankedCandidate struct {
	user     model.User
	workload int64
	limit    int
}

func (r *assignmentResolver) Resolve(ctx context.Context, date time.Time, startTime string, durationMinutes int, exclude map[string]bool) (*AssignmentDecision, error) {
	start, err := combineDateTime(date, startTime)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	// 1. availability: windows fully containing the exam interval
	windows, err := r.repo.Availability.ListCovering(ctx, start, end)
	if err != nil {
		r.logger.Error("query covering availability failed", zap.Error(err))
		return nil, err
	}

	candidateIDs := make([]string, 0, len(windows))
	seen := make(map[string]bool, len(windows))
	for _, w := range windows {
		if exclude[w.ExaminerID] || seen[w.ExaminerID] {
			continue
		}
		seen[w.ExaminerID] = true
		candidateIDs = append(candidateIDs, w.ExaminerID)
	}

	if len(candidateIDs) == 0 {
		return &AssignmentDecision{Reason: ReasonNoExaminers}, nil
	}

	users, err := r.repo.User.ListByIDs(ctx, candidateIDs)
	if err != nil {
		r.logger.Error("load candidate examiners failed", zap.Error(err))
		return nil, err
	}

	// 2. workload: drop candidates at their per-day cap
	eligible := make([]rankedCandidate, 0, len(users))
	for _, u := range users {
		workload, err := r.repo.Exam.CountByExaminerOnDate(ctx, u.UserID, date)
		if err != nil {
			r.logger.Error("count examiner workload failed",
				zap.String("examiner_id", u.UserID), zap.Error(err))
			return nil, err
		}

		limit := r.cfg.DefaultMaxExamsPerDay
		if u.MaxExamsPerDay != nil {
			limit = *u.MaxExamsPerDay
		}
		if workload >= int64(limit) {
			continue
		}
		eligible = append(eligible, rankedCandidate{user: u, workload: workload, limit: limit})
	}

	if len(eligible) == 0 {
		return &AssignmentDecision{Reason: ReasonAllAtCapacity}, nil
	}

	// 3. rank: lower priority number wins, then lower current load.
	// Remaining ties break on examiner ID so the ordering is total and
	// stable across runs.
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.user.Priority != b.user.Priority {
			return a.user.Priority < b.user.Priority
		}
		if a.workload != b.workload {
			return a.workload < b.workload
		}
		return a.user.UserID < b.user.UserID
	})

	chosen := eligible[0]
	user := chosen.user
	return &AssignmentDecision{
		Examiner: &user,
		Reason: fmt.Sprintf("Assigned %s (priority %d, %d of %d exams that day)",
			user.Name, user.Priority, chosen.workload, chosen.limit),
	}, nil
}
