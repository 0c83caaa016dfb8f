package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"certhub/backend/internal/model"
	pkgerrors "certhub/backend/pkg/errors"
)

// ExamRepository is the exams data access interface.
//
// CreateAssigned and Reassign carry the capacity guard: the workload count
// and the write happen in one transaction holding a row lock on the
// examiner, so concurrent scheduling cannot oversubscribe a per-day cap.
type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	CreateAssigned(ctx context.Context, exam *model.Exam, defaultMaxPerDay int) error
	GetByID(ctx context.Context, id string) (*model.Exam, error)
	GetBySession(ctx context.Context, sessionID string) (*model.Exam, error)
	ListOnDate(ctx context.Context, date time.Time, excludeExamID string) ([]model.Exam, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Exam, error)
	ListByExaminerWithin(ctx context.Context, examinerID string, from, to time.Time) ([]model.Exam, error)
	List(ctx context.Context, date *time.Time, sessionID, examinerID string, offset, limit int) ([]model.Exam, int64, error)
	CountByExaminerOnDate(ctx context.Context, examinerID string, date time.Time) (int64, error)
	Update(ctx context.Context, exam *model.Exam, defaultMaxPerDay int) error
	Reassign(ctx context.Context, exam *model.Exam, examinerID string, reason string, defaultMaxPerDay int) error
	Delete(ctx context.Context, id string) error
}

type examRepo struct {
	db *gorm.DB
}

// NewExamRepo creates the gorm-backed ExamRepository.
func NewExamRepo(db *gorm.DB) ExamRepository {
	return &examRepo{db: db}
}

func (r *examRepo) Create(ctx context.Context, exam *model.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

// CreateAssigned inserts an exam that carries an examiner, re-checking the
// examiner's per-day cap under a row lock first. Returns
// ErrExaminerAtCapacity when the cap was reached since the resolver ran.
func (r *examRepo) CreateAssigned(ctx context.Context, exam *model.Exam, defaultMaxPerDay int) error {
	if exam.AssignedExaminerID == nil {
		return r.Create(ctx, exam)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCapacity(tx, *exam.AssignedExaminerID, exam.Date, defaultMaxPerDay, ""); err != nil {
			return err
		}
		return tx.Create(exam).Error
	})
}

func (r *examRepo) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.WithContext(ctx).
		Preload("Session").
		Preload("AssignedExaminer").
		Where("exam_id = ?", id).
		First(&exam).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) GetBySession(ctx context.Context, sessionID string) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.WithContext(ctx).
		Preload("AssignedExaminer").
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&exam).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) ListOnDate(ctx context.Context, date time.Time, excludeExamID string) ([]model.Exam, error) {
	var exams []model.Exam
	db := r.db.WithContext(ctx).
		Where("date = ?", date.Format("2006-01-02"))
	if excludeExamID != "" {
		db = db.Where("exam_id != ?", excludeExamID)
	}
	err := db.Find(&exams).Error
	return exams, err
}

func (r *examRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.db.WithContext(ctx).
		Preload("Session").
		Preload("AssignedExaminer").
		Where("date >= ? AND date <= ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("date ASC, start_time ASC").
		Find(&exams).Error
	return exams, err
}

// ListByExaminerWithin returns the examiner's exams whose start stamp falls
// inside [from, to]; the revocation cascade's affected-exam query.
func (r *examRepo) ListByExaminerWithin(ctx context.Context, examinerID string, from, to time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.db.WithContext(ctx).
		Preload("Session").
		Where("assigned_examiner_id = ?", examinerID).
		Where("date >= ? AND date <= ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("date ASC, start_time ASC").
		Find(&exams).Error
	return exams, err
}

func (r *examRepo) List(ctx context.Context, date *time.Time, sessionID, examinerID string, offset, limit int) ([]model.Exam, int64, error) {
	var exams []model.Exam
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Exam{})
	if date != nil {
		db = db.Where("date = ?", date.Format("2006-01-02"))
	}
	if sessionID != "" {
		db = db.Where("session_id = ?", sessionID)
	}
	if examinerID != "" {
		db = db.Where("assigned_examiner_id = ?", examinerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("AssignedExaminer").
		Offset(offset).Limit(limit).
		Order("date ASC, start_time ASC").
		Find(&exams).Error
	return exams, total, err
}

func (r *examRepo) CountByExaminerOnDate(ctx context.Context, examinerID string, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Exam{}).
		Where("assigned_examiner_id = ? AND date = ?", examinerID, date.Format("2006-01-02")).
		Count(&count).Error
	return count, err
}

// Update rewrites the exam's schedulable fields. When the exam carries an
// examiner the per-day cap is re-checked under the row lock, excluding the
// exam's own row from the count.
func (r *examRepo) Update(ctx context.Context, exam *model.Exam, defaultMaxPerDay int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if exam.AssignedExaminerID != nil {
			if err := checkCapacity(tx, *exam.AssignedExaminerID, exam.Date, defaultMaxPerDay, exam.ExamID); err != nil {
				return err
			}
		}

		oldVersion := exam.Version
		result := tx.Model(exam).
			Where("exam_id = ? AND version = ?", exam.ExamID, oldVersion).
			Updates(map[string]interface{}{
				"date":                 exam.Date,
				"start_time":           exam.StartTime,
				"duration_minutes":     exam.DurationMinutes,
				"is_online":            exam.IsOnline,
				"location":             exam.Location,
				"online_link":          exam.OnlineLink,
				"assigned_examiner_id": exam.AssignedExaminerID,
				"assignment_reason":    exam.AssignmentReason,
				"updated_by":           exam.UpdatedBy,
				"version":              oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		exam.Version = oldVersion + 1
		return nil
	})
}

// Reassign moves an exam to another examiner under the capacity guard.
func (r *examRepo) Reassign(ctx context.Context, exam *model.Exam, examinerID string, reason string, defaultMaxPerDay int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCapacity(tx, examinerID, exam.Date, defaultMaxPerDay, exam.ExamID); err != nil {
			return err
		}

		oldVersion := exam.Version
		result := tx.Model(exam).
			Where("exam_id = ? AND version = ?", exam.ExamID, oldVersion).
			Updates(map[string]interface{}{
				"assigned_examiner_id": examinerID,
				"assignment_reason":    reason,
				"version":              oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		exam.Version = oldVersion + 1
		exam.AssignedExaminerID = &examinerID
		exam.AssignmentReason = reason
		return nil
	})
}

func (r *examRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("exam_id = ?", id).
		Delete(&model.Exam{}).Error
}

// checkCapacity locks the examiner row and recounts the day's workload.
// excludeExamID keeps an exam being moved from counting against itself.
func checkCapacity(tx *gorm.DB, examinerID string, date time.Time, defaultMaxPerDay int, excludeExamID string) error {
	var examiner model.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", examinerID).
		First(&examiner).Error; err != nil {
		return err
	}

	limit := defaultMaxPerDay
	if examiner.MaxExamsPerDay != nil {
		limit = *examiner.MaxExamsPerDay
	}

	query := tx.Model(&model.Exam{}).
		Where("assigned_examiner_id = ? AND date = ?", examinerID, date.Format("2006-01-02"))
	if excludeExamID != "" {
		query = query.Where("exam_id != ?", excludeExamID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(limit) {
		return pkgerrors.ErrExaminerAtCapacity
	}
	return nil
}
