package repository

import (
	"context"

	"gorm.io/gorm"

	"certhub/backend/internal/model"
)

// EnrollmentRepository is the enrollments data access interface.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Enrollment, error)
	Delete(ctx context.Context, sessionID, studentID string) error
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo creates the gorm-backed EnrollmentRepository.
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) Delete(ctx context.Context, sessionID, studentID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Delete(&model.Enrollment{}).Error
}
