package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"certhub/backend/internal/model"
)

// AvailabilityRepository is the availability windows data access interface.
type AvailabilityRepository interface {
	Create(ctx context.Context, window *model.AvailabilityWindow) error
	GetByID(ctx context.Context, id string) (*model.AvailabilityWindow, error)
	ListByExaminer(ctx context.Context, examinerID string) ([]model.AvailabilityWindow, error)
	ListOverlapping(ctx context.Context, examinerID string, from, to time.Time) ([]model.AvailabilityWindow, error)
	ListCovering(ctx context.Context, start, end time.Time) ([]model.AvailabilityWindow, error)
	Delete(ctx context.Context, id string) error
}

type availabilityRepo struct {
	db *gorm.DB
}

// NewAvailabilityRepo creates the gorm-backed AvailabilityRepository.
func NewAvailabilityRepo(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepo{db: db}
}

func (r *availabilityRepo) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	return r.db.WithContext(ctx).Create(window).Error
}

func (r *availabilityRepo) GetByID(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	var window model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("availability_id = ?", id).
		First(&window).Error
	if err != nil {
		return nil, err
	}
	return &window, nil
}

func (r *availabilityRepo) ListByExaminer(ctx context.Context, examinerID string) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("examiner_id = ?", examinerID).
		Order("available_from ASC").
		Find(&windows).Error
	return windows, err
}

// ListOverlapping returns the examiner's windows intersecting [from, to);
// used to reject overlapping declarations at creation.
func (r *availabilityRepo) ListOverlapping(ctx context.Context, examinerID string, from, to time.Time) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("examiner_id = ?", examinerID).
		Where("available_from < ? AND available_to > ?", to, from).
		Find(&windows).Error
	return windows, err
}

// ListCovering returns windows fully containing [start, end]. Partial
// overlap does not qualify; the examiner must be free for the whole exam.
func (r *availabilityRepo) ListCovering(ctx context.Context, start, end time.Time) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("available_from <= ? AND available_to >= ?", start, end).
		Find(&windows).Error
	return windows, err
}

func (r *availabilityRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("availability_id = ?", id).
		Delete(&model.AvailabilityWindow{}).Error
}
