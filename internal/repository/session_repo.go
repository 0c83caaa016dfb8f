package repository

import (
	"context"

	"gorm.io/gorm"

	"certhub/backend/internal/model"
	pkgerrors "certhub/backend/pkg/errors"
)

// SessionRepository is the training sessions data access interface.
type SessionRepository interface {
	Create(ctx context.Context, session *model.TrainingSession) error
	GetByID(ctx context.Context, id string) (*model.TrainingSession, error)
	List(ctx context.Context, createdBy string, offset, limit int) ([]model.TrainingSession, int64, error)
	ListSlotsByCreator(ctx context.Context, creatorID, excludeSessionID string) ([]model.ClassSlot, error)
	Update(ctx context.Context, session *model.TrainingSession) error
	ReplaceSlots(ctx context.Context, sessionID string, slots []model.ClassSlot) error
	Delete(ctx context.Context, id string) error
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo creates the gorm-backed SessionRepository.
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

// Create inserts the session together with its class slots in one
// transaction; the post-commit scheduling hook relies on the whole write
// being durable when this returns.
func (r *sessionRepo) Create(ctx context.Context, session *model.TrainingSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(session).Error
	})
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.TrainingSession, error) {
	var session model.TrainingSession
	err := r.db.WithContext(ctx).
		Preload("ClassSlots", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context, createdBy string, offset, limit int) ([]model.TrainingSession, int64, error) {
	var sessions []model.TrainingSession
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TrainingSession{})
	if createdBy != "" {
		db = db.Where("created_by = ?", createdBy)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("ClassSlots", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, total, err
}

// ListSlotsByCreator returns every class slot belonging to the creator's
// sessions, optionally excluding one session (the one being updated).
func (r *sessionRepo) ListSlotsByCreator(ctx context.Context, creatorID, excludeSessionID string) ([]model.ClassSlot, error) {
	var slots []model.ClassSlot
	db := r.db.WithContext(ctx).
		Joins("JOIN training_sessions ON training_sessions.session_id = class_slots.session_id").
		Where("training_sessions.created_by = ?", creatorID)
	if excludeSessionID != "" {
		db = db.Where("class_slots.session_id != ?", excludeSessionID)
	}
	err := db.Find(&slots).Error
	return slots, err
}

func (r *sessionRepo) Update(ctx context.Context, session *model.TrainingSession) error {
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(session).
		Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"title":       session.Title,
			"description": session.Description,
			"is_live":     session.IsLive,
			"location":    session.Location,
			"online_link": session.OnlineLink,
			"updated_by":  session.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version = oldVersion + 1
	return nil
}

// ReplaceSlots swaps a session's slot list atomically.
func (r *sessionRepo) ReplaceSlots(ctx context.Context, sessionID string, slots []model.ClassSlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.ClassSlot{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		return tx.Create(&slots).Error
	})
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", id).
		Delete(&model.TrainingSession{}).Error
}
