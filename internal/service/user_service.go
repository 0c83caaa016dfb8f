package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
)

var (
	ErrEmailTaken    = errors.New("email is already in use")
	ErrNotAnExaminer = errors.New("user is not an examiner")
)

// UserService manages accounts and examiner assignment attributes.
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, userID string) (*dto.UserResponse, error)
	List(ctx context.Context, role string, page *dto.PaginationRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, userID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	UpdateExaminerProfile(ctx context.Context, userID string, req *dto.UpdateExaminerProfileRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, userID string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("look up user by email failed", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("create user failed", zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) List(ctx context.Context, role string, page *dto.PaginationRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, role, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, 0, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, toUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) Update(ctx context.Context, userID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.repo.User.GetByEmail(ctx, *req.Email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("look up user by email failed", zap.Error(err))
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("update user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// UpdateExaminerProfile adjusts assignment attributes: ranking priority and
// the per-day exam cap override. Clearing the cap makes the configured
// default apply again.
func (s *userService) UpdateExaminerProfile(ctx context.Context, userID string, req *dto.UpdateExaminerProfileRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleExaminer {
		return nil, ErrNotAnExaminer
	}

	if req.Priority != nil {
		user.Priority = *req.Priority
	}
	if req.ClearMaxExamsPerDay {
		user.MaxExamsPerDay = nil
	} else if req.MaxExamsPerDay != nil {
		user.MaxExamsPerDay = req.MaxExamsPerDay
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("update examiner profile failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.User.Delete(ctx, userID); err != nil {
		s.logger.Error("delete user failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *userService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("look up user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// toUserResponse builds the sanitized user payload.
func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             user.UserID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		Priority:       user.Priority,
		MaxExamsPerDay: user.MaxExamsPerDay,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
	}
}
