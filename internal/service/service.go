package service

import (
	"go.uber.org/zap"

	"certhub/backend/config"
	"certhub/backend/internal/repository"
	"certhub/backend/pkg/jwt"
	"certhub/backend/pkg/redis"
)

// Service is the aggregate entry point for all services.
type Service struct {
	Auth         AuthService
	User         UserService
	Session      SessionService
	Exam         ExamService
	Availability AvailabilityService
	Export       ExportService
}

// NewService wires the full service graph. The resolver and notifier are
// internal collaborators shared by the exam and availability services.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	mailer Mailer,
	logger *zap.Logger,
) *Service {
	resolver := NewAssignmentResolver(&cfg.Scheduling, repo, logger)
	notifier := NewNotifier(repo, mailer, logger)
	examService := NewExamService(&cfg.Scheduling, repo, resolver, notifier, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:         NewUserService(repo, logger),
		Session:      NewSessionService(&cfg.Scheduling, repo, examService, logger),
		Exam:         examService,
		Availability: NewAvailabilityService(&cfg.Scheduling, repo, resolver, notifier, logger),
		Export:       NewExportService(repo, logger),
	}
}
