package handler

import "certhub/backend/internal/service"

// Handler is the aggregate entry point for all HTTP handlers.
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Session      *SessionHandler
	Exam         *ExamHandler
	Availability *AvailabilityHandler
	Export       *ExportHandler
}

// NewHandler builds the handler aggregate from the service graph.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Session:      NewSessionHandler(svc.Session),
		Exam:         NewExamHandler(svc.Exam),
		Availability: NewAvailabilityHandler(svc.Availability),
		Export:       NewExportHandler(svc.Export),
	}
}
