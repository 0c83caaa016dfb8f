package repository

import "gorm.io/gorm"

// Repository is the aggregate entry point for all repositories.
type Repository struct {
	User         UserRepository
	Session      SessionRepository
	Exam         ExamRepository
	Availability AvailabilityRepository
	Enrollment   EnrollmentRepository
	Notification NotificationRepository
}

// NewRepository wires every repository onto the shared DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Session:      NewSessionRepo(db),
		Exam:         NewExamRepo(db),
		Availability: NewAvailabilityRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		Notification: NewNotificationRepo(db),
	}
}
