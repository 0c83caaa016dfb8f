package model

import "time"

// Enrollment — enrollments table. Links a student to a training session;
// drives notification recipient resolution.
type Enrollment struct {
	EnrollmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	SessionID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"session_id"`
	StudentID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"student_id"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// associations
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName sets the table name.
func (Enrollment) TableName() string { return "enrollments" }
