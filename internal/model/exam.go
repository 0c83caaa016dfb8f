package model

import "time"

// Exam — exams table.
// AssignedExaminerID is nullable on purpose: an exam without an eligible
// examiner is persisted anyway, with AssignmentReason explaining why.
type Exam struct {
	ExamID             string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"exam_id"`
	SessionID          string    `gorm:"type:uuid;not null"                             json:"session_id"`
	Date               time.Time `gorm:"type:date;not null"                             json:"date"`
	StartTime          string    `gorm:"type:varchar(5);not null"                       json:"start_time"` // "HH:MM", 24h
	DurationMinutes    int       `gorm:"not null"                                       json:"duration_minutes"`
	IsOnline           bool      `gorm:"not null;default:false"                         json:"is_online"`
	Location           *string   `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	OnlineLink         *string   `gorm:"type:varchar(500)"                              json:"online_link,omitempty"`
	CreatedByID        string    `gorm:"column:created_by;type:uuid;not null"           json:"created_by"`
	AssignedExaminerID *string   `gorm:"type:uuid"                                      json:"assigned_examiner_id,omitempty"`
	AssignmentReason   string    `gorm:"type:varchar(500);not null;default:''"          json:"assignment_reason"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
	UpdatedBy          *string   `gorm:"type:uuid"                                      json:"updated_by,omitempty"`
	Version            int       `gorm:"not null;default:1"                             json:"version"`

	// associations
	Session          *TrainingSession `gorm:"foreignKey:SessionID;references:SessionID"          json:"session,omitempty"`
	AssignedExaminer *User            `gorm:"foreignKey:AssignedExaminerID;references:UserID"    json:"assigned_examiner,omitempty"`
}

// TableName sets the table name.
func (Exam) TableName() string { return "exams" }
