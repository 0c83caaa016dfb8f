package model

import "time"

// TrainingSession — training_sessions table.
// A session deliberately carries no stored reference to its exam; the exam
// holds the session ID and the session's exam is resolved by query. That
// keeps the reference acyclic with the session as the long-lived owner.
type TrainingSession struct {
	SessionID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	Title       string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string  `gorm:"type:text;not null;default:''"                  json:"description"`
	IsLive      bool    `gorm:"not null;default:false"                         json:"is_live"`
	Location    *string `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	OnlineLink  *string `gorm:"type:varchar(500)"                              json:"online_link,omitempty"`
	CreatedByID string  `gorm:"column:created_by;type:uuid;not null"           json:"created_by"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy   *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
	Version     int       `gorm:"not null;default:1"                 json:"version"`

	// associations
	ClassSlots []ClassSlot `gorm:"foreignKey:SessionID" json:"class_slots,omitempty"`
	Creator    *User       `gorm:"foreignKey:CreatedByID;references:UserID" json:"creator,omitempty"`
}

// TableName sets the table name.
func (TrainingSession) TableName() string { return "training_sessions" }

// ClassSlot — class_slots table. One scheduled class of a session.
// Rows keep insertion order via position; date order is not guaranteed, so
// consumers looking for the "last" class must sort by date.
type ClassSlot struct {
	ClassSlotID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_slot_id"`
	SessionID       string    `gorm:"type:uuid;not null"                             json:"session_id"`
	Date            time.Time `gorm:"type:date;not null"                             json:"date"`
	StartTime       string    `gorm:"type:varchar(5);not null"                       json:"start_time"` // "HH:MM", 24h
	DurationMinutes int       `gorm:"not null"                                       json:"duration_minutes"`
	Position        int       `gorm:"not null;default:0"                             json:"position"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName sets the table name.
func (ClassSlot) TableName() string { return "class_slots" }
