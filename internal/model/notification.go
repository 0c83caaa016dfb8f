package model

import "time"

// Notification — notifications table. Persisted record of every dispatched
// message; Delivered reflects the mailer outcome and is informational only.
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string    `gorm:"type:varchar(50);not null"                      json:"type"` // exam_scheduled | exam_reassigned | exam_cancelled
	Subject        string    `gorm:"type:varchar(200);not null"                     json:"subject"`
	Body           string    `gorm:"type:text;not null"                             json:"body"`
	Delivered      bool      `gorm:"not null;default:false"                         json:"delivered"`
	RelatedType    *string   `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // exam | session | availability
	RelatedID      *string   `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName sets the table name.
func (Notification) TableName() string { return "notifications" }
