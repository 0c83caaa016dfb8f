package model

import "time"

// AvailabilityWindow — availability_windows table. A contiguous interval
// during which an examiner has declared themselves assignable.
// Invariant: AvailableTo > AvailableFrom; a given examiner's windows must not
// overlap each other (enforced at creation, not retroactively).
type AvailabilityWindow struct {
	AvailabilityID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"availability_id"`
	ExaminerID     string    `gorm:"type:uuid;not null"                             json:"examiner_id"`
	AvailableFrom  time.Time `gorm:"not null"                                       json:"available_from"`
	AvailableTo    time.Time `gorm:"not null"                                       json:"available_to"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// associations
	Examiner *User `gorm:"foreignKey:ExaminerID;references:UserID" json:"examiner,omitempty"`
}

// TableName sets the table name.
func (AvailabilityWindow) TableName() string { return "availability_windows" }
