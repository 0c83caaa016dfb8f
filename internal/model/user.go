package model

// Roles recognized by the authorization layer.
const (
	RoleCoordinator = "coordinator"
	RoleExaminer    = "examiner"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
)

// User — users table.
// Examiner-specific attributes (priority, per-day cap) live here; both have
// defaults so a plain examiner record is immediately assignable.
type User struct {
	UserID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email          string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash   string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	Priority       int    `gorm:"type:smallint;not null;default:1"               json:"priority"` // lower number = preferred
	MaxExamsPerDay *int   `gorm:"type:smallint"                                  json:"max_exams_per_day,omitempty"`
	VersionedModel
}

// TableName sets the table name.
func (User) TableName() string { return "users" }
