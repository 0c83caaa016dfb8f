package dto

// CreateUserRequest — coordinator-managed account creation.
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"     binding:"required,oneof=coordinator examiner teacher student"`
}

// UpdateUserRequest — partial account update.
type UpdateUserRequest struct {
	Name  *string `json:"name"  binding:"omitempty,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// UpdateExaminerProfileRequest — examiner assignment attributes.
// MaxExamsPerDay nil leaves the attribute untouched; ClearMaxExamsPerDay
// resets it so the configured default applies again.
type UpdateExaminerProfileRequest struct {
	Priority            *int `json:"priority"                 binding:"omitempty,min=1"`
	MaxExamsPerDay      *int `json:"max_exams_per_day"        binding:"omitempty,min=1"`
	ClearMaxExamsPerDay bool `json:"clear_max_exams_per_day"`
}

// UserResponse is the sanitized user payload.
type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Priority       int    `json:"priority,omitempty"`
	MaxExamsPerDay *int   `json:"max_exams_per_day,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}
