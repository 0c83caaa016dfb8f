package dto

// ScheduleExamRequest — POST /exams payload (time-slot request shape).
type ScheduleExamRequest struct {
	SessionID       string  `json:"session_id"       binding:"required,uuid"`
	Date            string  `json:"date"             binding:"required"` // "2006-01-02"
	Time            string  `json:"time"             binding:"required"` // "HH:MM", 24h
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=1"`
	IsOnline        bool    `json:"is_online"`
	Location        *string `json:"location"         binding:"omitempty,max=200"`
	OnlineLink      *string `json:"online_link"      binding:"omitempty,max=500"`
}

// RescheduleExamRequest — PUT /exams/:id payload. Nil fields keep the
// exam's current value.
type RescheduleExamRequest struct {
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1"`
	IsOnline        *bool   `json:"is_online"`
	Location        *string `json:"location"         binding:"omitempty,max=200"`
	OnlineLink      *string `json:"online_link"      binding:"omitempty,max=500"`
}

// ExamResponse is the full exam payload. AssignedExaminer is nil for
// sentinel-unassigned exams; AssignmentReason is always non-empty.
type ExamResponse struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"session_id"`
	Date             string        `json:"date"`
	Time             string        `json:"time"`
	DurationMinutes  int           `json:"duration_minutes"`
	IsOnline         bool          `json:"is_online"`
	Location         *string       `json:"location,omitempty"`
	OnlineLink       *string       `json:"online_link,omitempty"`
	CreatedBy        string        `json:"created_by"`
	AssignedExaminer *UserResponse `json:"assigned_examiner,omitempty"`
	AssignmentReason string        `json:"assignment_reason"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

// ExamListRequest — GET /exams query parameters.
type ExamListRequest struct {
	PaginationRequest
	Date       string `form:"date"        binding:"omitempty"`
	SessionID  string `form:"session_id"  binding:"omitempty,uuid"`
	ExaminerID string `form:"examiner_id" binding:"omitempty,uuid"`
}

// ExamExportRequest — GET /exams/export query parameters.
type ExamExportRequest struct {
	From string `form:"from" binding:"required"` // "2006-01-02"
	To   string `form:"to"   binding:"required"` // "2006-01-02"
}
