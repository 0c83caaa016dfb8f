package dto

// ClassSlotRequest is one scheduled class inside a session payload.
type ClassSlotRequest struct {
	Date            string `json:"date"             binding:"required"` // "2006-01-02"
	Time            string `json:"time"             binding:"required"` // "HH:MM", 24h
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1"`
}

// CreateSessionRequest — POST /sessions payload.
type CreateSessionRequest struct {
	Title       string             `json:"title"       binding:"required,max=200"`
	Description string             `json:"description" binding:"max=5000"`
	IsLive      bool               `json:"is_live"`
	Location    *string            `json:"location"    binding:"omitempty,max=200"`
	OnlineLink  *string            `json:"online_link" binding:"omitempty,max=500"`
	ClassSlots  []ClassSlotRequest `json:"class_slots" binding:"required,min=1,dive"`
}

// UpdateSessionRequest — PUT /sessions/:id payload. Nil fields are untouched;
// a non-nil ClassSlots replaces the whole slot list.
type UpdateSessionRequest struct {
	Title       *string            `json:"title"       binding:"omitempty,max=200"`
	Description *string            `json:"description" binding:"omitempty,max=5000"`
	IsLive      *bool              `json:"is_live"`
	Location    *string            `json:"location"    binding:"omitempty,max=200"`
	OnlineLink  *string            `json:"online_link" binding:"omitempty,max=500"`
	ClassSlots  []ClassSlotRequest `json:"class_slots" binding:"omitempty,min=1,dive"`
}

// ClassSlotResponse is one class of a session response.
type ClassSlotResponse struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// SessionResponse is the full session payload. Exam is resolved by querying
// exams by session ID, not from a stored back-reference.
type SessionResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	IsLive      bool                `json:"is_live"`
	Location    *string             `json:"location,omitempty"`
	OnlineLink  *string             `json:"online_link,omitempty"`
	CreatedBy   string              `json:"created_by"`
	ClassSlots  []ClassSlotResponse `json:"class_slots"`
	Exam        *ExamResponse       `json:"exam,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// SessionListRequest — GET /sessions query parameters.
type SessionListRequest struct {
	PaginationRequest
	CreatedBy string `form:"created_by" binding:"omitempty,uuid"`
}
