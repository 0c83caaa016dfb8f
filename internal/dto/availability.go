package dto

// CreateAvailabilityRequest — POST /availability payload. RFC 3339 stamps.
type CreateAvailabilityRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to"   binding:"required"`
}

// ImportAvailabilityICSRequest — POST /availability/import-ics payload.
// Exactly one of URL and Content must be set.
type ImportAvailabilityICSRequest struct {
	URL     string `json:"url"     binding:"omitempty,url"`
	Content string `json:"content" binding:"omitempty"`
}

// ImportAvailabilityICSResponse reports an ICS import. Events overlapping
// windows the examiner already declared are skipped, not failed.
type ImportAvailabilityICSResponse struct {
	Imported int                    `json:"imported"`
	Skipped  int                    `json:"skipped"`
	Windows  []AvailabilityResponse `json:"windows"`
}

// AvailabilityResponse is one availability window.
type AvailabilityResponse struct {
	ID         string `json:"id"`
	ExaminerID string `json:"examiner_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	CreatedAt  string `json:"created_at"`
}

// Cascade outcome statuses.
const (
	CascadeStatusReassigned = "reassigned"
	CascadeStatusCancelled  = "cancelled"
	CascadeStatusError      = "error"
)

// CascadeOutcome is the per-exam result of a revocation cascade.
type CascadeOutcome struct {
	ExamID string `json:"exam_id"`
	Status string `json:"status"` // reassigned | cancelled | error
	Detail string `json:"detail"`
}

// RevocationResponse is the full result of deleting an availability window.
type RevocationResponse struct {
	Removed  AvailabilityResponse `json:"removed"`
	Message  string               `json:"message"`
	Outcomes []CascadeOutcome     `json:"outcomes"`
}
