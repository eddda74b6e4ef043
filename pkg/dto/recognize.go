package dto

import "github.com/google/uuid"

// RecognizeResponse reports one recognition outcome. RejectedReason is set
// when the capture was classified but no attendance event was recorded.
type RecognizeResponse struct {
	Matched        bool       `json:"matched"`
	EmployeeID     *uuid.UUID `json:"employee_id,omitempty"`
	EmployeeName   string     `json:"employee_name,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	EventKind      string     `json:"event_kind,omitempty"` // check_in or check_out
	TotalHours     float64    `json:"total_hours,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`
}

// CaptureAccepted acknowledges an async capture submission.
type CaptureAccepted struct {
	CaptureID uuid.UUID `json:"capture_id"`
	Status    string    `json:"status"`
}

// WSEvent is a WebSocket message for real-time attendance delivery.
type WSEvent struct {
	Type      string            `json:"type"` // attendance_recorded, capture_rejected
	KioskName string            `json:"kiosk_name"`
	Data      RecognizeResponse `json:"data,omitempty"`
}
