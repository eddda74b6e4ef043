package models

import (
	"time"

	"github.com/google/uuid"
)

type Kiosk struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Location  string    `json:"location" db:"location"`
	Timezone  string    `json:"timezone" db:"timezone"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TimeLocation resolves the kiosk's IANA timezone. Day boundaries and
// debounce windows run in kiosk-local time; an unset or unknown zone
// falls back to the server's local time.
func (k *Kiosk) TimeLocation() *time.Location {
	if k.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(k.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CaptureTask is the message published to NATS for worker processing.
type CaptureTask struct {
	CaptureID  uuid.UUID `json:"capture_id"`
	KioskName  string    `json:"kiosk_name"`
	Timestamp  time.Time `json:"timestamp"`
	CaptureRef string    `json:"capture_ref"` // MinIO object key
}

// CaptureOutcome is the result of processing one capture, published on the
// attendance stream and mirrored to WebSocket clients.
type CaptureOutcome struct {
	CaptureID      uuid.UUID  `json:"capture_id"`
	KioskName      string     `json:"kiosk_name"`
	Timestamp      time.Time  `json:"timestamp"`
	Matched        bool       `json:"matched"`
	EmployeeID     *uuid.UUID `json:"employee_id,omitempty"`
	EmployeeName   string     `json:"employee_name,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	EventKind      EventKind  `json:"event_kind,omitempty"`
	TotalHours     float64    `json:"total_hours,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`
}
