package models

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	CheckIn  EventKind = "check_in"
	CheckOut EventKind = "check_out"
)

// AttendanceRecord is one check-in/check-out session for an employee on a
// calendar date. A record with no CheckOutTime is an open session; checking
// out closes the record in place. A day may hold several closed records.
type AttendanceRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EmployeeID   uuid.UUID  `json:"employee_id" db:"employee_id"`
	Date         time.Time  `json:"date" db:"date"` // midnight, local kiosk day
	CheckInTime  time.Time  `json:"check_in_time" db:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty" db:"check_out_time"`
	KioskName    string     `json:"kiosk_name" db:"kiosk_name"`
	Confidence   float32    `json:"confidence" db:"confidence"`
	TotalHours   float64    `json:"total_hours" db:"total_hours"`
	CaptureKey   string     `json:"capture_key,omitempty" db:"capture_key"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Open reports whether the record is an unpaired check-in.
func (r *AttendanceRecord) Open() bool {
	return r.CheckOutTime == nil
}

// ConflictLog flags an employee with same-day open sessions at more than one
// kiosk. Conflicts are resolved by an operator, never automatically.
type ConflictLog struct {
	ID             uuid.UUID `json:"id" db:"id"`
	EmployeeID     uuid.UUID `json:"employee_id" db:"employee_id"`
	Date           time.Time `json:"date" db:"date"`
	PrimaryKiosk   string    `json:"primary_kiosk" db:"primary_kiosk"`
	ConflictKiosks []string  `json:"conflict_kiosks" db:"conflict_kiosks"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

const ConflictPending = "pending_resolution"

// AttendanceStats are the rolling counters shown on the kiosk dashboard.
type AttendanceStats struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"this_week"`
	ThisMonth int `json:"this_month"`
}
