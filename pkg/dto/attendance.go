package dto

import "github.com/google/uuid"

type AttendanceResponse struct {
	ID           uuid.UUID `json:"id"`
	EmployeeID   uuid.UUID `json:"employee_id"`
	Date         string    `json:"date"`
	CheckInTime  string    `json:"check_in_time"`
	CheckOutTime *string   `json:"check_out_time,omitempty"`
	KioskName    string    `json:"kiosk_name"`
	Confidence   float64   `json:"confidence"`
	TotalHours   float64   `json:"total_hours"`
	Open         bool      `json:"open"`
	CreatedAt    string    `json:"created_at"`
}

type AttendanceListResponse struct {
	Records []AttendanceResponse `json:"records"`
	Total   int                  `json:"total"`
}

type AttendanceQuery struct {
	EmployeeID string `form:"employee_id"`
	Kiosk      string `form:"kiosk"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type AttendanceStatsResponse struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"this_week"`
	ThisMonth int `json:"this_month"`
}

type ConflictResponse struct {
	ID             uuid.UUID `json:"id"`
	EmployeeID     uuid.UUID `json:"employee_id"`
	Date           string    `json:"date"`
	PrimaryKiosk   string    `json:"primary_kiosk"`
	ConflictKiosks []string  `json:"conflict_kiosks"`
	Status         string    `json:"status"`
	CreatedAt      string    `json:"created_at"`
}
