package models

import (
	"time"

	"github.com/google/uuid"
)

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

type Employee struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Department  string         `json:"department" db:"department"`
	Designation string         `json:"designation" db:"designation"`
	Status      EmployeeStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// FaceEncoding is one stored face sample for an employee. Encodings are
// immutable; replacing an image deletes and re-inserts rather than mutating.
type FaceEncoding struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id"`
	Encoding   []float32 `json:"-" db:"encoding"`
	Quality    float32   `json:"quality" db:"quality"`
	SourceKey  string    `json:"source_key" db:"source_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
