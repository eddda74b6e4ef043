package dto

import "github.com/google/uuid"

type CreateEmployeeRequest struct {
	Name        string `json:"name" binding:"required"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

type EmployeeResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department,omitempty"`
	Designation string    `json:"designation,omitempty"`
	Status      string    `json:"status"`
	FaceCount   int       `json:"face_count,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

type FaceEncodingResponse struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Quality    float32   `json:"quality"`
	SourceKey  string    `json:"source_key"`
	CreatedAt  string    `json:"created_at"`
}
