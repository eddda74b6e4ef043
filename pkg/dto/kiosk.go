package dto

import "github.com/google/uuid"

type CreateKioskRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Timezone string `json:"timezone"`
}

type KioskResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location,omitempty"`
	Timezone      string    `json:"timezone,omitempty"`
	Active        bool      `json:"active"`
	SessionsToday int       `json:"sessions_today"`
	LastActivity  *string   `json:"last_activity,omitempty"`
	CreatedAt     string    `json:"created_at"`
}
