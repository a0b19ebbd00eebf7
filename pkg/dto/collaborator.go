package dto

import (
	"time"

	"github.com/google/uuid"
)

type ShareRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type CollaboratorResponse struct {
	ResourceID uuid.UUID `json:"resourceId"`
	UserID     uuid.UUID `json:"userId"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}
