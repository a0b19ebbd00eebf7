package models

import (
	"time"

	"github.com/google/uuid"
)

// Collaboration roles on a folder or collection. Bookmarks inherit them
// through their membership.
const (
	RoleView  = "VIEW"
	RoleEdit  = "EDIT"
	RoleAdmin = "ADMIN"
)

func ValidRole(role string) bool {
	return role == RoleView || role == RoleEdit || role == RoleAdmin
}

type Collaborator struct {
	ResourceID uuid.UUID `json:"resourceId"`
	UserID     uuid.UUID `json:"userId"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}
