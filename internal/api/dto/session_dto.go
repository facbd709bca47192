package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Username  string             `json:"username"`
	Role      domain.AccountRole `json:"role"`
}

// RoleRequest payload.
type RoleRequest struct {
	Role string `json:"role"`
}

// RoleResponse reports the active role.
type RoleResponse struct {
	Role    domain.Role `json:"role"`
	IsAdmin bool        `json:"isAdmin"`
}

// SortRequest payload.
type SortRequest struct {
	SortBy string `json:"sortBy"`
}

// SortResponse reports the stored sort preference.
type SortResponse struct {
	SortBy query.SortKey `json:"sortBy"`
}
