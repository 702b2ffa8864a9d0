package dto

import (
	"time"

	"github.com/turklawai/auth-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest payload for requesting a reset token.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for completing a reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse is the uniform shape for register/login responses.
type AuthResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	User      *domain.UserSummary `json:"user,omitempty"`
	Token     string              `json:"token,omitempty"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

// UserResponse wraps a user summary.
type UserResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	User    *domain.UserSummary `json:"user,omitempty"`
}
