package domain

import "time"

// Plan is the subscription tier controlling request allowances.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanEnterprise Plan = "enterprise"
)

// RequestLimit returns the monthly request allowance seeded for the plan.
func (p Plan) RequestLimit() int {
	switch p {
	case PlanEnterprise:
		return 10000
	default:
		return 100
	}
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is the domain model for a registered account.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FullName      string
	Plan          Plan
	Status        UserStatus
	RequestsUsed  int
	RequestsLimit int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserSummary is the caller-facing view of an account. The password digest
// never leaves the service through this type.
type UserSummary struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Plan          Plan       `json:"plan"`
	Status        UserStatus `json:"status"`
	RequestsUsed  int        `json:"requests_used"`
	RequestsLimit int        `json:"requests_limit"`
}

// Summary strips credentials from the user record.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Plan:          u.Plan,
		Status:        u.Status,
		RequestsUsed:  u.RequestsUsed,
		RequestsLimit: u.RequestsLimit,
	}
}
