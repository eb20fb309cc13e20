package domain

import (
	"time"

	"github.com/google/uuid"
)

// StaffStatus represents the state of a staff account.
type StaffStatus string

const (
	StaffStatusActive    StaffStatus = "ACTIVE"
	StaffStatusSuspended StaffStatus = "SUSPENDED"
)

// StaffRole controls operator permissions. Admins may post adjustments and
// deactivate wallets; operators handle day-to-day deposits and withdrawals.
type StaffRole string

const (
	StaffRoleAdmin    StaffRole = "ADMIN"
	StaffRoleOperator StaffRole = "OPERATOR"
)

// Staff represents a clinic staff account for the operator dashboard.
type Staff struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"` // Never expose
	FullName     string      `json:"full_name"`
	Role         StaffRole   `json:"role"`
	Status       StaffStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsActive returns true if the staff account is active.
func (s *Staff) IsActive() bool {
	return s.Status == StaffStatusActive
}
