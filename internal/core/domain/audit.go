package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWalletCreate     AuditAction = "WALLET_CREATE"
	AuditActionWalletUpdate     AuditAction = "WALLET_UPDATE"
	AuditActionWalletActivate   AuditAction = "WALLET_ACTIVATE"
	AuditActionWalletDeactivate AuditAction = "WALLET_DEACTIVATE"
	AuditActionDeposit          AuditAction = "DEPOSIT"
	AuditActionWithdrawal       AuditAction = "WITHDRAWAL"
	AuditActionAdjustment       AuditAction = "ADJUSTMENT"
	AuditActionPayment          AuditAction = "PAYMENT"
	AuditActionRefund           AuditAction = "REFUND"
	AuditActionRegister         AuditAction = "REGISTER"
	AuditActionLogin            AuditAction = "LOGIN"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	StaffID      *uuid.UUID  `json:"staff_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
