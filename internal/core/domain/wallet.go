package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a patient's pre-paid balance and running totals.
// There is exactly one wallet per patient. The balance is authoritative only
// inside a database transaction holding the wallet row lock; outside of one
// it is a snapshot.
type Wallet struct {
	ID                  uuid.UUID        `json:"id"`
	PatientID           uuid.UUID        `json:"patient_id"`
	PatientName         string           `json:"patient_name"`
	PhoneEnc            *string          `json:"-"` // AES-256 encrypted, never expose raw
	EmailEnc            *string          `json:"-"` // AES-256 encrypted, never expose raw
	Balance             decimal.Decimal  `json:"balance"`
	TotalDeposits       decimal.Decimal  `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal  `json:"total_withdrawals"`
	TotalPayments       decimal.Decimal  `json:"total_payments"`
	TotalRefunds        decimal.Decimal  `json:"total_refunds"`
	Active              bool             `json:"active"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold,omitempty"`
	AutoPay             bool             `json:"auto_pay"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NewWallet creates a wallet with a zero balance and zeroed totals.
func NewWallet(patientID uuid.UUID, patientName string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:               uuid.New(),
		PatientID:        patientID,
		PatientName:      patientName,
		Balance:          decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalPayments:    decimal.Zero,
		TotalRefunds:     decimal.Zero,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Apply moves the balance by the transaction's signed amount and bumps the
// matching running total. It does not validate; the ledger service checks
// activity and sufficient funds before applying.
func (w *Wallet) Apply(t *Transaction) {
	w.Balance = w.Balance.Add(t.SignedAmount())
	switch t.Type {
	case TransactionTypeDeposit:
		w.TotalDeposits = w.TotalDeposits.Add(t.Amount)
	case TransactionTypeWithdrawal:
		w.TotalWithdrawals = w.TotalWithdrawals.Add(t.Amount)
	case TransactionTypePayment:
		w.TotalPayments = w.TotalPayments.Add(t.Amount)
	case TransactionTypeRefund:
		w.TotalRefunds = w.TotalRefunds.Add(t.Amount)
	}
	w.UpdatedAt = time.Now().UTC()
}

// BelowThreshold reports whether the balance has dropped under the wallet's
// configured low-balance alert threshold.
func (w *Wallet) BelowThreshold() bool {
	return w.LowBalanceThreshold != nil && w.Balance.LessThan(*w.LowBalanceThreshold)
}
