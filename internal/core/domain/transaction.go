package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// Direction of a balance movement. Fixed by the transaction type except for
// adjustments, where the caller supplies it.
const (
	DirectionCredit int16 = 1
	DirectionDebit  int16 = -1
)

// Transaction is one immutable ledger entry. Amount is always a positive
// magnitude; Direction carries the sign. BalanceBefore and BalanceAfter
// capture the wallet balance around the movement, so each entry is
// independently verifiable: BalanceAfter == BalanceBefore + SignedAmount.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     int16           `json:"direction"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Reference     *string         `json:"reference,omitempty"` // billing invoice/claim reference
	PerformedBy   *uuid.UUID      `json:"performed_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DirectionFor returns the fixed direction for a non-adjustment type.
// Adjustments have no fixed direction and return DirectionCredit here;
// callers set the real one explicitly.
func DirectionFor(t TransactionType) int16 {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypePayment:
		return DirectionDebit
	default:
		return DirectionCredit
	}
}

// SignedAmount returns the amount with its direction applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsCredit reports whether this entry increased the balance.
func (t *Transaction) IsCredit() bool {
	return t.Direction == DirectionCredit
}
