package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog caches the result of a billing-initiated ledger operation so
// a retried request returns the original transaction instead of double
// charging the wallet.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "wallet_id:reference"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Cached response to return
	CreatedAt     time.Time `json:"created_at"`
}

// BuildPaymentKey constructs the idempotency key for a billing payment.
func BuildPaymentKey(walletID uuid.UUID, reference string) string {
	return walletID.String() + ":" + reference
}

// BuildRefundKey constructs the idempotency key for a billing refund.
func BuildRefundKey(walletID uuid.UUID, reference string) string {
	return walletID.String() + ":refund:" + reference
}
