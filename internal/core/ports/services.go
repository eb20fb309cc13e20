package ports

import (
	"context"
	"time"

	"clinic-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption of patient
// contact details at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification for the
// billing subsystem API and outgoing alert webhooks.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for staff sessions.
type TokenService interface {
	Generate(staffID uuid.UUID, role domain.StaffRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	StaffID uuid.UUID
	Role    domain.StaffRole
}

// BalanceSnapshot is the cached read model returned by GetBalance.
type BalanceSnapshot struct {
	WalletID         uuid.UUID       `json:"wallet_id"`
	Balance          decimal.Decimal `json:"balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalPayments    decimal.Decimal `json:"total_payments"`
	TotalRefunds     decimal.Decimal `json:"total_refunds"`
	Active           bool            `json:"active"`
	AsOf             time.Time       `json:"as_of"`
}

// BalanceCache is a best-effort read cache for balance snapshots. The
// database stays authoritative; a cache failure is logged, never surfaced.
type BalanceCache interface {
	Get(ctx context.Context, walletID uuid.UUID) (*BalanceSnapshot, error)
	Set(ctx context.Context, snapshot *BalanceSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, walletID uuid.UUID) error
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for billing-API replay prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, caller string, nonce string, ttl time.Duration) (bool, error)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the core wallet ledger: every balance change goes through
// it, and each operation atomically updates the wallet and appends exactly
// one transaction.
type LedgerService interface {
	Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error)
	Pay(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
	Refund(ctx context.Context, req RefundRequest) (*domain.Transaction, error)
	Adjust(ctx context.Context, req AdjustmentRequest) (*domain.Transaction, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (*BalanceSnapshot, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
}

// DepositRequest holds validated input for a deposit. Notes are free-text
// remarks from the front desk, folded into the ledger entry's description.
type DepositRequest struct {
	WalletID      uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod *string
	Description   string
	Notes         string
	StaffID       *uuid.UUID
}

// WithdrawRequest holds validated input for a withdrawal.
type WithdrawRequest struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Description string
	Notes       string
	StaffID     *uuid.UUID
}

// PaymentRequest holds validated input for a billing-funded payment.
type PaymentRequest struct {
	WalletID  uuid.UUID
	Amount    decimal.Decimal
	Reference string // invoice/claim reference, idempotency scope
}

// RefundRequest holds validated input for a billing refund.
type RefundRequest struct {
	WalletID  uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Reason    string
}

// AdjustmentRequest holds validated input for an administrative correction.
// Amount is signed: negative debits the wallet.
type AdjustmentRequest struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
	Reason   string
	StaffID  *uuid.UUID
}

// WalletService manages wallet lifecycle and profile, not balances.
type WalletService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*WalletProfile, error)
	ListWallets(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) error
}

// CreateWalletRequest holds the patient identity and display profile.
type CreateWalletRequest struct {
	PatientID           uuid.UUID
	PatientName         string
	Phone               *string
	Email               *string
	LowBalanceThreshold *decimal.Decimal
	AutoPay             bool
}

// WalletProfile is a wallet with contact details decrypted for display.
type WalletProfile struct {
	Wallet *domain.Wallet
	Phone  *string
	Email  *string
}

// UpdateProfileRequest holds profile fields to change on a wallet.
type UpdateProfileRequest struct {
	WalletID            uuid.UUID
	PatientName         *string
	Phone               *string
	Email               *string
	LowBalanceThreshold *decimal.Decimal
	AutoPay             *bool
}

// AuthService defines staff authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Staff, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for staff registration.
type RegisterRequest struct {
	Username string
	Password string
	FullName string
	Role     domain.StaffRole
}

// ReportingService defines dashboard aggregates.
type ReportingService interface {
	GetLedgerStats(ctx context.Context, period string) (*LedgerStats, error)
}

// AlertService delivers best-effort low-balance notifications. Called after
// a ledger operation commits; never part of the atomic unit.
type AlertService interface {
	NotifyLowBalance(ctx context.Context, wallet *domain.Wallet, transaction *domain.Transaction) error
}

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
