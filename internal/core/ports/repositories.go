package ports

import (
	"context"
	"errors"

	"clinic-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicatePatient is returned by WalletRepository.Create when a wallet
// already exists for the patient, whatever mechanism the implementation uses
// to detect it.
var ErrDuplicatePatient = errors.New("wallet already exists for patient")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a ledger transaction and rely on the
// row lock taken by GetByIDForUpdate.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	List(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
	// UpdateBalances persists balance, totals and updated_at within a
	// database transaction. All other columns are left untouched.
	UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateProfile(ctx context.Context, wallet *domain.Wallet) error
}

// WalletListParams holds filter + pagination for listing wallets.
type WalletListParams struct {
	ActiveOnly bool
	Page       int
	PageSize   int
}

// TransactionRepository defines persistence for the append-only transaction
// log. There are deliberately no update or delete operations.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, walletID uuid.UUID, txType domain.TransactionType, reference string) (*domain.Transaction, error)
	// ListByWallet returns transactions newest-first.
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
	GetStats(ctx context.Context, periodStart *int64) (*LedgerStats, error)
}

// LedgerStats holds clinic-wide aggregates for the operator dashboard.
type LedgerStats struct {
	TotalTransactions int64
	TotalDeposited    decimal.Decimal
	TotalWithdrawn    decimal.Decimal
	TotalPaid         decimal.Decimal
	TotalRefunded     decimal.Decimal
}

// StaffRepository defines persistence operations for staff accounts.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	GetByUsername(ctx context.Context, username string) (*domain.Staff, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup
// behind the Redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
