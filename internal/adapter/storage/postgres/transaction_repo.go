package postgres

import (
	"context"
	"errors"
	"fmt"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, wallet_id, type, amount, direction, balance_before, balance_after,
	description, payment_method, reference, performed_by, created_at`

// TransactionRepo implements ports.TransactionRepository. The transactions
// table is append-only: this repo exposes no update or delete.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a new ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.Direction, t.BalanceBefore, t.BalanceAfter,
		t.Description, t.PaymentMethod, t.Reference, t.PerformedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByReference fetches a transaction by wallet, type and billing reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, walletID uuid.UUID, txType domain.TransactionType, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 AND type = $2 AND reference = $3`
	return scanTransaction(r.pool.QueryRow(ctx, query, walletID, txType, reference))
}

// ListByWallet fetches a wallet's transactions newest-first with pagination.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, walletID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	dataQuery := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, dataQuery, walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Direction, &t.BalanceBefore, &t.BalanceAfter,
			&t.Description, &t.PaymentMethod, &t.Reference, &t.PerformedBy, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// GetStats retrieves clinic-wide ledger aggregates.
func (r *TransactionRepo) GetStats(ctx context.Context, periodStart *int64) (*ports.LedgerStats, error) {
	var args []any
	condition := "TRUE"
	if periodStart != nil {
		condition = "created_at >= to_timestamp($1)"
		args = append(args, *periodStart)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(amount) FILTER (WHERE type = 'DEPOSIT'), 0) AS deposited,
		COALESCE(SUM(amount) FILTER (WHERE type = 'WITHDRAWAL'), 0) AS withdrawn,
		COALESCE(SUM(amount) FILTER (WHERE type = 'PAYMENT'), 0) AS paid,
		COALESCE(SUM(amount) FILTER (WHERE type = 'REFUND'), 0) AS refunded
		FROM transactions WHERE %s`, condition)

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.TotalDeposited, &stats.TotalWithdrawn,
		&stats.TotalPaid, &stats.TotalRefunded,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Direction, &t.BalanceBefore, &t.BalanceAfter,
		&t.Description, &t.PaymentMethod, &t.Reference, &t.PerformedBy, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
