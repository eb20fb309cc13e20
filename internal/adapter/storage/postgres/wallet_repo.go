package postgres

import (
	"context"
	"errors"
	"fmt"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const walletColumns = `id, patient_id, patient_name, phone_enc, email_enc, balance,
	total_deposits, total_withdrawals, total_payments, total_refunds,
	active, low_balance_threshold, auto_pay, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.PatientID, w.PatientName, w.PhoneEnc, w.EmailEnc, w.Balance,
		w.TotalDeposits, w.TotalWithdrawals, w.TotalPayments, w.TotalRefunds,
		w.Active, w.LowBalanceThreshold, w.AutoPay, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Unique index on wallets.patient_id.
			return ports.ErrDuplicatePatient
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByPatientID fetches a wallet by its owning patient.
func (r *WalletRepo) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE patient_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, patientID))
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction; the row lock serializes all
// concurrent ledger operations against the same wallet.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// List fetches wallets with pagination, newest-first.
func (r *WalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	where := ""
	if params.ActiveOnly {
		where = "WHERE active"
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM wallets %s", where)
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallets: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM wallets %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		walletColumns, where)

	rows, err := r.pool.Query(ctx, dataQuery, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w := domain.Wallet{}
		if err := scanWalletFields(rows, &w); err != nil {
			return nil, 0, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, total, nil
}

// UpdateBalances persists balance, running totals and updated_at within a
// database transaction.
func (r *WalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET balance = $1, total_deposits = $2, total_withdrawals = $3,
		total_payments = $4, total_refunds = $5, updated_at = $6 WHERE id = $7`

	tag, err := tx.Exec(ctx, query,
		w.Balance, w.TotalDeposits, w.TotalWithdrawals,
		w.TotalPayments, w.TotalRefunds, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update wallet balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	return nil
}

// SetActive flips the wallet's activity flag.
func (r *WalletRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE wallets SET active = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set wallet active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", id)
	}
	return nil
}

// UpdateProfile persists the display profile and alert settings.
func (r *WalletRepo) UpdateProfile(ctx context.Context, w *domain.Wallet) error {
	query := `UPDATE wallets SET patient_name = $1, phone_enc = $2, email_enc = $3,
		low_balance_threshold = $4, auto_pay = $5, updated_at = NOW() WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query,
		w.PatientName, w.PhoneEnc, w.EmailEnc, w.LowBalanceThreshold, w.AutoPay, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update wallet profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.PatientID, &w.PatientName, &w.PhoneEnc, &w.EmailEnc, &w.Balance,
		&w.TotalDeposits, &w.TotalWithdrawals, &w.TotalPayments, &w.TotalRefunds,
		&w.Active, &w.LowBalanceThreshold, &w.AutoPay, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}

func scanWalletFields(rows pgx.Rows, w *domain.Wallet) error {
	return rows.Scan(
		&w.ID, &w.PatientID, &w.PatientName, &w.PhoneEnc, &w.EmailEnc, &w.Balance,
		&w.TotalDeposits, &w.TotalWithdrawals, &w.TotalPayments, &w.TotalRefunds,
		&w.Active, &w.LowBalanceThreshold, &w.AutoPay, &w.CreatedAt, &w.UpdatedAt,
	)
}
