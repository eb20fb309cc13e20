package postgres

import (
	"context"
	"testing"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(patientID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:               uuid.New(),
		PatientID:        patientID,
		PatientName:      "Jane Doe",
		Balance:          decimal.RequireFromString("300.00"),
		TotalDeposits:    decimal.RequireFromString("500.00"),
		TotalWithdrawals: decimal.RequireFromString("200.00"),
		TotalPayments:    decimal.Zero,
		TotalRefunds:     decimal.Zero,
		Active:           true,
		AutoPay:          false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func walletCols() []string {
	return []string{
		"id", "patient_id", "patient_name", "phone_enc", "email_enc", "balance",
		"total_deposits", "total_withdrawals", "total_payments", "total_refunds",
		"active", "low_balance_threshold", "auto_pay", "created_at", "updated_at",
	}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletCols()).AddRow(
		w.ID, w.PatientID, w.PatientName, w.PhoneEnc, w.EmailEnc, w.Balance,
		w.TotalDeposits, w.TotalWithdrawals, w.TotalPayments, w.TotalRefunds,
		w.Active, w.LowBalanceThreshold, w.AutoPay, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.PatientID, w.PatientName, w.PhoneEnc, w.EmailEnc, w.Balance,
			w.TotalDeposits, w.TotalWithdrawals, w.TotalPayments, w.TotalRefunds,
			w.Active, w.LowBalanceThreshold, w.AutoPay, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_DuplicatePatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.PatientID, w.PatientName, w.PhoneEnc, w.EmailEnc, w.Balance,
			w.TotalDeposits, w.TotalWithdrawals, w.TotalPayments, w.TotalRefunds,
			w.Active, w.LowBalanceThreshold, w.AutoPay, w.CreatedAt, w.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), w)
	assert.ErrorIs(t, err, ports.ErrDuplicatePatient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.True(t, w.Balance.Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(walletCols()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result, "missing wallet should return nil, nil")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByPatientID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE patient_id").
		WithArgs(w.PatientID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByPatientID(context.Background(), w.PatientID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.PatientID, result.PatientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w1 := newTestWallet(uuid.New())
	w2 := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallets").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT .+ FROM wallets .*ORDER BY created_at DESC").
		WithArgs(20, 0).
		WillReturnRows(walletRow(w1).AddRow(
			w2.ID, w2.PatientID, w2.PatientName, w2.PhoneEnc, w2.EmailEnc, w2.Balance,
			w2.TotalDeposits, w2.TotalWithdrawals, w2.TotalPayments, w2.TotalRefunds,
			w2.Active, w2.LowBalanceThreshold, w2.AutoPay, w2.CreatedAt, w2.UpdatedAt,
		))

	wallets, total, err := repo.List(context.Background(), ports.WalletListParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, wallets, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(w.Balance, w.TotalDeposits, w.TotalWithdrawals,
			w.TotalPayments, w.TotalRefunds, w.UpdatedAt, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(w.Balance, w.TotalDeposits, w.TotalWithdrawals,
			w.TotalPayments, w.TotalRefunds, w.UpdatedAt, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_SetActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE wallets SET active").
		WithArgs(false, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SetActive(context.Background(), id, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
