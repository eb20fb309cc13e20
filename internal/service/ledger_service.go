package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL  = 24 * time.Hour
	balanceCacheTTL = 30 * time.Second

	// alertBudget must exceed the alert service's full retry schedule so
	// redelivery attempts are not cut off mid-schedule.
	alertBudget = 5 * time.Minute
)

// LedgerServiceImpl implements ports.LedgerService. Every balance movement
// runs inside a database transaction that locks the wallet row, so
// concurrent operations against the same wallet serialize and each ledger
// entry records a consistent before/after pair.
type LedgerServiceImpl struct {
	walletRepo   ports.WalletRepository
	txRepo       ports.TransactionRepository
	idempRepo    ports.IdempotencyRepository
	idempCache   ports.IdempotencyCache
	balanceCache ports.BalanceCache
	alertSvc     ports.AlertService
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	balanceCache ports.BalanceCache,
	alertSvc ports.AlertService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:   walletRepo,
		txRepo:       txRepo,
		idempRepo:    idempRepo,
		idempCache:   idempCache,
		balanceCache: balanceCache,
		alertSvc:     alertSvc,
		transactor:   transactor,
		log:          log,
	}
}

// movement is one validated balance change waiting to be applied under the
// wallet row lock.
type movement struct {
	walletID      uuid.UUID
	txType        domain.TransactionType
	amount        decimal.Decimal // positive magnitude
	direction     int16
	description   string
	paymentMethod *string
	reference     *string
	performedBy   *uuid.UUID
	idempKey      string // empty disables the idempotency guard
}

// Deposit credits the wallet by a positive amount.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	return s.execute(ctx, movement{
		walletID:      req.WalletID,
		txType:        domain.TransactionTypeDeposit,
		amount:        req.Amount,
		direction:     domain.DirectionCredit,
		description:   mergeNotes(req.Description, req.Notes),
		paymentMethod: req.PaymentMethod,
		performedBy:   req.StaffID,
	})
}

// Withdraw debits the wallet by a positive amount, rejecting overdrafts.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	return s.execute(ctx, movement{
		walletID:    req.WalletID,
		txType:      domain.TransactionTypeWithdrawal,
		amount:      req.Amount,
		direction:   domain.DirectionDebit,
		description: mergeNotes(req.Description, req.Notes),
		performedBy: req.StaffID,
	})
}

// Pay debits the wallet on behalf of the billing subsystem. Retried requests
// carrying the same invoice reference return the original transaction.
func (s *LedgerServiceImpl) Pay(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reference == "" {
		return nil, apperror.Validation("reference is required")
	}
	ref := req.Reference
	return s.execute(ctx, movement{
		walletID:    req.WalletID,
		txType:      domain.TransactionTypePayment,
		amount:      req.Amount,
		direction:   domain.DirectionDebit,
		description: "Invoice payment " + req.Reference,
		reference:   &ref,
		idempKey:    domain.BuildPaymentKey(req.WalletID, req.Reference),
	})
}

// Refund credits the wallet back against an earlier payment. The referenced
// payment must exist and the refund may not exceed its amount.
func (s *LedgerServiceImpl) Refund(ctx context.Context, req ports.RefundRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reference == "" {
		return nil, apperror.Validation("reference is required")
	}

	origTx, err := s.txRepo.GetByReference(ctx, req.WalletID, domain.TransactionTypePayment, req.Reference)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("find original payment: %w", err))
	}
	if origTx == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if req.Amount.GreaterThan(origTx.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	description := "Refund for " + req.Reference
	if req.Reason != "" {
		description += ": " + req.Reason
	}
	ref := req.Reference
	return s.execute(ctx, movement{
		walletID:    req.WalletID,
		txType:      domain.TransactionTypeRefund,
		amount:      req.Amount,
		direction:   domain.DirectionCredit,
		description: description,
		reference:   &ref,
		idempKey:    domain.BuildRefundKey(req.WalletID, req.Reference),
	})
}

// Adjust applies a signed administrative correction. Negative amounts debit
// the wallet and are subject to the overdraft rule like any other debit.
func (s *LedgerServiceImpl) Adjust(ctx context.Context, req ports.AdjustmentRequest) (*domain.Transaction, error) {
	if req.Amount.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reason == "" {
		return nil, apperror.Validation("reason is required")
	}

	direction := domain.DirectionCredit
	amount := req.Amount
	if req.Amount.IsNegative() {
		direction = domain.DirectionDebit
		amount = req.Amount.Neg()
	}
	return s.execute(ctx, movement{
		walletID:    req.WalletID,
		txType:      domain.TransactionTypeAdjustment,
		amount:      amount,
		direction:   direction,
		description: req.Reason,
		performedBy: req.StaffID,
	})
}

// GetBalance returns the wallet's balance snapshot, served from the Redis
// cache when fresh. The cache is best-effort; Postgres stays authoritative.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (*ports.BalanceSnapshot, error) {
	if s.balanceCache != nil {
		cached, err := s.balanceCache.Get(ctx, walletID)
		if err != nil {
			s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("balance cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	snapshot := &ports.BalanceSnapshot{
		WalletID:         wallet.ID,
		Balance:          wallet.Balance,
		TotalDeposits:    wallet.TotalDeposits,
		TotalWithdrawals: wallet.TotalWithdrawals,
		TotalPayments:    wallet.TotalPayments,
		TotalRefunds:     wallet.TotalRefunds,
		Active:           wallet.Active,
		AsOf:             time.Now().UTC(),
	}

	if s.balanceCache != nil {
		if err := s.balanceCache.Set(ctx, snapshot, balanceCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("balance cache write failed")
		}
	}
	return snapshot, nil
}

// ListTransactions returns the wallet's ledger entries newest-first.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, 0, apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, apperror.ErrWalletNotFound()
	}

	txns, total, err := s.txRepo.ListByWallet(ctx, walletID, limit, offset)
	if err != nil {
		return nil, 0, apperror.ErrStorage(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// execute applies one movement atomically: lock the wallet row, validate,
// update balances and append the ledger entry, all in a single database
// transaction. On an idempotent retry the cached original is returned and
// no new entry is written.
func (s *LedgerServiceImpl) execute(ctx context.Context, m movement) (*domain.Transaction, error) {
	if m.idempKey != "" {
		// Layer 1: Redis idempotency check
		cached, err := s.idempCache.Get(ctx, m.idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", m.idempKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return unmarshalCachedTransaction(cached)
		}

		// Layer 2: DB idempotency check
		idempLog, err := s.idempRepo.Get(ctx, m.idempKey)
		if err != nil {
			return nil, apperror.ErrStorage(fmt.Errorf("db idempotency check: %w", err))
		}
		if idempLog != nil {
			return unmarshalCachedTransaction(idempLog.ResponseJSON)
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, m.walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.Active {
		return nil, apperror.ErrWalletInactive()
	}
	if m.direction == domain.DirectionDebit && wallet.Balance.LessThan(m.amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          m.txType,
		Amount:        m.amount,
		Direction:     m.direction,
		BalanceBefore: wallet.Balance,
		Description:   m.description,
		PaymentMethod: m.paymentMethod,
		Reference:     m.reference,
		PerformedBy:   m.performedBy,
		CreatedAt:     now,
	}
	wallet.Apply(txn)
	txn.BalanceAfter = wallet.Balance

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, wallet); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update balances: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	var respJSON []byte
	if m.idempKey != "" {
		respJSON, err = json.Marshal(txn)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		idempLogEntry := &domain.IdempotencyLog{
			Key:           m.idempKey,
			TransactionID: txn.ID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, idempLogEntry); err != nil {
			return nil, apperror.ErrStorage(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit, best-effort: drop the stale balance snapshot and cache
	// the idempotent response.
	if s.balanceCache != nil {
		if err := s.balanceCache.Invalidate(ctx, wallet.ID); err != nil {
			s.log.Warn().Err(err).Str("wallet_id", wallet.ID.String()).Msg("balance cache invalidation failed")
		}
	}
	if m.idempKey != "" && respJSON != nil {
		if err := s.idempCache.Set(ctx, m.idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", m.idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	if s.alertSvc != nil && !txn.IsCredit() && wallet.BelowThreshold() {
		walletCopy := *wallet
		txnCopy := *txn
		go func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), alertBudget)
			defer cancel()
			if err := s.alertSvc.NotifyLowBalance(alertCtx, &walletCopy, &txnCopy); err != nil {
				s.log.Warn().Err(err).Str("wallet_id", walletCopy.ID.String()).Msg("low balance alert failed")
			}
		}()
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.String()).
		Str("balance", wallet.Balance.String()).
		Msg("ledger entry recorded")

	return txn, nil
}

// mergeNotes folds optional front-desk notes into the stored description.
// The ledger entry carries a single free-text field.
func mergeNotes(description, notes string) string {
	switch {
	case notes == "":
		return description
	case description == "":
		return notes
	default:
		return description + " (" + notes + ")"
	}
}

// unmarshalCachedTransaction deserializes a cached transaction.
func unmarshalCachedTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached tx: %w", err))
	}
	return txn, nil
}
