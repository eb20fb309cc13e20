package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.PatientID == w.PatientID {
			return ports.ErrDuplicatePatient
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.PatientID == patientID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Wallet
	for _, w := range r.wallets {
		if params.ActiveOnly && !w.Active {
			continue
		}
		result = append(result, *w)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Wallet{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.ID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	stored.Balance = w.Balance
	stored.TotalDeposits = w.TotalDeposits
	stored.TotalWithdrawals = w.TotalWithdrawals
	stored.TotalPayments = w.TotalPayments
	stored.TotalRefunds = w.TotalRefunds
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryWalletRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Active = active
	return nil
}

func (r *inMemoryWalletRepo) UpdateProfile(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.ID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	stored.PatientName = w.PatientName
	stored.PhoneEnc = w.PhoneEnc
	stored.EmailEnc = w.EmailEnc
	stored.LowBalanceThreshold = w.LowBalanceThreshold
	stored.AutoPay = w.AutoPay
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction // append order, oldest first
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions = append(r.transactions, &cp)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, walletID uuid.UUID, txType domain.TransactionType, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.WalletID == walletID && t.Type == txType && t.Reference != nil && *t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.Transaction
	for _, t := range r.transactions {
		if t.WalletID == walletID {
			matched = append(matched, t)
		}
	}
	total := int64(len(matched))

	// newest first
	var result []domain.Transaction
	for i := len(matched) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, *matched[i])
	}
	return result, total, nil
}

func (r *inMemoryTransactionRepo) GetStats(ctx context.Context, periodStart *int64) (*ports.LedgerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.LedgerStats{}
	for _, t := range r.transactions {
		if periodStart != nil && t.CreatedAt.Unix() < *periodStart {
			continue
		}
		stats.TotalTransactions++
		switch t.Type {
		case domain.TransactionTypeDeposit:
			stats.TotalDeposited = stats.TotalDeposited.Add(t.Amount)
		case domain.TransactionTypeWithdrawal:
			stats.TotalWithdrawn = stats.TotalWithdrawn.Add(t.Amount)
		case domain.TransactionTypePayment:
			stats.TotalPaid = stats.TotalPaid.Add(t.Amount)
		case domain.TransactionTypeRefund:
			stats.TotalRefunded = stats.TotalRefunded.Add(t.Amount)
		}
	}
	return stats, nil
}

// --- In-Memory Staff Repo ---

type inMemoryStaffRepo struct {
	mu    sync.RWMutex
	staff map[uuid.UUID]*domain.Staff
}

func newInMemoryStaffRepo() *inMemoryStaffRepo {
	return &inMemoryStaffRepo{staff: make(map[uuid.UUID]*domain.Staff)}
}

func (r *inMemoryStaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.staff {
		if existing.Username == s.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *s
	r.staff[s.ID] = &cp
	return nil
}

func (r *inMemoryStaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemoryStaffRepo) GetByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.staff {
		if s.Username == username {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.Key] = log
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

// --- Serializing Transactor ---

// serialTransactor approximates SELECT FOR UPDATE row locking with a single
// mutex: Begin blocks until the previous ledger transaction commits or rolls
// back, so concurrent operations on the same store run one at a time.
type serialTransactor struct {
	mu sync.Mutex
}

func newSerialTransactor() *serialTransactor {
	return &serialTransactor{}
}

func (t *serialTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: &t.mu}, nil
}

// serialTx is a no-op pgx.Tx that releases the transactor lock exactly once,
// on whichever of Commit or Rollback runs first.
type serialTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *serialTx) done() {
	t.once.Do(t.release.Unlock)
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
