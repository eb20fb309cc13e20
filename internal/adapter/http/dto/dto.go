package dto

// RegisterRequest is the request body for staff registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=ADMIN OPERATOR"`
}

// LoginRequest is the request body for staff login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateWalletRequest is the request body for opening a patient wallet.
type CreateWalletRequest struct {
	PatientID           string  `json:"patient_id" binding:"required,uuid"`
	PatientName         string  `json:"patient_name" binding:"required,min=1,max=200"`
	Phone               *string `json:"phone,omitempty" binding:"omitempty,max=32"`
	Email               *string `json:"email,omitempty" binding:"omitempty,email"`
	LowBalanceThreshold *string `json:"low_balance_threshold,omitempty" binding:"omitempty,decimal_amount"`
	AutoPay             bool    `json:"auto_pay"`
}

// UpdateProfileRequest is the request body for changing a wallet's profile.
// Absent fields are left unchanged.
type UpdateProfileRequest struct {
	PatientName         *string `json:"patient_name,omitempty" binding:"omitempty,min=1,max=200"`
	Phone               *string `json:"phone,omitempty" binding:"omitempty,max=32"`
	Email               *string `json:"email,omitempty" binding:"omitempty,email"`
	LowBalanceThreshold *string `json:"low_balance_threshold,omitempty" binding:"omitempty,decimal_amount"`
	AutoPay             *bool   `json:"auto_pay,omitempty"`
}

// DepositRequest is the request body for a wallet deposit.
// Amounts travel as decimal strings to keep cents exact.
type DepositRequest struct {
	Amount        string  `json:"amount" binding:"required,decimal_amount"`
	PaymentMethod *string `json:"payment_method,omitempty" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER"`
	Description   string  `json:"description" binding:"omitempty,max=500"`
	Notes         string  `json:"notes" binding:"omitempty,max=500"`
}

// WithdrawRequest is the request body for a wallet withdrawal.
type WithdrawRequest struct {
	Amount      string `json:"amount" binding:"required,decimal_amount"`
	Description string `json:"description" binding:"omitempty,max=500"`
	Notes       string `json:"notes" binding:"omitempty,max=500"`
}

// AdjustmentRequest is the request body for an administrative correction.
// The amount is signed; a leading minus debits the wallet.
type AdjustmentRequest struct {
	Amount string `json:"amount" binding:"required,signed_decimal"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// BillingPayRequest is the request body the billing subsystem sends to
// charge a wallet for an invoice.
type BillingPayRequest struct {
	WalletID  string `json:"wallet_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,decimal_amount"`
	Reference string `json:"reference" binding:"required,max=100,safe_id"`
}

// BillingRefundRequest is the request body for refunding an earlier payment.
type BillingRefundRequest struct {
	WalletID  string `json:"wallet_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,decimal_amount"`
	Reference string `json:"reference" binding:"required,max=100,safe_id"`
	Reason    string `json:"reason" binding:"omitempty,max=500"`
}

// TransactionResponse is the response body for ledger entries.
type TransactionResponse struct {
	ID            string  `json:"id"`
	WalletID      string  `json:"wallet_id"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Direction     int16   `json:"direction"`
	BalanceBefore string  `json:"balance_before"`
	BalanceAfter  string  `json:"balance_after"`
	Description   string  `json:"description,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	Reference     *string `json:"reference,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID                  string  `json:"id"`
	PatientID           string  `json:"patient_id"`
	PatientName         string  `json:"patient_name"`
	Phone               *string `json:"phone,omitempty"`
	Email               *string `json:"email,omitempty"`
	Balance             string  `json:"balance"`
	TotalDeposits       string  `json:"total_deposits"`
	TotalWithdrawals    string  `json:"total_withdrawals"`
	TotalPayments       string  `json:"total_payments"`
	TotalRefunds        string  `json:"total_refunds"`
	Active              bool    `json:"active"`
	LowBalanceThreshold *string `json:"low_balance_threshold,omitempty"`
	AutoPay             bool    `json:"auto_pay"`
	CreatedAt           string  `json:"created_at"`
}

// BalanceResponse is the response for balance queries.
type BalanceResponse struct {
	WalletID         string `json:"wallet_id"`
	Balance          string `json:"balance"`
	TotalDeposits    string `json:"total_deposits"`
	TotalWithdrawals string `json:"total_withdrawals"`
	TotalPayments    string `json:"total_payments"`
	TotalRefunds     string `json:"total_refunds"`
	Active           bool   `json:"active"`
	AsOf             string `json:"as_of"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// WalletListResponse wraps a paginated wallet list.
type WalletListResponse struct {
	Items      []WalletResponse `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// LedgerStatsResponse is the response for dashboard statistics.
type LedgerStatsResponse struct {
	TotalTransactions int64  `json:"total_transactions"`
	TotalDeposited    string `json:"total_deposited"`
	TotalWithdrawn    string `json:"total_withdrawn"`
	TotalPaid         string `json:"total_paid"`
	TotalRefunded     string `json:"total_refunded"`
}
