package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet lifecycle (WLT) ----

func ErrWalletNotFound() *AppError {
	return New("WLT_001", "Wallet not found", http.StatusNotFound)
}

func ErrWalletExists() *AppError {
	return New("WLT_002", "A wallet already exists for this patient", http.StatusConflict)
}

func ErrWalletInactive() *AppError {
	return New("WLT_003", "Wallet is inactive", http.StatusUnprocessableEntity)
}

// ---- Ledger operations (LGR) ----

func ErrInvalidAmount() *AppError {
	return New("LGR_001", "Invalid amount", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("LGR_002", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrTransactionNotFound() *AppError {
	return New("LGR_003", "Transaction not found", http.StatusNotFound)
}

// ---- Billing API security (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ---- Staff authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrStaffSuspended() *AppError {
	return New("AUTH_004", "Staff account is suspended", http.StatusForbidden)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorage wraps a persistence failure. Ledger state is unchanged when this
// is returned: every mutation runs inside a database transaction that rolls
// back on failure.
func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns an LGR_001-style validation error.
func Validation(message string) *AppError {
	return New("LGR_001", message, http.StatusBadRequest)
}
