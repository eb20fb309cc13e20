package handler

import (
	"strconv"

	"clinic-wallet-service/internal/adapter/http/dto"
	"clinic-wallet-service/internal/adapter/http/middleware"
	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"
	"clinic-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// WalletHandler handles wallet lifecycle and staff-side ledger endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, ledgerSvc: ledgerSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid patient_id"))
		return
	}

	createReq := ports.CreateWalletRequest{
		PatientID:   patientID,
		PatientName: req.PatientName,
		Phone:       req.Phone,
		Email:       req.Email,
		AutoPay:     req.AutoPay,
	}
	if req.LowBalanceThreshold != nil {
		threshold, err := decimal.NewFromString(*req.LowBalanceThreshold)
		if err != nil {
			response.Error(c, apperror.Validation("invalid low_balance_threshold"))
			return
		}
		createReq.LowBalanceThreshold = &threshold
	}

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), createReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet, req.Phone, req.Email))
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	profile, err := h.walletSvc.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(profile.Wallet, profile.Phone, profile.Email))
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	activeOnly := c.Query("active_only") == "true"

	wallets, total, err := h.walletSvc.ListWallets(c.Request.Context(), ports.WalletListParams{
		ActiveOnly: activeOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i], nil, nil))
	}

	response.OK(c, dto.WalletListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	snapshot, err := h.ledgerSvc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID:         snapshot.WalletID.String(),
		Balance:          snapshot.Balance.String(),
		TotalDeposits:    snapshot.TotalDeposits.String(),
		TotalWithdrawals: snapshot.TotalWithdrawals.String(),
		TotalPayments:    snapshot.TotalPayments.String(),
		TotalRefunds:     snapshot.TotalRefunds.String(),
		Active:           snapshot.Active,
		AsOf:             snapshot.AsOf.Format(timeFormat),
	})
}

// ListTransactions handles GET /api/v1/wallets/:id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	txns, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), walletID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// Deposit handles POST /api/v1/wallets/:id/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		WalletID:      walletID,
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		Notes:         req.Notes,
		StaffID:       staffIDFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Withdraw handles POST /api/v1/wallets/:id/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		WalletID:    walletID,
		Amount:      amount,
		Description: req.Description,
		Notes:       req.Notes,
		StaffID:     staffIDFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Adjustment handles POST /api/v1/wallets/:id/adjustment.
func (h *WalletHandler) Adjustment(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.ledgerSvc.Adjust(c.Request.Context(), ports.AdjustmentRequest{
		WalletID: walletID,
		Amount:   amount,
		Reason:   req.Reason,
		StaffID:  staffIDFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Activate handles POST /api/v1/wallets/:id/activate.
func (h *WalletHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate handles POST /api/v1/wallets/:id/deactivate.
func (h *WalletHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *WalletHandler) setActive(c *gin.Context, active bool) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	if err := h.walletSvc.SetActive(c.Request.Context(), walletID, active); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"wallet_id": walletID.String(), "active": active})
}

// UpdateProfile handles PUT /api/v1/wallets/:id.
func (h *WalletHandler) UpdateProfile(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	updateReq := ports.UpdateProfileRequest{
		WalletID:    walletID,
		PatientName: req.PatientName,
		Phone:       req.Phone,
		Email:       req.Email,
		AutoPay:     req.AutoPay,
	}
	if req.LowBalanceThreshold != nil {
		threshold, err := decimal.NewFromString(*req.LowBalanceThreshold)
		if err != nil {
			response.Error(c, apperror.Validation("invalid low_balance_threshold"))
			return
		}
		updateReq.LowBalanceThreshold = &threshold
	}

	if err := h.walletSvc.UpdateProfile(c.Request.Context(), updateReq); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"wallet_id": walletID.String()})
}

// --- helpers ---

func parseWalletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return uuid.Nil, false
	}
	return id, true
}

func staffIDFromContext(c *gin.Context) *uuid.UUID {
	if sid, exists := c.Get(middleware.CtxStaffID); exists {
		if id, ok := sid.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}

// toWalletResponse converts a domain.Wallet to its DTO. Decrypted contact
// details are passed separately since the wallet only carries ciphertext.
func toWalletResponse(w *domain.Wallet, phone, email *string) dto.WalletResponse {
	resp := dto.WalletResponse{
		ID:               w.ID.String(),
		PatientID:        w.PatientID.String(),
		PatientName:      w.PatientName,
		Phone:            phone,
		Email:            email,
		Balance:          w.Balance.String(),
		TotalDeposits:    w.TotalDeposits.String(),
		TotalWithdrawals: w.TotalWithdrawals.String(),
		TotalPayments:    w.TotalPayments.String(),
		TotalRefunds:     w.TotalRefunds.String(),
		Active:           w.Active,
		AutoPay:          w.AutoPay,
		CreatedAt:        w.CreatedAt.Format(timeFormat),
	}
	if w.LowBalanceThreshold != nil {
		s := w.LowBalanceThreshold.String()
		resp.LowBalanceThreshold = &s
	}
	return resp
}

// toTransactionResponse converts a domain.Transaction to its DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:            tx.ID.String(),
		WalletID:      tx.WalletID.String(),
		Type:          string(tx.Type),
		Amount:        tx.Amount.String(),
		Direction:     tx.Direction,
		BalanceBefore: tx.BalanceBefore.String(),
		BalanceAfter:  tx.BalanceAfter.String(),
		Description:   tx.Description,
		PaymentMethod: tx.PaymentMethod,
		Reference:     tx.Reference,
		CreatedAt:     tx.CreatedAt.Format(timeFormat),
	}
}
