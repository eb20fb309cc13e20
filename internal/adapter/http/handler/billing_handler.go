package handler

import (
	"clinic-wallet-service/internal/adapter/http/dto"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"
	"clinic-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingHandler handles the HMAC-authenticated billing subsystem endpoints.
type BillingHandler struct {
	ledgerSvc ports.LedgerService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(ledgerSvc ports.LedgerService) *BillingHandler {
	return &BillingHandler{ledgerSvc: ledgerSvc}
}

// Pay handles POST /api/v1/billing/pay. Retried requests with the same
// wallet and reference return the original transaction.
func (h *BillingHandler) Pay(c *gin.Context) {
	var req dto.BillingPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.ledgerSvc.Pay(c.Request.Context(), ports.PaymentRequest{
		WalletID:  walletID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Refund handles POST /api/v1/billing/refund.
func (h *BillingHandler) Refund(c *gin.Context) {
	var req dto.BillingRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.ledgerSvc.Refund(c.Request.Context(), ports.RefundRequest{
		WalletID:  walletID,
		Amount:    amount,
		Reference: req.Reference,
		Reason:    req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}
