package middleware

import (
	"encoding/json"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps route patterns to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var staffID *uuid.UUID
		if sid, exists := c.Get(CtxStaffID); exists {
			if id, ok := sid.(uuid.UUID); ok {
				staffID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			StaffID:      staffID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/auth/register" && method == "POST":
		return domain.AuditActionRegister, "staff"
	case route == "/api/v1/auth/login" && method == "POST":
		return domain.AuditActionLogin, "session"
	case route == "/api/v1/wallets" && method == "POST":
		return domain.AuditActionWalletCreate, "wallet"
	case route == "/api/v1/wallets/:id" && method == "PUT":
		return domain.AuditActionWalletUpdate, "wallet"
	case route == "/api/v1/wallets/:id/deposit" && method == "POST":
		return domain.AuditActionDeposit, "wallet"
	case route == "/api/v1/wallets/:id/withdraw" && method == "POST":
		return domain.AuditActionWithdrawal, "wallet"
	case route == "/api/v1/wallets/:id/adjustment" && method == "POST":
		return domain.AuditActionAdjustment, "wallet"
	case route == "/api/v1/wallets/:id/activate" && method == "POST":
		return domain.AuditActionWalletActivate, "wallet"
	case route == "/api/v1/wallets/:id/deactivate" && method == "POST":
		return domain.AuditActionWalletDeactivate, "wallet"
	case route == "/api/v1/billing/pay" && method == "POST":
		return domain.AuditActionPayment, "transaction"
	case route == "/api/v1/billing/refund" && method == "POST":
		return domain.AuditActionRefund, "transaction"
	}
	return "", ""
}
