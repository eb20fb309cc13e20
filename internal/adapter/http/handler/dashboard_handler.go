package handler

import (
	"clinic-wallet-service/internal/adapter/http/dto"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles the operator dashboard endpoints.
type DashboardHandler struct {
	reportingSvc ports.ReportingService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reportingSvc ports.ReportingService) *DashboardHandler {
	return &DashboardHandler{reportingSvc: reportingSvc}
}

// GetStats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetLedgerStats(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LedgerStatsResponse{
		TotalTransactions: stats.TotalTransactions,
		TotalDeposited:    stats.TotalDeposited.String(),
		TotalWithdrawn:    stats.TotalWithdrawn.String(),
		TotalPaid:         stats.TotalPaid.String(),
		TotalRefunded:     stats.TotalRefunded.String(),
	})
}
