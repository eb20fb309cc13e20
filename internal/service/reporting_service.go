package service

import (
	"context"
	"time"

	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo ports.TransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(txRepo ports.TransactionRepository) ports.ReportingService {
	return &reportingService{txRepo: txRepo}
}

// GetLedgerStats returns clinic-wide ledger aggregates for the dashboard.
func (s *reportingService) GetLedgerStats(ctx context.Context, period string) (*ports.LedgerStats, error) {
	var periodStart *int64

	switch period {
	case "day":
		t := time.Now().AddDate(0, 0, -1).Unix()
		periodStart = &t
	case "week":
		t := time.Now().AddDate(0, 0, -7).Unix()
		periodStart = &t
	case "month":
		t := time.Now().AddDate(0, -1, 0).Unix()
		periodStart = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.txRepo.GetStats(ctx, periodStart)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return stats, nil
}
