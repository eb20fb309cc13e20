package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
)

// alertRetryIntervals spaces out redelivery attempts for a failed alert.
var alertRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
}

// Alert event types
const (
	EventLowBalance = "LOW_BALANCE"
)

// AlertPayload is the JSON structure sent to the clinic's notification hook.
type AlertPayload struct {
	EventType string           `json:"event_type"`
	Data      AlertPayloadData `json:"data"`
	Signature string           `json:"signature"`
}

// AlertPayloadData holds the wallet and trigger details in the alert.
type AlertPayloadData struct {
	WalletID      string `json:"wallet_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	Balance       string `json:"balance"`
	Threshold     string `json:"threshold"`
	TransactionID string `json:"transaction_id"`
	Timestamp     int64  `json:"timestamp"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// alertService implements ports.AlertService. It posts low-balance
// notifications to a configured hook URL, signed with a shared secret so the
// receiver can verify origin. Delivery is best-effort with retries.
type alertService struct {
	hookURL    string
	secretKey  string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewAlertService creates a new alert service. An empty hookURL disables
// delivery entirely.
func NewAlertService(
	hookURL string,
	secretKey string,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
) ports.AlertService {
	return &alertService{
		hookURL:    hookURL,
		secretKey:  secretKey,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		log:        log,
	}
}

// NotifyLowBalance sends a low-balance alert for the wallet that the given
// transaction pushed under its threshold.
func (s *alertService) NotifyLowBalance(ctx context.Context, wallet *domain.Wallet, transaction *domain.Transaction) error {
	if s.hookURL == "" {
		s.log.Debug().Str("wallet_id", wallet.ID.String()).Msg("alert: no hook URL configured, skipping")
		return nil
	}

	threshold := ""
	if wallet.LowBalanceThreshold != nil {
		threshold = wallet.LowBalanceThreshold.String()
	}

	data := AlertPayloadData{
		WalletID:      wallet.ID.String(),
		PatientID:     wallet.PatientID.String(),
		PatientName:   wallet.PatientName,
		Balance:       wallet.Balance.String(),
		Threshold:     threshold,
		TransactionID: transaction.ID.String(),
		Timestamp:     time.Now().Unix(),
	}

	dataBytes, _ := json.Marshal(data)
	payload := AlertPayload{
		EventType: EventLowBalance,
		Data:      data,
		Signature: s.sigSvc.Sign(s.secretKey, string(dataBytes)),
	}

	s.deliverWithRetries(ctx, payload, wallet.ID.String())
	return nil
}

// deliverWithRetries attempts delivery until a 2xx response, an exhausted
// retry schedule, or context cancellation.
func (s *alertService) deliverWithRetries(ctx context.Context, payload AlertPayload, walletID string) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("wallet_id", walletID).Msg("alert: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(alertRetryIntervals); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				s.log.Warn().Str("wallet_id", walletID).Msg("alert: context cancelled, giving up")
				return
			case <-time.After(alertRetryIntervals[attempt-1]):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.hookURL, bytes.NewReader(payloadBytes))
		if err != nil {
			s.log.Error().Err(err).Str("wallet_id", walletID).Int("attempt", attempt+1).Msg("alert: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Str("wallet_id", walletID).Int("attempt", attempt+1).Msg("alert: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().Str("wallet_id", walletID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("alert: delivered successfully")
			return
		}

		s.log.Warn().Str("wallet_id", walletID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("alert: non-2xx response, retrying")
	}

	s.log.Error().Str("wallet_id", walletID).Msg("alert: all retry attempts exhausted")
}
