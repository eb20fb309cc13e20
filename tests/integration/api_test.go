package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-wallet-service/config"
	httpHandler "clinic-wallet-service/internal/adapter/http/handler"
	redisStorage "clinic-wallet-service/internal/adapter/storage/redis"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/internal/service"
	"clinic-wallet-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "bk_clinic_billing"
	testSecretKey = "billing-shared-secret-for-tests"
)

// testApp builds a full application stack backed by in-memory repos and
// miniredis. It exercises the real HTTP layer, middleware, handlers,
// services, and Redis stores end-to-end.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	// Redis stores
	balanceCache := redisStorage.NewBalanceCache(rdb)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)

	// Core services with real implementations
	encSvc, err := service.NewAESEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	// In-memory repos
	walletRepo := newInMemoryWalletRepo()
	txRepo := newInMemoryTransactionRepo()
	staffRepo := newInMemoryStaffRepo()
	idempotencyRepo := newInMemoryIdempotencyRepo()
	transactor := newSerialTransactor()

	// Business services
	log := logger.New("debug", false)
	authSvc := service.NewAuthService(staffRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, encSvc, log)
	alertSvc := service.NewAlertService("", "", sigSvc, nil, log)
	ledgerSvc := service.NewLedgerService(
		walletRepo, txRepo, idempotencyRepo, idempotencyCache, balanceCache,
		alertSvc, transactor, log,
	)
	reportingSvc := service.NewReportingService(txRepo)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:      authSvc,
		WalletSvc:    walletSvc,
		LedgerSvc:    ledgerSvc,
		ReportingSvc: reportingSvc,
		SigSvc:       sigSvc,
		NonceStore:   nonceStore,
		TokenSvc:     tokenSvc,
		BillingCfg: config.BillingConfig{
			AccessKey:      testAccessKey,
			SecretKey:      testSecretKey,
			TimestampDrift: 60 * time.Second,
			NonceTTL:       120 * time.Second,
		},
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server: server,
		redis:  mr,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// --- Helpers ---

func registerAndLogin(t *testing.T, app *testApp) string {
	t.Helper()

	regBody, _ := json.Marshal(map[string]string{
		"username":  "frontdesk1",
		"password":  "StrongPass123!",
		"full_name": "Front Desk",
		"role":      "OPERATOR",
	})
	resp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(regBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loginBody, _ := json.Marshal(map[string]string{
		"username": "frontdesk1",
		"password": "StrongPass123!",
	})
	resp2, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var loginResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&loginResp))
	return loginResp["data"].(map[string]interface{})["token"].(string)
}

func createWallet(t *testing.T, app *testApp, token string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]interface{}{
		"patient_id":   uuid.New().String(),
		"patient_name": "Nguyen Van A",
	})
	req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created["data"].(map[string]interface{})["id"].(string)
}

// doJSON sends an authenticated JSON request and returns the decoded body.
func doJSON(t *testing.T, app *testApp, token, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		reader = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, app.server.URL+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), "body: %s", string(raw))
	}
	return resp.StatusCode, body
}

// signedBillingRequest signs a billing-API request the way the billing
// subsystem does: HMAC-SHA256 over METHOD|PATH|TIMESTAMP|NONCE|BODY.
func signedBillingRequest(t *testing.T, app *testApp, path, nonce string, payload interface{}) *http.Request {
	t.Helper()

	body, _ := json.Marshal(payload)
	timestamp := time.Now().Unix()

	canonical := fmt.Sprintf("POST|%s|%d|%s|%s", path, timestamp, nonce, string(body))
	mac := hmac.New(sha256.New, []byte(testSecretKey))
	mac.Write([]byte(canonical))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, _ := http.NewRequest(http.MethodPost, app.server.URL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Billing-Access-Key", testAccessKey)
	req.Header.Set("X-Signature", signature)
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("X-Nonce", nonce)
	return req
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	regBody, _ := json.Marshal(map[string]string{
		"username":  "admin1",
		"password":  "StrongPass123!",
		"full_name": "Clinic Admin",
		"role":      "ADMIN",
	})
	resp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(regBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var regResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&regResp))
	data := regResp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["staff_id"])
	assert.Equal(t, "admin1", data["username"])
	assert.Equal(t, "ADMIN", data["role"])

	loginBody, _ := json.Marshal(map[string]string{
		"username": "admin1",
		"password": "StrongPass123!",
	})
	resp2, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	defer resp2.Body.Close()

	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var loginResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&loginResp))
	loginData := loginResp["data"].(map[string]interface{})
	assert.NotEmpty(t, loginData["token"])
}

func TestIntegration_DuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	regBody, _ := json.Marshal(map[string]string{
		"username":  "frontdesk1",
		"password":  "StrongPass123!",
		"full_name": "First",
	})

	resp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(regBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp2, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(regBody))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestIntegration_LoginWrongCredentials(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	loginBody, _ := json.Marshal(map[string]string{
		"username": "nobody",
		"password": "wrongwrong",
	})
	resp, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_JWT_Unauthorized(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallets", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestIntegration_LedgerLifecycle walks a wallet through the full front-desk
// and billing flow and checks that every step moves the balance as expected
// and leaves exactly one ledger entry behind.
func TestIntegration_LedgerLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	// Deposit 500.00
	status, body := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount":         "500.00",
		"payment_method": "CASH",
		"description":    "opening deposit",
	})
	require.Equal(t, http.StatusCreated, status)
	dep := body["data"].(map[string]interface{})
	assert.Equal(t, "DEPOSIT", dep["type"])
	assert.Equal(t, "0", dep["balance_before"])
	assert.Equal(t, "500.00", dep["balance_after"])

	// Withdraw 200.00
	status, body = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/withdraw", map[string]interface{}{
		"amount": "200.00",
	})
	require.Equal(t, http.StatusCreated, status)
	wd := body["data"].(map[string]interface{})
	assert.Equal(t, "WITHDRAWAL", wd["type"])
	assert.Equal(t, "300.00", wd["balance_after"])

	// Overdraw attempt fails with 402 and leaves no ledger entry
	status, body = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/withdraw", map[string]interface{}{
		"amount": "1000.00",
	})
	require.Equal(t, http.StatusPaymentRequired, status)

	// Billing pays 100.00 from the wallet
	payReq := signedBillingRequest(t, app, "/api/v1/billing/pay", "nonce-pay-001", map[string]interface{}{
		"wallet_id": walletID,
		"amount":    "100.00",
		"reference": "INV-2026-001",
	})
	payResp, err := http.DefaultClient.Do(payReq)
	require.NoError(t, err)
	defer payResp.Body.Close()
	payRaw, _ := io.ReadAll(payResp.Body)
	require.Equal(t, http.StatusCreated, payResp.StatusCode, "pay response: %s", string(payRaw))

	var payBody map[string]interface{}
	require.NoError(t, json.Unmarshal(payRaw, &payBody))
	pay := payBody["data"].(map[string]interface{})
	assert.Equal(t, "PAYMENT", pay["type"])
	assert.Equal(t, "200.00", pay["balance_after"])

	// Billing refunds 50.00 of the invoice
	refundReq := signedBillingRequest(t, app, "/api/v1/billing/refund", "nonce-refund-001", map[string]interface{}{
		"wallet_id": walletID,
		"amount":    "50.00",
		"reference": "INV-2026-001",
		"reason":    "partial claim approval",
	})
	refundResp, err := http.DefaultClient.Do(refundReq)
	require.NoError(t, err)
	defer refundResp.Body.Close()
	refundRaw, _ := io.ReadAll(refundResp.Body)
	require.Equal(t, http.StatusCreated, refundResp.StatusCode, "refund response: %s", string(refundRaw))

	// Final balance: 500 - 200 - 100 + 50 = 250.00
	status, body = doJSON(t, app, token, http.MethodGet, "/api/v1/wallets/"+walletID+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	bal := body["data"].(map[string]interface{})
	assert.Equal(t, "250.00", bal["balance"])
	assert.Equal(t, "500.00", bal["total_deposits"])
	assert.Equal(t, "200.00", bal["total_withdrawals"])
	assert.Equal(t, "100.00", bal["total_payments"])
	assert.Equal(t, "50.00", bal["total_refunds"])

	// The failed withdrawal left no entry: 4 transactions, newest first
	status, body = doJSON(t, app, token, http.MethodGet, "/api/v1/wallets/"+walletID+"/transactions?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, status)
	list := body["data"].(map[string]interface{})
	assert.Equal(t, float64(4), list["total"])
	items := list["items"].([]interface{})
	require.Len(t, items, 4)
	assert.Equal(t, "REFUND", items[0].(map[string]interface{})["type"])
	assert.Equal(t, "PAYMENT", items[1].(map[string]interface{})["type"])
	assert.Equal(t, "WITHDRAWAL", items[2].(map[string]interface{})["type"])
	assert.Equal(t, "DEPOSIT", items[3].(map[string]interface{})["type"])
}

func TestIntegration_Adjustment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	status, _ := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "100.00",
	})
	require.Equal(t, http.StatusCreated, status)

	// Negative adjustment debits the wallet
	status, body := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/adjustment", map[string]interface{}{
		"amount": "-25.50",
		"reason": "billing error correction",
	})
	require.Equal(t, http.StatusCreated, status)
	adj := body["data"].(map[string]interface{})
	assert.Equal(t, "ADJUSTMENT", adj["type"])
	assert.Equal(t, "74.50", adj["balance_after"])

	// Adjustment that would overdraw is rejected
	status, _ = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/adjustment", map[string]interface{}{
		"amount": "-100.00",
		"reason": "should fail",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
}

func TestIntegration_InactiveWalletRejectsOperations(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	status, _ := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "10.00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// Reactivate and the wallet accepts deposits again
	status, _ = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/activate", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "10.00",
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestIntegration_HMAC_MissingHeaders(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Post(app.server.URL+"/api/v1/billing/pay", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_HMAC_ReplayedNonce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	status, _ := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "500.00",
	})
	require.Equal(t, http.StatusCreated, status)

	payload := map[string]interface{}{
		"wallet_id": walletID,
		"amount":    "10.00",
		"reference": "INV-REPLAY-1",
	}

	resp, err := http.DefaultClient.Do(signedBillingRequest(t, app, "/api/v1/billing/pay", "replay-nonce", payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same nonce again is rejected before the handler runs
	resp2, err := http.DefaultClient.Do(signedBillingRequest(t, app, "/api/v1/billing/pay", "replay-nonce", payload))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestIntegration_IdempotentPaymentRetry(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	status, _ := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "500.00",
	})
	require.Equal(t, http.StatusCreated, status)

	payload := map[string]interface{}{
		"wallet_id": walletID,
		"amount":    "100.00",
		"reference": "INV-RETRY-1",
	}

	resp, err := http.DefaultClient.Do(signedBillingRequest(t, app, "/api/v1/billing/pay", "retry-nonce-1", payload))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &first))
	firstID := first["data"].(map[string]interface{})["id"].(string)

	// Retry with the same reference (fresh nonce): replayed, not re-executed
	resp2, err := http.DefaultClient.Do(signedBillingRequest(t, app, "/api/v1/billing/pay", "retry-nonce-2", payload))
	require.NoError(t, err)
	raw2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	require.Equal(t, http.StatusCreated, resp2.StatusCode, "retry response: %s", string(raw2))

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(raw2, &second))
	assert.Equal(t, firstID, second["data"].(map[string]interface{})["id"].(string))

	// Balance debited once
	status, body := doJSON(t, app, token, http.MethodGet, "/api/v1/wallets/"+walletID+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "400.00", body["data"].(map[string]interface{})["balance"])
}

func TestIntegration_DashboardStats(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app)
	walletID := createWallet(t, app, token)

	status, _ := doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/deposit", map[string]interface{}{
		"amount": "300.00",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, app, token, http.MethodPost, "/api/v1/wallets/"+walletID+"/withdraw", map[string]interface{}{
		"amount": "120.00",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, token, http.MethodGet, "/api/v1/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, status)
	stats := body["data"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["total_transactions"])
	assert.Equal(t, "300.00", stats["total_deposited"])
	assert.Equal(t, "120.00", stats["total_withdrawn"])
}
