package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()

	payload := `{"wallet_id":"abc","amount":"100.00"}`
	sig := svc.Sign("secret-key", payload)
	assert.Len(t, sig, 64, "HMAC-SHA256 hex signature is 64 chars")

	assert.True(t, svc.Verify("secret-key", payload, sig))
	assert.False(t, svc.Verify("wrong-key", payload, sig))
	assert.False(t, svc.Verify("secret-key", payload+"x", sig))
	assert.False(t, svc.Verify("secret-key", payload, sig[:63]+"f"))
}

func TestHMACSignatureService_Deterministic(t *testing.T) {
	svc := NewHMACSignatureService()

	s1 := svc.Sign("key", "payload")
	s2 := svc.Sign("key", "payload")
	assert.Equal(t, s1, s2)
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	canonical := svc.BuildCanonicalString("POST", "/api/v1/billing/pay", 1700000000, "nonce-abc", `{"amount":"100.00"}`)
	assert.Equal(t, `POST|/api/v1/billing/pay|1700000000|nonce-abc|{"amount":"100.00"}`, canonical)
}
