package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey:   "sk_test_abc",
		BaseURL:     baseURL,
		HTTPTimeout: 5 * time.Second,
	}, logg)
	require.NoError(t, err)
	return client
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "ref-1",
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	resp, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:     "buyer@example.com",
		Amount:    decimal.NewFromFloat(125.50),
		Currency:  "KES",
		Reference: "ref-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_abc", gotAuth)
	assert.Equal(t, float64(12550), gotBody["amount"], "amount must be sent in minor units")
	assert.Equal(t, "https://checkout.paystack.com/abc123", resp.AuthorizationURL)
}

func TestInitializeTransactionValidation(t *testing.T) {
	client := testClient(t, "http://unused")

	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:  "buyer@example.com",
		Amount: decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestVerifyTransactionConvertsMinorUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref-9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"reference": "ref-9",
				"amount":    50000,
				"currency":  "KES",
				"id":        987654,
				"customer":  map[string]any{"email": "buyer@example.com"},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	resp, err := client.VerifyTransaction(context.Background(), "ref-9")
	require.NoError(t, err)

	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(500)), "got %s", resp.Amount)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "buyer@example.com", resp.CustomerEmail)
}

func TestDoMapsGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.VerifyTransaction(context.Background(), "ref-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_abc"
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(secret, body, valid))
	assert.False(t, VerifySignature(secret, body, "deadbeef"))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature(secret, []byte(`tampered`), valid))
}
