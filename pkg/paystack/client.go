package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// minorUnitFactor converts Paystack's subunit amounts to major units.
var minorUnitFactor = decimal.NewFromInt(100)

// Client wraps the Paystack REST API with auth, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	callback   string
	logger     *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		callback:   cfg.CallbackURL,
		logger:     logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// InitializeRequest starts a hosted checkout session.
type InitializeRequest struct {
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"-"`
	Currency  string          `json:"currency,omitempty"`
	Reference string          `json:"reference"`
	Callback  string          `json:"callback_url,omitempty"`
}

// InitializeResponse carries the checkout handle returned by Paystack.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResponse is the transaction state reported by the verify endpoint.
type VerifyResponse struct {
	Status        string          `json:"status"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	GatewayID     int64           `json:"id"`
	PaidAt        *time.Time      `json:"paid_at"`
	CustomerEmail string          `json:"customer_email"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a hosted payment page for the given amount
// in major units.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if req.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if req.Callback == "" {
		req.Callback = c.callback
	}

	body := map[string]any{
		"email":     req.Email,
		"amount":    req.Amount.Mul(minorUnitFactor).IntPart(),
		"reference": req.Reference,
	}
	if req.Currency != "" {
		body["currency"] = req.Currency
	}
	if req.Callback != "" {
		body["callback_url"] = req.Callback
	}

	var out InitializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTransaction fetches the authoritative transaction state by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var raw struct {
		Status    string     `json:"status"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		ID        int64      `json:"id"`
		PaidAt    *time.Time `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &raw); err != nil {
		return nil, err
	}

	return &VerifyResponse{
		Status:        raw.Status,
		Reference:     raw.Reference,
		Amount:        decimal.NewFromInt(raw.Amount).Div(minorUnitFactor),
		Currency:      raw.Currency,
		GatewayID:     raw.ID,
		PaidAt:        raw.PaidAt,
		CustomerEmail: raw.Customer.Email,
	}, nil
}

// VerifySignature checks the x-paystack-signature header, an HMAC-SHA512 of
// the raw body keyed with the secret key.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	return VerifySignature(c.secretKey, rawBody, signature)
}

// VerifySignature is the header check, exposed for callers that only hold
// the secret.
func VerifySignature(secretKey string, rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack %s %s: %s", method, path, envelope.Message))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack data")
		}
	}
	return nil
}
