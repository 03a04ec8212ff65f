package africastalking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

var (
	errUsernameRequired = errors.New("africastalking username is required")
	errAPIKeyRequired   = errors.New("africastalking api key is required")
	errLoggerRequired   = errors.New("africastalking logger is required")
)

// Client talks to the Africa's Talking airtime and SMS APIs. Requests are
// retried with exponential backoff on transport errors and 5xx responses.
type Client struct {
	httpClient *http.Client
	username   string
	apiKey     string
	baseURL    string
	maxRetries int
	logger     *logger.Logger
}

// NewClient initializes the Africa's Talking wrapper and validates credentials.
func NewClient(ctx context.Context, cfg config.AfricasTalkingConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, errUsernameRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		username:   username,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
		logger:     logg,
	}

	logg.Info(ctx, "africastalking client initialized")
	return c, nil
}

// AirtimeResult reports the telco's answer for one recipient.
type AirtimeResult struct {
	PhoneNumber  string
	Status       string
	RequestID    string
	ErrorMessage string
}

// SendAirtime tops up a single phone number with the given amount in major
// units of currencyCode.
func (c *Client) SendAirtime(ctx context.Context, phoneNumber string, amount decimal.Decimal, currencyCode string) (*AirtimeResult, error) {
	if phoneNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	recipients, err := json.Marshal([]map[string]string{{
		"phoneNumber": phoneNumber,
		"amount":      fmt.Sprintf("%s %s", currencyCode, amount.StringFixed(2)),
	}})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("recipients", string(recipients))

	var out struct {
		Responses []struct {
			PhoneNumber  string `json:"phoneNumber"`
			Status       string `json:"status"`
			RequestID    string `json:"requestId"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"responses"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := c.doWithRetry(ctx, "/version1/airtime/send", form, &out); err != nil {
		return nil, err
	}

	if len(out.Responses) == 0 {
		msg := out.ErrorMessage
		if msg == "" {
			msg = "empty airtime response"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	first := out.Responses[0]
	result := &AirtimeResult{
		PhoneNumber:  first.PhoneNumber,
		Status:       first.Status,
		RequestID:    first.RequestID,
		ErrorMessage: first.ErrorMessage,
	}
	if !strings.EqualFold(first.Status, "Sent") {
		reason := first.ErrorMessage
		if reason == "" || reason == "None" {
			reason = first.Status
		}
		return result, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("airtime send failed: %s", reason))
	}
	return result, nil
}

// SendMobileData buys a data bundle worth the given amount for a single
// phone number. The bundle is priced in major units of currencyCode.
func (c *Client) SendMobileData(ctx context.Context, phoneNumber string, amount decimal.Decimal, currencyCode string) (*AirtimeResult, error) {
	if phoneNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	recipients, err := json.Marshal([]map[string]string{{
		"phoneNumber": phoneNumber,
		"amount":      fmt.Sprintf("%s %s", currencyCode, amount.StringFixed(2)),
	}})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("productName", "mobiledata")
	form.Set("recipients", string(recipients))

	var out struct {
		Entries []struct {
			PhoneNumber   string `json:"phoneNumber"`
			Status        string `json:"status"`
			TransactionID string `json:"transactionId"`
			ErrorMessage  string `json:"errorMessage"`
		} `json:"entries"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := c.doWithRetry(ctx, "/mobile/data/request", form, &out); err != nil {
		return nil, err
	}

	if len(out.Entries) == 0 {
		msg := out.ErrorMessage
		if msg == "" {
			msg = "empty mobile data response"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	first := out.Entries[0]
	result := &AirtimeResult{
		PhoneNumber:  first.PhoneNumber,
		Status:       first.Status,
		RequestID:    first.TransactionID,
		ErrorMessage: first.ErrorMessage,
	}
	if !strings.EqualFold(first.Status, "Queued") && !strings.EqualFold(first.Status, "Success") {
		reason := first.ErrorMessage
		if reason == "" || reason == "None" {
			reason = first.Status
		}
		return result, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("mobile data send failed: %s", reason))
	}
	return result, nil
}

// SendSMS delivers a text message to one recipient.
func (c *Client) SendSMS(ctx context.Context, phoneNumber, message string) error {
	if phoneNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("to", phoneNumber)
	form.Set("message", message)

	var out struct {
		SMSMessageData struct {
			Recipients []struct {
				Status string `json:"status"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := c.doWithRetry(ctx, "/version1/messaging", form, &out); err != nil {
		return err
	}

	for _, recipient := range out.SMSMessageData.Recipients {
		if !strings.EqualFold(recipient.Status, "Success") {
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sms delivery refused: %s", recipient.Status))
		}
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, path string, form url.Values, out any) error {
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, path, form, out)
		if err == nil {
			return nil
		}
		typed := pkgerrors.As(err)
		if typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) do(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("apiKey", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "africastalking request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading africastalking response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("africastalking %s: status %d", path, resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		err := pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("africastalking %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(payload))))
		return err
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding africastalking response")
		}
	}
	return nil
}
