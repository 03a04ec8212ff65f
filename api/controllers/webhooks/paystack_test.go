package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

type stubProcessor struct {
	err error

	gotBody      string
	gotSignature string
}

func (s *stubProcessor) Process(ctx context.Context, rawBody []byte, signature string) error {
	s.gotBody = string(rawBody)
	s.gotSignature = signature
	return s.err
}

func TestPaystackWebhookAccepted(t *testing.T) {
	processor := &stubProcessor{}
	handler := PaystackWebhook(processor, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{"event":"charge.success"}`))
	req.Header.Set("x-paystack-signature", "sig")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if processor.gotSignature != "sig" {
		t.Fatalf("unexpected signature: %q", processor.gotSignature)
	}
	if processor.gotBody != `{"event":"charge.success"}` {
		t.Fatalf("unexpected body: %q", processor.gotBody)
	}
}

func TestPaystackWebhookMalformedPayload(t *testing.T) {
	processor := &stubProcessor{err: pkgerrors.New(pkgerrors.CodeValidation, "malformed webhook payload")}
	handler := PaystackWebhook(processor, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader("not-json"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaystackWebhookNilProcessor(t *testing.T) {
	handler := PaystackWebhook(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader("{}"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
