package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/sautihq/sauti-backend/api/responses"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

// PaystackProcessor consumes a raw webhook delivery. It only returns an
// error for payloads Paystack should not retry.
type PaystackProcessor interface {
	Process(ctx context.Context, rawBody []byte, signature string) error
}

// PaystackWebhook receives gateway deliveries. Anything transient is
// swallowed with a 200 so Paystack retries; only malformed payloads get a
// non-2xx response.
func PaystackWebhook(processor PaystackProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("x-paystack-signature")
		if err := processor.Process(ctx, rawBody, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}
