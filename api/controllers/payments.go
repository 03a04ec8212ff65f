package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/api/validators"
	"github.com/sautihq/sauti-backend/internal/payments"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

type paymentCreateRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency,omitempty"`
	SurveyID *uuid.UUID      `json:"survey_id,omitempty"`
}

type paymentEventResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	Email            string          `json:"email"`
	SurveyID         *uuid.UUID      `json:"survey_id,omitempty"`
	Gateway          string          `json:"gateway"`
	GatewayReference string          `json:"gateway_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

type paymentIntentResponse struct {
	Event            paymentEventResponse `json:"event"`
	AuthorizationURL string               `json:"authorization_url,omitempty"`
}

func toPaymentEventResponse(e *models.PaymentEvent) paymentEventResponse {
	return paymentEventResponse{
		ID:               e.ID,
		TenantID:         e.TenantID,
		Email:            e.Email,
		SurveyID:         e.SurveyID,
		Gateway:          string(e.Gateway),
		GatewayReference: e.GatewayReference,
		Amount:           e.Amount,
		Currency:         e.Currency.String(),
		Status:           string(e.Status),
		CreatedAt:        e.CreatedAt,
	}
}

// PaymentCreate starts a gateway checkout for a wallet top-up. The
// Idempotency-Key header makes retries safe.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := payments.CreateInput{
			TenantID:       tenantID,
			UserID:         userID,
			Email:          req.Email,
			SurveyID:       req.SurveyID,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Amount:         req.Amount,
		}
		if req.Currency != "" {
			currency, err := enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Currency = currency
		}
		intent, err := svc.CreatePaymentEvent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if intent.AuthorizationURL == "" {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, paymentIntentResponse{
			Event:            toPaymentEventResponse(intent.Event),
			AuthorizationURL: intent.AuthorizationURL,
		})
	}
}

// PaymentGet fetches one payment event within the caller's tenant.
func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := validators.ParseURLUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.Get(r.Context(), tenantID, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPaymentEventResponse(event))
	}
}
