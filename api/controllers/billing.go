package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/internal/billing"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

type subscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PlanCode           string     `json:"plan_code"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type invoiceResponse struct {
	ID             uuid.UUID       `json:"id"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	InvoiceURL     *string         `json:"invoice_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toSubscriptionResponses(items []models.Subscription) []subscriptionResponse {
	out := make([]subscriptionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, subscriptionResponse{
			ID:                 item.ID,
			PlanCode:           item.PlanCode,
			Status:             item.Status.String(),
			CurrentPeriodStart: item.CurrentPeriodStart,
			CurrentPeriodEnd:   item.CurrentPeriodEnd,
			CreatedAt:          item.CreatedAt,
		})
	}
	return out
}

func toInvoiceResponses(items []models.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, invoiceResponse{
			ID:             item.ID,
			SubscriptionID: item.SubscriptionID,
			Amount:         item.Amount,
			Currency:       item.Currency.String(),
			Status:         item.Status.String(),
			DueDate:        item.DueDate,
			InvoiceURL:     item.InvoiceURL,
			CreatedAt:      item.CreatedAt,
		})
	}
	return out
}

// BillingSubscriptions lists the caller tenant's subscription mirrors.
func BillingSubscriptions(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListSubscriptions(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponses(items))
	}
}

// BillingInvoices lists the caller tenant's invoice mirrors.
func BillingInvoices(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListInvoices(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInvoiceResponses(items))
	}
}
