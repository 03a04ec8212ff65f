package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/api/validators"
	"github.com/sautihq/sauti-backend/internal/loyalty"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type loyaltyAccountResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type loyaltyTransactionResponse struct {
	ID                  uuid.UUID       `json:"id"`
	AccountID           uuid.UUID       `json:"account_id"`
	Amount              decimal.Decimal `json:"amount"`
	Type                string          `json:"type"`
	Description         string          `json:"description"`
	RewardTransactionID *uuid.UUID      `json:"reward_transaction_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

type loyaltyHistoryResponse struct {
	Items      []loyaltyTransactionResponse `json:"items"`
	NextCursor string                       `json:"next_cursor,omitempty"`
}

type loyaltyRedeemRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"required,max=255"`
}

func toLoyaltyTransactionResponse(t *models.LoyaltyTransaction) loyaltyTransactionResponse {
	return loyaltyTransactionResponse{
		ID:                  t.ID,
		AccountID:           t.AccountID,
		Amount:              t.Amount,
		Type:                string(t.Type),
		Description:         t.Description,
		RewardTransactionID: t.RewardTransactionID,
		CreatedAt:           t.CreatedAt,
	}
}

// LoyaltyBalance returns the caller's points account.
func LoyaltyBalance(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loyaltyAccountResponse{
			ID:        account.ID,
			UserID:    account.UserID,
			Balance:   account.Balance,
			UpdatedAt: account.UpdatedAt,
		})
	}
}

// LoyaltyRedeem spends points from the caller's account.
func LoyaltyRedeem(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req loyaltyRedeemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Debit(r.Context(), loyalty.MutationInput{
			UserID:      userID,
			Amount:      req.Amount,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toLoyaltyTransactionResponse(txn))
	}
}

// LoyaltyHistory pages the caller's points ledger, newest first.
func LoyaltyHistory(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.History(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]loyaltyTransactionResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, toLoyaltyTransactionResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, loyaltyHistoryResponse{Items: items, NextCursor: page.NextCursor})
	}
}
