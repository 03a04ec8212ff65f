package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/api/validators"
	"github.com/sautihq/sauti-backend/internal/wallets"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type walletResponse struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type walletTransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type walletHistoryResponse struct {
	Items      []walletTransactionResponse `json:"items"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

type walletMutationRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	Description string          `json:"description" validate:"required,max=255"`
}

type walletMigrateRequest struct {
	NewTenantID uuid.UUID `json:"new_tenant_id" validate:"required"`
}

func toWalletResponse(w *models.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		TenantID:  w.TenantID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		Currency:  w.Currency.String(),
		UpdatedAt: w.UpdatedAt,
	}
}

func toWalletTransactionResponses(items []models.WalletTransaction) []walletTransactionResponse {
	out := make([]walletTransactionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, walletTransactionResponse{
			ID:          item.ID,
			WalletID:    item.WalletID,
			Amount:      item.Amount,
			Type:        string(item.Type),
			ReferenceID: item.ReferenceID,
			Description: item.Description,
			CreatedAt:   item.CreatedAt,
		})
	}
	return out
}

// WalletBalance returns the caller's wallet, creating it on first touch.
func WalletBalance(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.GetOrCreateWallet(r.Context(), tenantID, &userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponse(wallet))
	}
}

// WalletCredit applies a manual credit to the caller's wallet. Admin only;
// normal top-ups arrive through the payment gateway webhook.
func WalletCredit(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireAdmin(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req walletMutationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.Credit(r.Context(), wallets.MutationInput{
			TenantID:    tenantID,
			UserID:      &userID,
			Amount:      req.Amount,
			ReferenceID: req.ReferenceID,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponse(wallet))
	}
}

// WalletDebit spends from the caller's wallet.
func WalletDebit(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req walletMutationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.Debit(r.Context(), wallets.MutationInput{
			TenantID:    tenantID,
			UserID:      &userID,
			Amount:      req.Amount,
			ReferenceID: req.ReferenceID,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponse(wallet))
	}
}

// WalletHistory pages the caller's wallet ledger, newest first.
func WalletHistory(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.History(r.Context(), tenantID, &userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletHistoryResponse{
			Items:      toWalletTransactionResponses(page.Items),
			NextCursor: page.NextCursor,
		})
	}
}

// WalletMigrate moves the caller's individual wallet into an enterprise
// tenant they joined.
func WalletMigrate(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req walletMigrateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.MigrateWalletToEnterprise(r.Context(), userID, req.NewTenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponse(wallet))
	}
}
