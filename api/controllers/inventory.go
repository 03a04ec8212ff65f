package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/api/validators"
	"github.com/sautihq/sauti-backend/internal/inventory"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

type systemWalletResponse struct {
	ID              uuid.UUID       `json:"id"`
	WalletType      string          `json:"wallet_type"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	ReservedBalance decimal.Decimal `json:"reserved_balance"`
	Available       decimal.Decimal `json:"available"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type restockRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func chiWalletType(r *http.Request) string {
	return chi.URLParam(r, "walletType")
}

func toSystemWalletResponse(sw *models.SystemWallet) systemWalletResponse {
	return systemWalletResponse{
		ID:              sw.ID,
		WalletType:      string(sw.WalletType),
		CurrentBalance:  sw.CurrentBalance,
		ReservedBalance: sw.ReservedBalance,
		Available:       sw.Available(),
		UpdatedAt:       sw.UpdatedAt,
	}
}

// InventoryGet reports the float position of one provider pool. Admin only.
func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		walletType, err := enums.ParseSystemWalletType(chiWalletType(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pool, err := svc.Get(r.Context(), walletType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSystemWalletResponse(pool))
	}
}

// InventoryRestock tops up a provider pool after procurement. Admin only.
func InventoryRestock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		walletType, err := enums.ParseSystemWalletType(chiWalletType(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pool, err := svc.Restock(r.Context(), walletType, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSystemWalletResponse(pool))
	}
}
