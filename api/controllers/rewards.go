package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/api/responses"
	"github.com/sautihq/sauti-backend/api/validators"
	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type rewardCreateRequest struct {
	SurveyID           uuid.UUID       `json:"survey_id" validate:"required"`
	RewardType         string          `json:"reward_type" validate:"required"`
	AmountPerRecipient decimal.Decimal `json:"amount_per_recipient" validate:"required"`
	MaxRecipients      int             `json:"max_recipients" validate:"required,min=1,max=100000"`
	Currency           string          `json:"currency,omitempty"`
}

type rewardClaimRequest struct {
	SurveyID            uuid.UUID `json:"survey_id" validate:"required"`
	RecipientIdentifier string    `json:"recipient_identifier" validate:"required,max=64"`
}

type rewardResponse struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	SurveyID           uuid.UUID       `json:"survey_id"`
	RewardType         string          `json:"reward_type"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AmountPerRecipient decimal.Decimal `json:"amount_per_recipient"`
	Currency           string          `json:"currency"`
	Provider           string          `json:"provider"`
	MaxRecipients      int             `json:"max_recipients"`
	RemainingRewards   int             `json:"remaining_rewards"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
}

type rewardListResponse struct {
	Items      []rewardResponse `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type rewardTransactionResponse struct {
	ID                    uuid.UUID       `json:"id"`
	RewardID              uuid.UUID       `json:"reward_id"`
	ParticipantID         uuid.UUID       `json:"participant_id"`
	RecipientIdentifier   string          `json:"recipient_identifier"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                string          `json:"status"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	FailureReason         *string         `json:"failure_reason,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

type rewardTransactionListResponse struct {
	Items      []rewardTransactionResponse `json:"items"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

func toRewardResponse(r *models.Reward) rewardResponse {
	return rewardResponse{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		SurveyID:           r.SurveyID,
		RewardType:         string(r.RewardType),
		TotalAmount:        r.TotalAmount,
		AmountPerRecipient: r.AmountPerRecipient,
		Currency:           r.Currency.String(),
		Provider:           r.Provider,
		MaxRecipients:      r.MaxRecipients,
		RemainingRewards:   r.RemainingRewards,
		Status:             string(r.Status),
		CreatedAt:          r.CreatedAt,
	}
}

func toRewardTransactionResponse(t *models.RewardTransaction) rewardTransactionResponse {
	return rewardTransactionResponse{
		ID:                    t.ID,
		RewardID:              t.RewardID,
		ParticipantID:         t.ParticipantID,
		RecipientIdentifier:   t.RecipientIdentifier,
		Amount:                t.Amount,
		Currency:              t.Currency.String(),
		Status:                string(t.Status),
		ProviderTransactionID: t.ProviderTransactionID,
		FailureReason:         t.FailureReason,
		CreatedAt:             t.CreatedAt,
	}
}

// RewardCreate funds and opens a reward campaign for a survey.
func RewardCreate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rewardCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardType, err := enums.ParseRewardType(req.RewardType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := rewards.CreateInput{
			TenantID:           tenantID,
			SurveyID:           req.SurveyID,
			ActorUserID:        &userID,
			RewardType:         rewardType,
			AmountPerRecipient: req.AmountPerRecipient,
			MaxRecipients:      req.MaxRecipients,
		}
		if req.Currency != "" {
			currency, err := enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Currency = currency
		}
		reward, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toRewardResponse(reward))
	}
}

// RewardList pages the tenant's campaigns, newest first.
func RewardList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), tenantID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]rewardResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, toRewardResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, rewardListResponse{Items: items, NextCursor: page.NextCursor})
	}
}

// RewardGet fetches one campaign by id within the caller's tenant.
func RewardGet(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardID, err := validators.ParseURLUUID(r, "rewardID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.Get(r.Context(), tenantID, rewardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRewardResponse(reward))
	}
}

// RewardGetBySurvey fetches the campaign attached to a survey, if any.
func RewardGetBySurvey(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		surveyID, err := validators.ParseURLUUID(r, "surveyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.GetBySurvey(r.Context(), tenantID, surveyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRewardResponse(reward))
	}
}

// RewardCancel stops an active campaign and refunds the unclaimed slots.
func RewardCancel(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardID, err := validators.ParseURLUUID(r, "rewardID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.Cancel(r.Context(), tenantID, rewardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRewardResponse(reward))
	}
}

// RewardClaim lets a participant claim their reward for a completed survey.
func RewardClaim(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, userID, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rewardClaimRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithFields(r.Context(), map[string]any{
			"survey_id":      req.SurveyID.String(),
			"participant_id": userID.String(),
		})
		txn, err := svc.Claim(ctx, fulfillment.ClaimInput{
			TenantID:            tenantID,
			SurveyID:            req.SurveyID,
			ParticipantID:       userID,
			RecipientIdentifier: req.RecipientIdentifier,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toRewardTransactionResponse(txn))
	}
}

// RewardTransactions pages disbursement attempts for a campaign.
func RewardTransactions(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, _, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardID, err := validators.ParseURLUUID(r, "rewardID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByReward(r.Context(), tenantID, rewardID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]rewardTransactionResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, toRewardTransactionResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, rewardTransactionListResponse{Items: items, NextCursor: page.NextCursor})
	}
}
