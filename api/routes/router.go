package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sautihq/sauti-backend/api/controllers"
	webhookcontrollers "github.com/sautihq/sauti-backend/api/controllers/webhooks"
	"github.com/sautihq/sauti-backend/api/middleware"
	"github.com/sautihq/sauti-backend/internal/billing"
	"github.com/sautihq/sauti-backend/internal/inventory"
	"github.com/sautihq/sauti-backend/internal/loyalty"
	"github.com/sautihq/sauti-backend/internal/payments"
	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/internal/wallets"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	walletService wallets.Service,
	inventoryService inventory.Service,
	rewardService rewards.Service,
	fulfillmentService fulfillment.Service,
	loyaltyService loyalty.Service,
	paymentService payments.Service,
	billingService billing.Service,
	paystackProcessor webhookcontrollers.PaystackProcessor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(paystackProcessor, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/me", controllers.WalletBalance(walletService, logg))
			r.Get("/me/transactions", controllers.WalletHistory(walletService, logg))
			r.Post("/me/credit", controllers.WalletCredit(walletService, logg))
			r.Post("/me/debit", controllers.WalletDebit(walletService, logg))
			r.Post("/me/migrate", controllers.WalletMigrate(walletService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/{walletType}", controllers.InventoryGet(inventoryService, logg))
			r.Post("/{walletType}/restock", controllers.InventoryRestock(inventoryService, logg))
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Post("/", controllers.RewardCreate(rewardService, logg))
			r.Get("/", controllers.RewardList(rewardService, logg))
			r.Post("/claim", controllers.RewardClaim(fulfillmentService, logg))
			r.Get("/by-survey/{surveyID}", controllers.RewardGetBySurvey(rewardService, logg))
			r.Route("/{rewardID}", func(r chi.Router) {
				r.Get("/", controllers.RewardGet(rewardService, logg))
				r.Post("/cancel", controllers.RewardCancel(rewardService, logg))
				r.Get("/transactions", controllers.RewardTransactions(fulfillmentService, logg))
			})
		})

		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/me", controllers.LoyaltyBalance(loyaltyService, logg))
			r.Get("/me/transactions", controllers.LoyaltyHistory(loyaltyService, logg))
			r.Post("/me/redeem", controllers.LoyaltyRedeem(loyaltyService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentCreate(paymentService, logg))
			r.Get("/{paymentID}", controllers.PaymentGet(paymentService, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/subscriptions", controllers.BillingSubscriptions(billingService, logg))
			r.Get("/invoices", controllers.BillingInvoices(billingService, logg))
		})
	})

	return r
}
