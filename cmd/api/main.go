package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sautihq/sauti-backend/api/routes"
	"github.com/sautihq/sauti-backend/internal/billing"
	"github.com/sautihq/sauti-backend/internal/inventory"
	"github.com/sautihq/sauti-backend/internal/loyalty"
	"github.com/sautihq/sauti-backend/internal/payments"
	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/internal/rewards/providers"
	"github.com/sautihq/sauti-backend/internal/surveys"
	"github.com/sautihq/sauti-backend/internal/tenants"
	"github.com/sautihq/sauti-backend/internal/wallets"
	paystackwebhook "github.com/sautihq/sauti-backend/internal/webhooks/paystack"
	"github.com/sautihq/sauti-backend/pkg/africastalking"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/metrics"
	"github.com/sautihq/sauti-backend/pkg/migrate"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/idempotency"
	"github.com/sautihq/sauti-backend/pkg/paystack"
	"github.com/sautihq/sauti-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	directory, err := tenants.NewConfigDirectory(cfg.Wallet)
	if err != nil {
		logg.Error(context.Background(), "failed to build tenant directory", err)
		os.Exit(1)
	}

	walletService, err := wallets.NewService(dbClient, wallets.NewRepository(dbClient.DB()), directory, outboxService, logg, cfg.Wallet)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	procurement, err := inventory.NewManualProcurement(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create procurement client", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), procurement, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	surveyPlatform, err := surveys.NewHTTPPlatform(context.Background(), cfg.Surveys, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create survey platform client", err)
		os.Exit(1)
	}

	rewardService, err := rewards.NewService(dbClient, rewards.NewRepository(dbClient.DB()), walletService, inventoryService, surveyPlatform, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reward service", err)
		os.Exit(1)
	}

	loyaltyService, err := loyalty.NewService(dbClient, loyalty.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}

	atClient, err := africastalking.NewClient(context.Background(), cfg.AfricasTalking, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create africastalking client", err)
		os.Exit(1)
	}
	airtimeProvider, err := providers.NewAirtimeProvider(atClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create airtime provider", err)
		os.Exit(1)
	}
	loyaltyProvider, err := providers.NewLoyaltyProvider(loyaltyService)
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty provider", err)
		os.Exit(1)
	}
	providerRegistry, err := providers.NewRegistry(airtimeProvider, loyaltyProvider)
	if err != nil {
		logg.Error(context.Background(), "failed to build provider registry", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(
		dbClient,
		fulfillment.NewRepository(dbClient.DB()),
		rewards.NewRepository(dbClient.DB()),
		providerRegistry,
		inventoryService,
		surveyPlatform,
		outboxService,
		metrics.NewDisbursementMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.NewRepository(dbClient.DB()), paystackClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	billingService, err := billing.NewService(billing.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}
	paystackProcessor, err := paystackwebhook.NewProcessor(
		paystackClient,
		dedupe,
		dbClient,
		paymentService,
		walletService,
		billingService,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack webhook processor", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			walletService,
			inventoryService,
			rewardService,
			fulfillmentService,
			loyaltyService,
			paymentService,
			billingService,
			paystackProcessor,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
