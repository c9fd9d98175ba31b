package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/inkpress/inkpress/internal/api"
	v1 "github.com/inkpress/inkpress/internal/api/v1"
	"github.com/inkpress/inkpress/internal/cache"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/domain/catalog"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
	repo "github.com/inkpress/inkpress/internal/repository/postgres"
	"github.com/inkpress/inkpress/internal/service"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			postgres.NewClient,
			stripe.NewClient,
			newServiceParams,
			newHandlers,
			newRouter,

			service.NewProductService,
			service.NewPriceService,
			service.NewCheckoutService,
			service.NewOrderService,
			service.NewSubscriptionService,
			service.NewEntitlementService,
			service.NewWebhookService,
			service.NewReprocessor,
		),
		fx.Invoke(startServer),
		fx.Invoke(startReprocessor),
	).Run()
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	client *postgres.Client,
	gateway stripe.Gateway,
) service.ServiceParams {
	catalogRepo := catalog.NewCachedRepository(
		repo.NewCatalogRepository(client, log),
		cache.NewInMemoryCache(),
	)
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               client,
		ProductRepo:      repo.NewProductRepository(client, log),
		PriceRepo:        repo.NewPriceRepository(client, log),
		OrderRepo:        repo.NewOrderRepository(client, log),
		SubRepo:          repo.NewSubscriptionRepository(client, log),
		EntitlementRepo:  repo.NewEntitlementRepository(client, log),
		InventoryRepo:    repo.NewInventoryRepository(client, log),
		WebhookEventRepo: repo.NewWebhookEventRepository(client, log),
		CatalogRepo:      catalogRepo,
		Gateway:          gateway,
	}
}

func newHandlers(
	log *logger.Logger,
	products service.ProductService,
	prices service.PriceService,
	checkout service.CheckoutService,
	orders service.OrderService,
	subscriptions service.SubscriptionService,
	entitlements service.EntitlementService,
	webhooks service.WebhookService,
) api.Handlers {
	return api.Handlers{
		Product:      v1.NewProductHandler(products, log),
		Price:        v1.NewPriceHandler(prices, log),
		Checkout:     v1.NewCheckoutHandler(checkout, log),
		Order:        v1.NewOrderHandler(orders, log),
		Subscription: v1.NewSubscriptionHandler(subscriptions, log),
		Entitlement:  v1.NewEntitlementHandler(entitlements, log),
		Webhook:      v1.NewWebhookHandler(webhooks, log),
	}
}

func newRouter(handlers api.Handlers, log *logger.Logger) http.Handler {
	return api.NewRouter(handlers, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	handler http.Handler,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func startReprocessor(lc fx.Lifecycle, r *service.Reprocessor) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
