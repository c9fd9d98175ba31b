package service

import (
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/domain/catalog"
	"github.com/inkpress/inkpress/internal/domain/entitlement"
	"github.com/inkpress/inkpress/internal/domain/inventory"
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/price"
	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/domain/subscription"
	"github.com/inkpress/inkpress/internal/domain/webhookevent"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/postgres"
)

// ServiceParams bundles the dependencies every service receives at
// construction. Components never reach for shared globals; test suites
// build this from in-memory stores.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	ProductRepo      product.Repository
	PriceRepo        price.Repository
	OrderRepo        order.Repository
	SubRepo          subscription.Repository
	EntitlementRepo  entitlement.Repository
	InventoryRepo    inventory.Repository
	WebhookEventRepo webhookevent.Repository
	CatalogRepo      catalog.Repository

	Gateway stripe.Gateway
}
