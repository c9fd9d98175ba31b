// Package api wires the HTTP surface: middleware chain, route table and
// the version group.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/inkpress/inkpress/internal/api/v1"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/rest/middleware"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Product      *v1.ProductHandler
	Price        *v1.PriceHandler
	Checkout     *v1.CheckoutHandler
	Order        *v1.OrderHandler
	Subscription *v1.SubscriptionHandler
	Entitlement  *v1.EntitlementHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.ErrorHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhooks sit outside the version group: the path is registered at the
	// provider and stays stable across API versions.
	router.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)

	apiV1 := router.Group("/v1")

	products := apiV1.Group("/products")
	{
		products.POST("", handlers.Product.CreateProduct)
		products.GET("", handlers.Product.ListProducts)
		products.GET("/:id", handlers.Product.GetProduct)
		products.PUT("/:id", handlers.Product.UpdateProduct)
		products.DELETE("/:id", handlers.Product.DeleteProduct)
	}

	prices := apiV1.Group("/prices")
	{
		prices.POST("", handlers.Price.CreatePrice)
		prices.GET("", handlers.Price.ListPrices)
		prices.GET("/:id", handlers.Price.GetPrice)
		prices.PUT("/:id", handlers.Price.UpdatePrice)
		prices.DELETE("/:id", handlers.Price.DeletePrice)
		prices.POST("/:id/sync", handlers.Price.SyncPrice)
	}

	checkout := apiV1.Group("/checkout")
	{
		checkout.POST("/sessions", handlers.Checkout.CreateCheckoutSession)
	}

	orders := apiV1.Group("/orders")
	{
		orders.GET("", handlers.Order.ListOrders)
		orders.GET("/:id", handlers.Order.GetOrder)
		orders.POST("/:id/refund", handlers.Order.RefundOrder)
	}

	subscriptions := apiV1.Group("/subscriptions")
	{
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
	}

	users := apiV1.Group("/users")
	{
		users.GET("/:user_id/access/:work_id", handlers.Entitlement.CheckAccess)
		users.GET("/:user_id/entitlements", handlers.Entitlement.ListUserEntitlements)
	}

	return router
}
