package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"tulipes/internal/config"
	"tulipes/internal/fulfillment"
	"tulipes/internal/handlers"
	"tulipes/internal/logbook"
	"tulipes/internal/mailer"
	"tulipes/internal/middleware"
	"tulipes/internal/orders"
	"tulipes/internal/payments"
	"tulipes/internal/stock"
)

func main() {
	cfg := config.Load()

	if cfg.StripeKey == "" {
		log.Fatal("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeProductID == "" {
		log.Fatal("STRIPE_PRODUCT_ID is required")
	}
	if !cfg.HasSuperAdmin() {
		log.Println("SUPER_ADMIN_PASSWORD not set: record editing and security panel disabled")
	}

	provider := payments.NewStripeClient(cfg.StripeKey, cfg.StripeProductID, cfg.StripeWebhookSecret)

	ledger := stock.NewLedger(provider)
	book := logbook.New(provider)
	mail := mailer.New(mailer.NewResendSender(cfg.ResendKey), cfg.EmailFrom)
	orderSvc := orders.NewService(provider, provider, ledger, book, cfg.StripeProductID, cfg.Currency)
	fulfillSvc := fulfillment.NewService(provider, ledger, mail)

	r := gin.Default()

	r.POST("/api/orders", handlers.CreateOrder(orderSvc))
	r.GET("/api/price", handlers.GetPrice(provider))
	r.POST("/api/fulfill", handlers.Fulfill(fulfillSvc))
	r.POST("/api/webhook", handlers.StripeWebhook(provider, fulfillSvc))
	r.GET("/api/blocked", handlers.CheckIPBlocked(book))
	r.POST("/api/login-events", handlers.LogAdminLogin(book))

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthGuard(cfg.AdminTokens()...))
	{
		admin.GET("/orders", handlers.GetOrders(orderSvc))
		admin.POST("/orders/status", handlers.UpdateOrderStatus(orderSvc))
		admin.POST("/orders/delete", handlers.DeleteOrder(orderSvc))
	}

	super := r.Group("/api/admin")
	super.Use(middleware.AuthGuard(cfg.SuperAdminToken))
	{
		super.POST("/orders/edit", middleware.RequireConfirmToken(), handlers.EditOrder(orderSvc))
		super.GET("/logs", handlers.GetAdminLogs(book))
		super.GET("/edits", handlers.GetAuditLog(book))
		super.POST("/blocked-ips", handlers.ManageBlockedIP(book))
	}

	log.Println("listening on :" + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
