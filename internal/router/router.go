package router

import (
	"net/http"

	"paysettle/config"
	"paysettle/internal/handler"
	"paysettle/internal/middleware"
	"paysettle/internal/repository"
	"paysettle/internal/service"
	"paysettle/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is everything the HTTP layer needs from the payment gateway client.
type Gateway interface {
	service.Gateway
	service.CheckoutGateway
	handler.GatewayChecker
}

const adminRole = "admin"

func Setup(cfg *config.Config, logger *zap.Logger, db *gorm.DB, gateway Gateway, hooks service.HookInvoker, hub *ws.StatusHub) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("[Router] invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.SetHTMLTemplate(handler.Templates())
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimit(middleware.NewKeyedRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)))

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Services
	notifSvc := service.NewNotificationService(hub, logger)
	reconcileSvc := service.NewReconcileService(paymentRepo, gateway, hooks, notifSvc, service.ReconcileOptions{
		StrictReverify: cfg.Webhook.StrictReverify,
	}, logger)
	checkoutSvc := service.NewCheckoutService(paymentRepo, gateway, cfg.Server.PublicBaseURL, logger)

	// Handlers
	webhookHandler := handler.NewMonnifyWebhookHandler(reconcileSvc, eventRepo, gateway.Config().SecretKey, logger)
	callbackHandler := handler.NewCallbackHandler(reconcileSvc, logger)
	paymentHandler := handler.NewPaymentHandler(reconcileSvc, checkoutSvc, logger)
	gatewayHandler := handler.NewGatewayHandler(gateway)
	adminHandler := handler.NewAdminHandler(settingRepo, logger)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/webhooks/monnify", middleware.IPAllowList(cfg.Webhook.AllowedIPs, logger), webhookHandler.Handle)
		api.GET("/monnify/callback", callbackHandler.Handle)
		api.POST("/payments/:id/monnify/initialize", paymentHandler.Initialize)

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("", paymentHandler.Create)
			payments.POST("/monnify/verify", paymentHandler.Verify)
			payments.GET("/monnify/health", middleware.RequireRole(adminRole), gatewayHandler.Health)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.RequireRole(adminRole))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/webhook-events/:reference", webhookHandler.ListEvents)
		}
	}

	r.GET("/ws/payments", ws.UpgradePaymentStatusWS(&cfg.JWT, hub, paymentRepo, logger))

	return r
}
