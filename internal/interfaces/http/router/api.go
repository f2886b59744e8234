package router

import (
	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/interfaces/http/handler"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the module handlers mounted by NewEngine
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Tenant     *handler.TenantHandler
	User       *handler.UserHandler
	Client     *handler.ClientHandler
	Product    *handler.ProductHandler
	Inventory  *handler.InventoryHandler
	Sale       *handler.SaleHandler
	Finance    *handler.FinanceHandler
	Report     *handler.ReportHandler
	Delivery   *handler.DeliveryHandler
	CRM        *handler.CRMHandler
	Webhook    *handler.WhatsAppWebhookHandler
	Projection *handler.ProjectionHandler
	Outbox     *handler.OutboxHandler
}

// EngineConfig is what the middleware chain needs
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	PlatformKey string
	JWT         middleware.JWTMiddlewareConfig
	// TenantValidator is optional; nil trusts the token's tenant
	TenantValidator middleware.TenantValidator
	// Meter is optional; nil disables HTTP metrics
	Meter metric.Meter
	// Limiter guards login and the webhook; nil disables rate limiting
	Limiter middleware.Limiter
	Logger  *zap.Logger
}

// NewEngine builds the gin engine with the full middleware chain and routes
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg.JWT.Logger = log

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.JWTAuthMiddlewareWithConfig(cfg.JWT),
		middleware.TenantMiddlewareWithConfig(middleware.DefaultTenantConfig(cfg.TenantValidator, log)),
	)

	engine.GET("/health", h.Health.Health)

	limit := func(c *gin.Context) { c.Next() }
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter, middleware.ClientIPKey, log)
	}

	webhooks := engine.Group("/webhooks", limit)
	webhooks.GET("/whatsapp", h.Webhook.Verify)
	webhooks.POST("/whatsapp", h.Webhook.Receive)

	r := NewRouter(engine)
	r.Register(
		authRoutes(h.Auth, limit),
		tenantRoutes(h.Tenant, cfg.PlatformKey, log),
		userRoutes(h.User, log),
		clientRoutes(h.Client, log),
		productRoutes(h.Product, log),
		inventoryRoutes(h.Inventory, log),
		saleRoutes(h.Sale, log),
		financeRoutes(h.Finance, log),
		reportRoutes(h.Report, log),
		deliveryRoutes(h.Delivery, log),
		crmRoutes(h.CRM, log),
		projectionRoutes(h.Projection, log),
		outboxRoutes(h.Outbox, log),
	)
	r.Setup()
	return engine
}

func authRoutes(h *handler.AuthHandler, limit gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/login", limit, h.Login).
		POST("/refresh", limit, h.Refresh).
		POST("/logout", h.Logout).
		GET("/me", h.Me)
}

func tenantRoutes(h *handler.TenantHandler, platformKey string, log *zap.Logger) RouteRegistrar {
	return registrars{
		NewDomainGroup("tenants", "/tenants").
			Use(middleware.RequirePlatformKey(platformKey)).
			POST("", h.Create).
			GET("", h.List).
			GET("/:id", h.Get).
			POST("/:id/suspend", h.Suspend).
			POST("/:id/activate", h.Activate),
		NewDomainGroup("tenant", "/tenant").
			Use(middleware.RequireRole(log, identity.RoleAdmin)).
			GET("", h.Current).
			PUT("/settings", h.UpdateSettings),
	}
}

func userRoutes(h *handler.UserHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("users", "/users").Use(middleware.RequireManager(log))
	g.GET("", h.List).GET("/:id", h.Get)
	g.Group("admin", "").
		Use(middleware.RequireRole(log, identity.RoleAdmin)).
		POST("", h.Create).
		PUT("/:id/commission-rate", h.SetCommissionRate).
		POST("/:id/deactivate", h.Deactivate)
	return g
}

func clientRoutes(h *handler.ClientHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("clients", "/clients").
		GET("", h.List).
		GET("/:id", h.Get).
		POST("", h.Create).
		PUT("/:id", h.Update).
		GET("/:id/pets", h.ListPets).
		POST("/:id/pets", h.AddPet)
	g.Group("clients-manage", "").
		Use(middleware.RequireManager(log)).
		DELETE("/:id", h.Delete)
	return g
}

func productRoutes(h *handler.ProductHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("products", "/products").
		GET("", h.List).
		GET("/sku/:sku", h.GetBySKU).
		GET("/:id", h.Get)
	g.Group("products-manage", "").
		Use(middleware.RequireManager(log)).
		POST("", h.Create).
		POST("/import", h.Import).
		PUT("/:id", h.Update)
	return g
}

func inventoryRoutes(h *handler.InventoryHandler, log *zap.Logger) *DomainGroup {
	return NewDomainGroup("inventory", "/inventory").
		Use(middleware.RequireManager(log)).
		POST("/adjustments", h.Adjust).
		GET("/products/:id/movements", h.ListMovements)
}

func saleRoutes(h *handler.SaleHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("sales", "/sales").
		Use(middleware.RequireRole(log, identity.RoleAdmin, identity.RoleManager, identity.RoleSeller)).
		POST("", h.Checkout).
		GET("", h.List).
		GET("/:id", h.Get)
	g.Group("sales-manage", "").
		Use(middleware.RequireManager(log)).
		POST("/:id/cancel", h.Cancel)
	return g
}

func financeRoutes(h *handler.FinanceHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")
	g.Group("receivables", "/receivables").
		Use(middleware.RequireManager(log)).
		POST("", h.CreateReceivable).
		GET("", h.ListReceivables).
		GET("/:id", h.GetReceivable).
		POST("/:id/receive", h.Receive).
		POST("/:id/cancel", h.CancelReceivable)
	g.Group("payables", "/payables").
		Use(middleware.RequireManager(log)).
		POST("", h.CreatePayable).
		GET("", h.ListPayables).
		POST("/:id/pay", h.Pay).
		POST("/:id/cancel", h.CancelPayable)
	commissions := g.Group("commissions", "/commissions").
		Use(middleware.RequireRole(log, identity.RoleAdmin, identity.RoleManager, identity.RoleSeller)).
		GET("", h.ListCommissions)
	commissions.Group("commissions-pay", "").
		Use(middleware.RequireManager(log)).
		POST("/pay", h.PayCommissions)
	return g
}

func reportRoutes(h *handler.ReportHandler, log *zap.Logger) *DomainGroup {
	return NewDomainGroup("reports", "/reports").
		Use(middleware.RequireManager(log)).
		GET("/dre", h.DRE).
		GET("/dashboard", h.Dashboard)
}

func deliveryRoutes(h *handler.DeliveryHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("delivery", "/delivery").
		GET("/routes", h.ListRoutes).
		GET("/routes/:id", h.GetRoute)
	g.Group("delivery-quote", "").
		Use(middleware.RequireRole(log, identity.RoleAdmin, identity.RoleManager, identity.RoleSeller)).
		POST("/quote", h.Quote)
	g.Group("delivery-plan", "").
		Use(middleware.RequireManager(log)).
		POST("/routes", h.CreateRoute)
	g.Group("delivery-drive", "").
		Use(middleware.RequireRole(log, identity.RoleAdmin, identity.RoleManager, identity.RoleDriver)).
		POST("/routes/:id/stops/:stop_id/complete", h.CompleteStop)
	return g
}

func crmRoutes(h *handler.CRMHandler, log *zap.Logger) *DomainGroup {
	return NewDomainGroup("crm", "/crm").
		Use(middleware.RequireRole(log, identity.RoleAdmin, identity.RoleManager, identity.RoleSeller)).
		GET("/conversations", h.ListConversations).
		GET("/conversations/:id/messages", h.ListMessages).
		POST("/conversations/:id/read", h.MarkRead).
		POST("/clients/:id/messages", h.SendMessage)
}

func projectionRoutes(h *handler.ProjectionHandler, log *zap.Logger) *DomainGroup {
	return NewDomainGroup("projections", "/projections").
		Use(middleware.RequireRole(log, identity.RoleAdmin)).
		POST("/rebuild", h.Rebuild).
		GET("/status", h.Status)
}

func outboxRoutes(h *handler.OutboxHandler, log *zap.Logger) *DomainGroup {
	return NewDomainGroup("outbox", "/outbox").
		Use(middleware.RequireRole(log, identity.RoleAdmin)).
		GET("/stats", h.Stats).
		GET("/dead", h.ListDead).
		POST("/dead/retry", h.RequeueAll).
		POST("/dead/:id/retry", h.Requeue)
}

// registrars mounts several groups as one
type registrars []RouteRegistrar

func (rs registrars) RegisterRoutes(rg *gin.RouterGroup) {
	for _, r := range rs {
		r.RegisterRoutes(rg)
	}
}
