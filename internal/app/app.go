package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/stripebridge/server/internal/module/billing"
	"github.com/stripebridge/server/internal/shared/config"
	"github.com/stripebridge/server/internal/shared/database"
	"github.com/stripebridge/server/internal/shared/logger"
	"github.com/stripebridge/server/internal/shared/metrics"
	"github.com/stripebridge/server/internal/shared/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires configuration, persistence and the billing module behind a
// single router.
type App struct {
	config  *config.Config
	db      *gorm.DB
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	billingHandler *billing.Handler
	webhookHandler *billing.WebhookHandler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(),
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&billing.User{},
		&billing.Customer{},
		&billing.Subscription{},
		&billing.Invoice{},
		&billing.PaymentIntent{},
		&billing.WebhookEvent{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Initialize billing module
	repo := billing.NewRepository(db)
	service := billing.NewService(repo, log)
	gateway := billing.NewGateway(billing.GatewayConfig{
		APIKey: cfg.Stripe.APIKey,
	}, log)

	app.billingHandler = billing.NewHandler(gateway)
	app.webhookHandler = billing.NewWebhookHandler(service, billing.WebhookConfig{
		EndpointSecret: cfg.Stripe.WebhookSecret,
		Tolerance:      cfg.Stripe.SignatureTolerance,
	}, app.metrics, log)

	app.router = app.setupRouter()

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	// Set Gin mode based on environment
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Metrics(a.metrics))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus endpoint
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	a.webhookHandler.RegisterRoutes(r.Group("/webhooks"))
	a.billingHandler.RegisterRoutes(r.Group("/api/v1/billing"))

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
