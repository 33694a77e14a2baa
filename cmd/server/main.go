package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paygate-io/subscription-gateway/internal/adapters/mercadopago"
	"github.com/paygate-io/subscription-gateway/internal/adapters/postgres"
	"github.com/paygate-io/subscription-gateway/internal/config"
	"github.com/paygate-io/subscription-gateway/internal/domain"
	adminHandler "github.com/paygate-io/subscription-gateway/internal/handlers/admin"
	checkoutHandler "github.com/paygate-io/subscription-gateway/internal/handlers/checkout"
	ipnHandler "github.com/paygate-io/subscription-gateway/internal/handlers/ipn"
	checkoutService "github.com/paygate-io/subscription-gateway/internal/services/checkout"
	notificationService "github.com/paygate-io/subscription-gateway/internal/services/notification"
	settingsService "github.com/paygate-io/subscription-gateway/internal/services/settings"
	pkghttp "github.com/paygate-io/subscription-gateway/pkg/http"
	"github.com/paygate-io/subscription-gateway/pkg/logging"
	"github.com/paygate-io/subscription-gateway/pkg/middleware"
	"github.com/paygate-io/subscription-gateway/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting subscription gateway",
		zap.String("site_id", cfg.Site.SiteID),
		zap.String("currency", cfg.Site.Currency),
	)

	dbPool, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	deps := initDependencies(dbPool, cfg, logger)

	httpMux := http.NewServeMux()

	// The vendor hits /ipn unauthenticated; rate limit every public route.
	rateLimiter := middleware.NewRateLimiter(10, 20)
	defer rateLimiter.Shutdown()

	httpMux.Handle("/checkout/", observability.MetricsMiddleware("/checkout",
		http.HandlerFunc(deps.checkoutHandler.ProcessPayment)))
	httpMux.Handle("/availability", observability.MetricsMiddleware("/availability",
		http.HandlerFunc(deps.checkoutHandler.CheckAvailability)))
	httpMux.Handle("/orders/", observability.MetricsMiddleware("/orders",
		http.HandlerFunc(dispatchOrderRoutes(deps.checkoutHandler))))
	httpMux.Handle("/ipn", observability.MetricsMiddleware("/ipn",
		http.HandlerFunc(deps.ipnHandler.Handle)))
	httpMux.Handle("/admin/settings/schema", observability.MetricsMiddleware("/admin/settings/schema",
		http.HandlerFunc(deps.adminHandler.GetSchema)))
	httpMux.Handle("/admin/settings", observability.MetricsMiddleware("/admin/settings",
		http.HandlerFunc(dispatchSettingsRoutes(deps.adminHandler))))

	handler := requestLogging(logger, recovery(logger, rateLimiter.Middleware(httpMux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler,
	}

	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

// Dependencies holds all initialized services and handlers
type Dependencies struct {
	checkoutHandler *checkoutHandler.Handler
	adminHandler    *adminHandler.Handler
	ipnHandler      *ipnHandler.Handler
}

// initDependencies initializes all services and handlers with dependency injection
func initDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) *Dependencies {
	db := postgres.NewDBExecutor(dbPool)
	orderRepo := postgres.NewOrderRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)

	ctx := context.Background()
	secretManager := initSecretManager(ctx, cfg, logger)
	clientID, clientSecret := resolveVendorCredentials(ctx, cfg, secretManager, logger)
	hasCredentials := clientID != "" && clientSecret != ""

	site := domain.SiteContext{
		SiteID:             cfg.Site.SiteID,
		Currency:           cfg.Site.Currency,
		SponsorID:          cfg.Site.SponsorID,
		CheckoutBannerURL:  cfg.Site.CheckoutBannerURL,
		StorePrefix:        cfg.Site.StorePrefix,
		PublicBaseURL:      cfg.Server.PublicBaseURL,
		IsTestUser:         cfg.Site.IsTestUser,
		CurrencyConversion: cfg.Site.CurrencyConversion,
		Debug:              cfg.Site.Debug,
	}

	portsLogger := logging.NewZapLogger(logger)

	gateway := mercadopago.NewAdapter(
		mercadopago.Config{
			BaseURL:         cfg.Vendor.BaseURL,
			ClientID:        clientID,
			ClientSecret:    clientSecret,
			AccountCurrency: site.AccountCurrency(),
		},
		pkghttp.NewHTTPClient(pkghttp.VendorClientConfig(time.Duration(cfg.Vendor.Timeout)*time.Second)),
		portsLogger,
	).WithAnalyticsClient(pkghttp.NewHTTPClient(pkghttp.AnalyticsClientConfig()))

	settingsSvc := settingsService.NewService(settingsRepo, gateway, site, hasCredentials, portsLogger)
	checkoutSvc := checkoutService.NewService(orderRepo, settingsRepo, gateway, site, hasCredentials, portsLogger)
	notificationSvc := notificationService.NewService(orderRepo, gateway, site, portsLogger)

	return &Dependencies{
		checkoutHandler: checkoutHandler.NewHandler(checkoutSvc, settingsSvc, orderRepo, site, logger),
		adminHandler:    adminHandler.NewHandler(settingsSvc, logger),
		ipnHandler:      ipnHandler.NewHandler(notificationSvc, logger),
	}
}

// dispatchOrderRoutes fans /orders/{id}/{action} out by action suffix
func dispatchOrderRoutes(h *checkoutHandler.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pay"):
			h.RenderOrderForm(w, r)
		case strings.HasSuffix(r.URL.Path, "/cancel-preapproval"):
			h.CancelPreapproval(w, r)
		case strings.HasSuffix(r.URL.Path, "/cancel"):
			h.CancelOrder(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

// dispatchSettingsRoutes fans /admin/settings out by HTTP method
func dispatchSettingsRoutes(h *adminHandler.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetSettings(w, r)
		case http.MethodPost:
			h.SaveSettings(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// Middleware

func requestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r)

		logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func recovery(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic recovered in HTTP handler",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// initLogger initializes the logger
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	if cfg.Development {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, _ := zapCfg.Build()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

// initDatabase initializes the PostgreSQL connection pool
func initDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
