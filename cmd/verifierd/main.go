package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/indenture-io/indenture/internal/auditlog"
	"github.com/indenture-io/indenture/internal/health"
	"github.com/indenture-io/indenture/internal/identity"
	"github.com/indenture-io/indenture/internal/verifier/handler"
	"github.com/indenture-io/indenture/internal/verifier/repository"
	"github.com/indenture-io/indenture/internal/verifier/service"
	"github.com/indenture-io/indenture/internal/webhooks"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("verifier exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("verifier")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("verifier.port", 8080)
	viper.SetDefault("verifier.issuer_url", "")
	viper.SetDefault("verifier.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("verifier.rate_limit_rps", 20)
	viper.SetDefault("verifier.settlement_units", []string{})
	viper.SetDefault("verifier.admin_secret", "")
	viper.SetDefault("verifier.token_secret", "")
	viper.SetDefault("verifier.token_ttl_seconds", 28800)
	viper.SetDefault("database.url", "")
	viper.SetDefault("health.check_interval", "5m")
	viper.SetDefault("health.probe_timeout", "10s")
	viper.SetDefault("health.fail_threshold", 3)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	httpPort := viper.GetInt("verifier.port")
	issuerURL := viper.GetString("verifier.issuer_url")
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}

	// ── Database (optional: empty URL runs fully in memory) ──────────────────
	var db *pgxpool.Pool
	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		var err error
		db, err = pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
	} else {
		logger.Warn("no database configured — verdicts are not persisted and the audit log is in-memory")
	}

	// ── Audit Log ─────────────────────────────────────────────────────────────
	var ledger auditlog.Ledger
	if db != nil {
		ledger = auditlog.NewPostgresLedger(db, logger)
	} else {
		ledger = auditlog.New()
	}

	startCtx := context.Background()
	if err := ledger.Verify(startCtx); err != nil {
		logger.Warn("audit log integrity check FAILED", zap.Error(err))
	} else {
		n, _ := ledger.Len(startCtx)
		root, _ := ledger.Root(startCtx)
		logger.Info("audit log verified",
			zap.Int("entries", n),
			zap.String("root", root),
		)
	}

	// ── Identity (session tokens) ─────────────────────────────────────────────
	var tokens *identity.TokenIssuer
	tokenSecret := viper.GetString("verifier.token_secret")
	if tokenSecret != "" {
		tokenTTL := time.Duration(viper.GetInt("verifier.token_ttl_seconds")) * time.Second
		tokens = identity.NewTokenIssuer([]byte(tokenSecret), issuerURL, tokenTTL)
	} else {
		logger.Warn("no token secret configured — webhook and audit routes are unauthenticated")
	}

	// ── Wire up layers ────────────────────────────────────────────────────────
	settlementUnits := viper.GetStringSlice("verifier.settlement_units")
	var svc *service.VerifyService
	if db != nil {
		svc = service.NewVerifyService(repository.NewVerdictRepository(db), ledger, settlementUnits, logger)
	} else {
		svc = service.NewVerifyService(nil, ledger, settlementUnits, logger)
	}
	svc.SetMetricsRecorder(handler.RecordVerdict)
	svc.SetAuditRecorder(handler.RecordAuditEntry)

	var webhookSvc *webhooks.Service
	var webhookHandler *webhooks.Handler
	if db != nil {
		webhookRepo := webhooks.NewRepository(db)
		webhookSvc = webhooks.NewService(webhookRepo, logger)
		webhookSvc.SetMetricsRecorder(handler.RecordWebhookDelivery)
		webhookHandler = webhooks.NewHandler(webhookSvc, tokens, logger)
		svc.SetNotifier(webhookSvc)
	}

	verifyHandler := handler.NewVerifyHandler(svc, logger)
	auditHandler := handler.NewAuditHandler(ledger, tokens, logger)

	var authHandler *handler.AuthHandler
	if tokens != nil {
		authHandler = handler.NewAuthHandler(tokens, viper.GetString("verifier.admin_secret"), logger)
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	corsOrigins := viper.GetStringSlice("verifier.cors_origins")
	corsConfig := cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	// Per-IP rate limiting
	rps := viper.GetInt("verifier.rate_limit_rps")
	if rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	// Health and metrics (public, no auth)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	// API v1
	v1 := router.Group("/api/v1")
	verifyHandler.Register(v1)
	auditHandler.Register(v1)
	if webhookHandler != nil {
		webhookHandler.Register(v1)
	}
	if authHandler != nil {
		authHandler.Register(v1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// The checker gets its own stop channel: sharing quit would race it
	// against the shutdown receive below for the single signal.
	checkerStop := make(chan os.Signal)

	// ── Background: probe webhook endpoints ───────────────────────────────────
	if db != nil {
		checkInterval, _ := time.ParseDuration(viper.GetString("health.check_interval"))
		probeTimeout, _ := time.ParseDuration(viper.GetString("health.probe_timeout"))
		endpoints := webhookEndpoints{webhooks.NewRepository(db)}
		checker := health.New(
			endpoints,
			endpoints,
			health.Config{
				CheckInterval: checkInterval,
				ProbeTimeout:  probeTimeout,
				FailThreshold: viper.GetInt("health.fail_threshold"),
			},
			logger,
		)
		checker.SetMetricsRecord(handler.RecordHealthCheck)
		go checker.Start(checkerStop)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("verifier HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down verifier...")
	close(checkerStop)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("verifier stopped")
	return nil
}

// webhookEndpoints adapts the webhook repository to the health checker's
// lister and updater interfaces.
type webhookEndpoints struct {
	repo *webhooks.Repository
}

func (w webhookEndpoints) ListActiveEndpoints(ctx context.Context) ([]health.Endpoint, error) {
	subs, err := w.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	endpoints := make([]health.Endpoint, 0, len(subs))
	for _, sub := range subs {
		endpoints = append(endpoints, health.Endpoint{ID: sub.ID, URL: sub.URL})
	}
	return endpoints, nil
}

func (w webhookEndpoints) UpdateEndpointHealth(ctx context.Context, id uuid.UUID, failures int, active bool) error {
	return w.repo.UpdateHealth(ctx, id, failures, active)
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
