package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/cart"
	"github.com/wichananm65/coffee-shop-backend/internal/config"
	"github.com/wichananm65/coffee-shop-backend/internal/database"
	"github.com/wichananm65/coffee-shop-backend/internal/logging"
	"github.com/wichananm65/coffee-shop-backend/internal/metrics"
	"github.com/wichananm65/coffee-shop-backend/internal/order"
	"github.com/wichananm65/coffee-shop-backend/internal/payment"
	"github.com/wichananm65/coffee-shop-backend/internal/payment/paymenttest"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
	"github.com/wichananm65/coffee-shop-backend/internal/session"
	"github.com/wichananm65/coffee-shop-backend/internal/user"
)

func main() {
	cfg := config.Load()
	log := logging.New("storefront", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := mustOpenDB(ctx, cfg)
	defer db.Close()

	var sessionStorage fiber.Storage
	if redisStorage, err := newSessionStorage(cfg); err != nil {
		log.Error("session storage unavailable", "error", err)
		os.Exit(1)
	} else if redisStorage != nil {
		defer redisStorage.Close()
		sessionStorage = redisStorage
	}

	gateway, err := newGateway(cfg)
	if err != nil {
		log.Error("payment gateway unavailable", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg)
	orderMetrics := metrics.NewOrderMetrics(reg)

	app := fiber.New(fiber.Config{
		AppName:      "coffee-shop-backend",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: `{"time":"${time}","status":${status},"latency":"${latency}","method":"${method}","path":"${path}"}` + "\n",
	}))
	app.Use(serverMetrics.Middleware())
	setupCORS(app, cfg.CORSOrigins)

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler(reg))

	// repositories and services
	productService := product.NewService(product.NewPostgresRepository(db))
	productHandler := product.NewHandler(productService)

	cartService := cart.NewService(cart.NewPostgresRepository(db), productService)
	cartHandler := cart.NewHandler(cartService)

	orderService := order.NewService(order.NewPostgresRepository(db), cartService, gateway, order.Config{
		Currency:       cfg.Currency,
		PublicBaseURL:  cfg.PublicBaseURL,
		PaymentTimeout: cfg.PaymentTimeout,
	}).WithMetrics(orderMetrics).WithLogger(log)
	orderHandler := order.NewHandler(orderService, productService, gateway)

	userService := user.NewService(user.NewPostgresRepository(db))
	userHandler := user.NewHandler(userService, cfg.JWTSecret)

	// anonymous shopper identity for carts and checkout; provider webhooks
	// carry no cookie
	sessions := session.NewManager(session.Config{
		Storage: sessionStorage,
		TTL:     cfg.SessionTTL,
		Secure:  strings.HasPrefix(cfg.PublicBaseURL, "https://"),
	})
	sessionMiddleware := sessions.Middleware()
	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/webhooks/") {
			return c.Next()
		}
		return sessionMiddleware(c)
	})

	userHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	cartHandler.RegisterPublicRoutes(app)
	orderHandler.RegisterPublicRoutes(app)

	// everything registered below requires a valid token
	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperror.Respond(c, apperror.ErrUnauthorized)
		},
	}))
	userHandler.RegisterProtectedRoutes(app)

	admin := app.Group("/api/admin", user.RequireAdmin(userService))
	productHandler.RegisterAdminRoutes(admin)

	go func() {
		log.Info("starting server", "addr", cfg.Addr, "payment_provider", cfg.PaymentProvider)
		if err := app.Listen(cfg.Addr); err != nil {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
	}))
}

func mustOpenDB(ctx context.Context, cfg config.Config) *sql.DB {
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(db); err != nil {
		panic(err)
	}
	return db
}

// newSessionStorage returns nil when no Redis is configured, which keeps
// sessions in process memory.
func newSessionStorage(cfg config.Config) (*session.RedisStorage, error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL is not set, sessions are kept in memory")
		return nil, nil
	}
	return session.NewRedisStorageFromURL(cfg.RedisURL)
}

// paymentProvider is what the order service and the webhook route need from the
// payment provider.
type paymentProvider interface {
	payment.Gateway
	payment.WebhookParser
}

func newGateway(cfg config.Config) (paymentProvider, error) {
	var provider payment.Gateway
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		provider = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	case config.ProviderSandbox:
		slog.Warn("using the sandbox payment provider, every checkout is paid immediately")
		provider = paymenttest.New(paymenttest.ModePaid)
	default:
		return nil, errors.New("unknown payment provider " + cfg.PaymentProvider)
	}
	return payment.NewBreakerGateway(provider, payment.BreakerConfig{Timeout: cfg.PaymentTimeout}), nil
}
