package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

const orderNotificationsQueue = "order_notifications"

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger := logging.New(cfg.LogLevel)
	slog.SetDefault(appLogger)

	// --- Database ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ ---
	// Events are optional; without a broker the store keeps working and skips them.
	var publisher events.Publisher
	if cfg.RabbitMQ.Enabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			appLogger.Warn("RabbitMQ unavailable, events disabled", "error", err)
		} else {
			defer mqClient.Close()
			publisher = mqClient

			handler := events.OrderCreatedHandler(appLogger, events.LogNotifier{Logger: appLogger})
			if err := mqClient.Consume(orderNotificationsQueue, events.OrderCreated, handler); err != nil {
				appLogger.Error("Failed to start order consumer", "error", err)
			} else {
				appLogger.Info("Order consumer started", "queue", orderNotificationsQueue)
			}
		}
	}

	app := newApp(cfg, db, publisher, appLogger)

	// --- Start HTTP Server ---
	appLogger.Info("Starting server", "port", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	appLogger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Error during Fiber shutdown", "error", err)
	}
	appLogger.Info("Server gracefully stopped")
}

// newApp wires services and routes on a new Fiber app. publisher may be nil.
func newApp(cfg config.Config, db *gorm.DB, publisher events.Publisher, appLogger *slog.Logger) *fiber.App {
	store := repositories.NewGORMStore(db)

	svc := handlers.Services{
		Auth:     services.NewAuthService(store.Users(), store.Sessions(), cfg.JWTSecret, cfg.TokenTTL),
		Cart:     services.NewCartService(store, appLogger),
		Checkout: services.NewCheckoutService(store, publisher, appLogger, cfg.FlatShippingFee),
		Orders:   services.NewOrderService(store, publisher, appLogger),
		Payouts:  services.NewPayoutService(store, publisher, appLogger),
	}

	app := fiber.New(fiber.Config{AppName: "storefront"})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(middleware.RequestLogger(appLogger))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db); err != nil {
			logging.FromContext(c.UserContext()).Error("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"database": "unreachable",
				"time":     time.Now().Format(time.RFC3339),
			})
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"database": "connected",
			"events":   publisher != nil,
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	// --- API Routes ---
	handlers.Mount(app.Group("/api/v1"), svc)
	return app
}
