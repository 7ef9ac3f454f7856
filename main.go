package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Ananth-NQI/woo-slack-tools/internal/config"
	"github.com/Ananth-NQI/woo-slack-tools/internal/handlers"
	"github.com/Ananth-NQI/woo-slack-tools/internal/middleware"
	"github.com/Ananth-NQI/woo-slack-tools/internal/routes"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	config.LoadDotEnv(".env", "environments/.env.development")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ ", err)
	}

	// Initialize services
	sessions := services.NewSessionManager(cfg.SessionTTL)

	wooClient, err := services.NewWooClient(cfg.WooAPIBase(), cfg.WooUsername, cfg.WooPassword,
		services.WithWooTimeout(cfg.RequestTimeout),
		services.WithRetries(cfg.UpstreamRetries),
	)
	if err != nil {
		log.Fatal("Failed to initialize WooCommerce client:", err)
	}

	notifier, err := services.NewSlackNotifier(cfg.SlackBotToken)
	if err != nil {
		log.Fatal("Failed to initialize Slack client:", err)
	}

	slackHandler, err := handlers.NewSlackHandler(handlers.Deps{
		Woo:          wooClient,
		Sessions:     sessions,
		Notifier:     notifier,
		Renderer:     services.NewChromePDFRenderer(cfg.ChromePath),
		AdminEditURL: cfg.AdminEditURL,
	})
	if err != nil {
		log.Fatal("Failed to initialize Slack handler:", err)
	}
	healthHandler := handlers.NewHealthHandler(version, sessions.Len)

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Woo Slack Store Tools v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n",
	}))
	app.Use(recover.New())

	slackAuth := middleware.ValidateSlackSignature(middleware.SlackAuthConfig{
		SigningSecret: cfg.SlackSigningSecret,
	})
	routes.SetupRoutes(app, slackAuth, slackHandler, healthHandler)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping session sweeper...")
		sessions.Close()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Woo Slack Store Tools starting on port %s", cfg.Port)
	log.Printf("🛒 WooCommerce API: %s", cfg.WooAPIBase())
	log.Printf("⏳ Session TTL: %v, request timeout: %v, GET retries: %d", cfg.SessionTTL, cfg.RequestTimeout, cfg.UpstreamRetries)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}
