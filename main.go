package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nishiisharma/Assignment1.kombee/internal/config"
	"github.com/nishiisharma/Assignment1.kombee/internal/handlers"
	"github.com/nishiisharma/Assignment1.kombee/internal/middleware"
	"github.com/nishiisharma/Assignment1.kombee/internal/models"
	"github.com/nishiisharma/Assignment1.kombee/internal/repositories"
	"github.com/nishiisharma/Assignment1.kombee/internal/security"
	"github.com/nishiisharma/Assignment1.kombee/internal/services"
	"github.com/nishiisharma/Assignment1.kombee/internal/storage"
	"github.com/nishiisharma/Assignment1.kombee/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Database ---
	// PostgreSQL when a DSN is configured, local SQLite otherwise.
	var dialector gorm.Dialector
	if cfg.DatabaseDSN != "" {
		dialector = postgres.Open(cfg.DatabaseDSN)
	} else {
		log.Printf("DATABASE_DSN is not set, using SQLite database at %s", cfg.SQLitePath)
		dialector = sqlite.Open(cfg.SQLitePath)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Hobby{}, &models.FileUpload{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Collaborators ---
	tokenIssuer, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		// A missing signing key is a startup failure, not a per-request error.
		log.Fatalf("Invalid JWT configuration: %v", err)
	}
	passwordHasher := security.NewPasswordHasher(cfg.BcryptCost)
	fileStash, err := storage.NewDiskStash(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close() // Ensure the connection is closed on exit
	} else {
		log.Println("RABBITMQ_URL is not set, account event publishing is disabled")
	}

	// --- Repository, service, handler wiring ---
	userRepo := repositories.NewGORMUserRepository(db)
	accountService := services.NewAccountService(userRepo, fileStash, passwordHasher, tokenIssuer, mqClient)
	userHandler := handlers.NewUserHandler(accountService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	userHandler.RegisterRoutes(apiV1, middleware.AuthRequired(tokenIssuer))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start RabbitMQ Consumer in a Goroutine ---
	// The consumer just logs account events here; downstream systems (mail,
	// analytics) would hang their processing off this queue.
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for account events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received account event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil // Return nil to acknowledge
			}
			if consumerErr := mqClient.ConsumeAccountEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
