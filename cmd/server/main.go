package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/marketgen/api/internal/client"
	"github.com/marketgen/api/internal/config"
	"github.com/marketgen/api/internal/extract"
	"github.com/marketgen/api/internal/handler"
	"github.com/marketgen/api/internal/middleware"
	"github.com/marketgen/api/internal/service"
	"github.com/marketgen/api/internal/store"
	"github.com/marketgen/api/internal/worker"
	ws "github.com/marketgen/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// External clients
	textGen := client.NewOpenAIClient(&cfg.OpenAI)
	if !textGen.IsConfigured() {
		log.Printf("Warning: OpenAI client not configured, text generation will fail")
	}
	imageEngine := client.NewA2EClient(&cfg.A2E)
	if !imageEngine.IsConfigured() {
		log.Printf("Warning: A2E client not configured, image generation will fail")
	}

	var storageClient client.StorageClient
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Printf("Warning: R2 storage not configured: %v", err)
	} else {
		storageClient = r2Client
	}

	// Stores and services
	sessionStore := store.NewRedisStore(redisClient)
	transferService := service.NewTransferService(storageClient, time.Duration(cfg.Limits.RequestTimeout)*time.Second)
	assetService := service.NewAssetService(textGen)
	imageService := service.NewImageService(imageEngine, transferService, sessionStore, 0)
	generationService := service.NewGenerationService(assetService, imageService, sessionStore)

	// Extractors
	webExtractor := extract.NewWebExtractor(time.Duration(cfg.Limits.RequestTimeout) * time.Second)

	// Handlers
	generateHandler := handler.NewGenerateHandler(generationService, sessionStore, webExtractor, asynqClient, validate, cfg.Limits)
	generationsHandler := handler.NewGenerationsHandler(sessionStore)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.Server.Env)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Limits.FileSizeLimit + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-User-ID",
	}))

	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "marketgen-api", "timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"openai":  textGen.IsConfigured(),
				"a2e":     imageEngine.IsConfigured(),
				"storage": storageClient != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	generateLimit := rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour)
	api.Post("/generate", generateLimit, generateHandler.Generate)
	api.Post("/generate-stream", generateLimit, generateHandler.GenerateStream)
	api.Post("/generate-async", generateLimit, generateHandler.GenerateAsync)

	readLimit := rateLimiter.ReadLimit(cfg.RateLimit.ReadPerMin)
	api.Get("/generations", readLimit, generationsHandler.List)
	api.Get("/generations/:generationId", readLimit, generationsHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/generations/:generationId", websocket.New(func(c *websocket.Conn) {
		generationID := c.Params("generationId")
		hub.HandleConnection(c, generationID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, generationService, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, generationService *service.GenerationService, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"generation": 10,
			},
		},
	)

	generationWorker := worker.NewGenerationWorker(generationService, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeGeneration, generationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
