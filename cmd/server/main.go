package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tutorcast/api/internal/assembly"
	"github.com/tutorcast/api/internal/client"
	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/config"
	"github.com/tutorcast/api/internal/handler"
	"github.com/tutorcast/api/internal/logging"
	"github.com/tutorcast/api/internal/middleware"
	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/service"
	"github.com/tutorcast/api/internal/session"
	ws "github.com/tutorcast/api/internal/websocket"
	"github.com/tutorcast/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logging.New(cfg.Server.LogLevel, cfg.Server.Env)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	redisUp := redisClient.Ping(ctx).Err() == nil
	if !redisUp {
		log.Warn("Redis not available, compile jobs and the project cache will fail")
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := model.NewValidator()

	// Initialize WebSocket hub
	hub := ws.NewHub(log.WithField("component", "hub"))
	go hub.Run()
	defer hub.Stop()

	// Narration is optional; compiles without it keep recorded timing only
	narrationClient := client.NewNarrationClient(&cfg.Narration)
	var synth compiler.Synthesizer
	if narrationClient.IsConfigured() {
		synth = narrationClient
	} else {
		log.Info("Narration service not configured, synthesis disabled")
	}

	// Initialize object storage (optional - projects are assembled locally without it)
	var storage *client.S3Client
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		storage, err = client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.WithError(err).Warn("Object storage client not initialized")
		}
	} else {
		log.Info("Object storage not configured, assembling projects on disk")
	}

	// Initialize services
	compileService := service.NewCompileService(service.CompileServiceConfig{
		Redis:       redisClient,
		Asynq:       asynqClient,
		Logger:      log.WithField("component", "compile"),
		Options:     service.CompilerOptions(cfg.Compiler),
		Synthesizer: synth,
		Narration: compiler.NarrationOptions{
			Language:    model.Language(cfg.Compiler.DefaultLanguage),
			Voice:       cfg.Narration.Voice,
			Format:      cfg.Narration.Format,
			Concurrency: cfg.Narration.Concurrency,
		},
		ProjectTTL: time.Duration(cfg.Compiler.ProjectTTLHours) * time.Hour,
	})

	var store session.Store
	if strings.EqualFold(cfg.Session.Store, "memory") {
		store = session.NewMemoryStore(cfg.Session.TTL(), time.Minute)
	} else {
		store = session.NewRedisStore(redisClient, cfg.Session.TTL())
	}
	defer store.Close()

	tokens, err := session.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL())
	if err != nil {
		log.Fatalf("Failed to initialize session tokens: %v", err)
	}

	playbackService := service.NewPlaybackService(service.PlaybackServiceConfig{
		Store:    store,
		Projects: compileService,
		Tokens:   tokens,
		Events:   hub,
		Logger:   log.WithField("component", "playback"),
	})

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Debug("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
		Output: log.Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	handler.Register(app, handler.Routes{
		Compile:         handler.NewCompileHandler(compileService, validate),
		Sessions:        handler.NewSessionHandler(playbackService, validate),
		Verifier:        playbackService,
		RateLimiter:     middleware.NewRateLimiter(redisClient),
		Hub:             hub,
		CompilePerHour:  cfg.RateLimit.CompilePerHour,
		SessionsPerHour: cfg.RateLimit.SessionsPerHour,
		Health: func() fiber.Map {
			return fiber.Map{
				"redis":     redisUp,
				"narration": narrationClient.IsConfigured(),
				"storage":   storage != nil,
				"sessions":  cfg.Session.Store,
			}
		},
	})

	// Start Asynq worker server
	publisher := newPublisher(cfg, storage)
	go startWorkerServer(cfg, log, compileService, publisher, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Infof("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// newPublisher uploads to object storage when configured and writes to the
// assembly output directory otherwise
func newPublisher(cfg *config.Config, storage *client.S3Client) *worker.Publisher {
	src := assembly.DirSource{Root: cfg.Assembly.SourceDir}
	if storage != nil {
		return &worker.Publisher{
			Source: src,
			SinkFor: func(projectID string) assembly.Sink {
				return assembly.ObjectSink{Storage: storage, Prefix: cfg.Assembly.Prefix + "/" + projectID}
			},
		}
	}
	if cfg.Assembly.OutputDir == "" {
		return nil
	}
	return &worker.Publisher{
		Source: src,
		SinkFor: func(projectID string) assembly.Sink {
			return assembly.DirSink{Root: filepath.Join(cfg.Assembly.OutputDir, projectID)}
		},
	}
}

func startWorkerServer(
	cfg *config.Config,
	log *logrus.Logger,
	compileService *service.CompileService,
	publisher *worker.Publisher,
	hub *ws.Hub,
) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueCompile: 1,
			},
			LogLevel: logging.AsynqLevel(cfg.Server.LogLevel),
			Logger:   log.WithField("component", "asynq"),
		},
	)

	compileWorker := worker.NewCompileWorker(compileService, hub, publisher, log.WithField("component", "worker"))

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeCompile, compileWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.WithError(err).Error("Asynq worker error")
	}
}
