package main

import (
	"context"
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
	"github.com/rs/zerolog"

	"github.com/framecraft/api/internal/config"
	"github.com/framecraft/api/internal/executor"
	"github.com/framecraft/api/internal/handler"
	"github.com/framecraft/api/internal/lock"
	"github.com/framecraft/api/internal/middleware"
	"github.com/framecraft/api/internal/notify"
	"github.com/framecraft/api/internal/scheduler"
	"github.com/framecraft/api/internal/service"
	"github.com/framecraft/api/internal/store"
	ws "github.com/framecraft/api/internal/websocket"
	"github.com/framecraft/api/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Server.Env)

	// Redis client (also the asynq transport)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available")
	}

	// Persistence + locks
	var (
		st    store.Store
		locks lock.Manager
	)
	useRedis := cfg.Storage.Backend == "redis"
	if useRedis {
		st = store.NewRedis(redisClient, cfg.Storage.JobRetention)
		locks = lock.NewRedis(redisClient)
	} else {
		st = store.NewMemory()
		locks = lock.NewMemory()
	}

	// Notifications
	sink := notify.NewLogSink(log)
	var notifier notify.Dispatcher
	var asynqClient *asynq.Client
	if useRedis {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		notifier = notify.NewAsynqDispatcher(asynqClient, log)
	} else {
		notifier = notify.NewInline(sink, log)
	}

	// Edit execution backend
	var exec executor.Executor
	if cfg.Pipeline.BaseURL != "" {
		exec = executor.NewPipelineClient(cfg.Pipeline.BaseURL, cfg.Pipeline.Timeout)
	} else {
		log.Info().Msg("no pipeline configured, using simulator")
		exec = executor.NewSimulator(cfg.Pipeline.StepDelay)
	}

	// WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run()

	// Scheduler
	sched := scheduler.New(st, locks, exec, notifier, hub, log, scheduler.Config{
		Workers:      cfg.Scheduler.Workers,
		LockTTL:      cfg.Scheduler.LockTTL,
		RetryBackoff: cfg.Scheduler.RetryBackoff,
	})
	sched.Run()

	validate := validator.New()

	// Services
	assetService := service.NewAssetService(st)
	lockService := service.NewLockService(st, locks, &service.OwnerAuthorizer{Assets: st}, notifier, cfg.Lock.CollabTTL)

	// Handlers
	assetHandler := handler.NewAssetHandler(assetService, validate)
	editHandler := handler.NewEditHandler(sched, validate)
	lockHandler := handler.NewLockHandler(lockService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB; payloads are blob references, not blobs
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Asset registry
	assets := api.Group("/assets")
	assets.Post("/", rateLimiter.AssetLimit(cfg.RateLimit.AssetsPerHour), assetHandler.Create)
	assets.Get("/:assetId", assetHandler.Get)
	assets.Delete("/:assetId", assetHandler.Delete)
	assets.Get("/:assetId/head", assetHandler.Head)
	assets.Get("/:assetId/versions", assetHandler.History)
	api.Get("/versions/:versionId", assetHandler.GetVersion)

	// Edit jobs
	edits := api.Group("/edits")
	edits.Post("/", rateLimiter.SubmitLimit(cfg.RateLimit.EditsPerHour), editHandler.Submit)
	edits.Get("/:jobId", editHandler.Status)

	// Collaboration locks
	locksGroup := assets.Group("/:assetId/lock", rateLimiter.LockLimit(cfg.RateLimit.LocksPerMin))
	locksGroup.Post("/", lockHandler.Acquire)
	locksGroup.Delete("/", lockHandler.Release)
	locksGroup.Get("/", lockHandler.Get)

	// WebSocket progress stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/edits/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Notification worker
	if useRedis {
		go startNotifyWorker(cfg, sink, log)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sched.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown incomplete")
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func startNotifyWorker(cfg *config.Config, sink notify.Sink, log zerolog.Logger) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"notifications": 1,
			},
		},
	)

	worker := notify.NewWorker(sink)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeDispatch, worker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("notification worker error")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(response.ErrorResponse{
		Error: response.ErrorDetail{
			Code:    response.CodeServiceError,
			Message: message,
		},
	})
}
