package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blockademia-progress/config"
	"blockademia-progress/handlers"
	"blockademia-progress/models"
	"blockademia-progress/services"
	"blockademia-progress/utils"
	"blockademia-progress/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres backs the gorm store and the wallet outbox; it is optional with the other stores.
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		if err := db.AutoMigrate(
			&models.ProgressDocument{},
			&models.WalletSyncJob{},
		); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
	}

	var store services.ProgressStore
	switch cfg.StoreBackend {
	case config.StorePostgres:
		store = services.NewGormStore(db)
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		defer rdb.Close()
		store = services.NewRedisStore(rdb, "")
	default:
		log.Println("⚠️  STORE_BACKEND=memory — progress is lost on restart")
		store = services.NewMemoryStore()
	}

	hub := services.NewNotificationHub(32)
	progressionService := services.NewProgressionService(store, services.MultiNotifier{services.LogNotifier{}, hub}, cfg.Economy)
	progressionService.WalletSyncTimeout = cfg.WalletSyncTimeout

	var retryWorker *workers.WalletRetryWorker
	if cfg.WalletServiceURL != "" {
		wallet := services.NewHTTPWalletClient(cfg.WalletServiceURL, cfg.ServiceToken)
		wallet.HTTPClient = utils.HTTPClient
		progressionService.Wallet = wallet
		if db != nil {
			outbox := services.NewGormWalletOutbox(db)
			progressionService.Outbox = outbox
			retryWorker = workers.NewWalletRetryWorker(outbox, wallet, cfg.WalletRetryBatch)
		}
	} else {
		log.Println("⚠️  WALLET_SERVICE_URL not set — tokens stay in the local ledger only")
	}

	if cfg.R2.Enabled() {
		bucket, err := utils.NewR2Bucket(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		progressionService.Certificates = services.NewR2CertificateIssuer(bucket)
	} else {
		log.Println("⚠️  R2 not configured — course certificates are disabled")
	}

	sched, err := workers.StartScheduler(ctx, workers.SchedulerConfig{
		WalletRetry:         retryWorker,
		WalletRetryInterval: cfg.WalletRetryInterval,
		Sessions:            progressionService,
		SessionIdleTimeout:  cfg.SessionIdleTimeout,
	})
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	allowedOrigins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOrigins, ","),
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": progressionService.Sessions()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.SetupAdminRoutes(app, progressionService, cfg.ServiceToken)
	handlers.SetupProgressionRoutes(app, progressionService, hub, services.NewTokenValidator(cfg.JWTSecret, cfg.JWTAudience))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s (store=%s)", cfg.Port, cfg.StoreBackend)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("⚠️ Scheduler shutdown: %v", err)
	}
	progressionService.Wait()
}
