package main

import (
	"context"
	"strings"
	"time"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/config"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/purchasing"
	"warehouse-backend/internal/reconcile"
	"warehouse-backend/internal/sales"
	"warehouse-backend/internal/shipping"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/store/gormstore"
	"warehouse-backend/internal/store/memstore"

	"github.com/bsm/redislock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	users   auth.UserStore
	logs    audit.Reader

	inventory  *inventory.Service
	purchasing *purchasing.Service
	sales      *sales.Service
	shipping   *shipping.Service
	checker    *reconcile.Checker

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			config.LogError("main", "close", nil, err)
		}
	}
}

// build wires the services for the configured store driver.
func build(ctx context.Context, cfg *config.Config, tp trace.TracerProvider) (*app, error) {
	logger := config.GetLogger()
	a := &app{cfg: cfg, metrics: metrics.New()}

	var rdb *redis.Client
	if cfg.RedisAddress != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis not reachable; numbering and locks will retry per call")
		}
		a.closers = append(a.closers, rdb.Close)
	}

	var (
		uow   store.UnitOfWork
		seq   numbering.Sequence
		sinks = []audit.Sink{audit.LogSink{}}
	)
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("memory store driver: data is lost on restart")
		uow = memstore.New()
		seq = memstore.NewSequence()
		mem := audit.NewMemorySink(10000)
		sinks = append(sinks, mem)
		a.logs = mem
		a.users = auth.NewMemoryUsers()
	default:
		if err := database.Init(cfg); err != nil {
			return nil, err
		}
		if err := database.Migrate(database.DB); err != nil {
			return nil, err
		}
		uow = gormstore.New(database.DB)
		seq = gormstore.NewSequence(database.DB)
		dbSink := audit.NewDBSink(database.DB)
		sinks = append(sinks, dbSink)
		a.logs = dbSink
		a.users = auth.NewGormUsers(database.DB)
		if sqlDB, err := database.DB.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	}

	if cfg.NumberingBackend == "redis" && rdb != nil {
		seq = numbering.NewRedisSequence(rdb)
	}

	if len(cfg.KafkaBrokers) > 0 {
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		ks, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic, tp)
		if err != nil {
			logger.WithError(err).Warn("kafka audit sink disabled")
		} else {
			sinks = append(sinks, ks)
			a.closers = append(a.closers, ks.Close)
		}
	}

	var guard reconcile.Guard
	if rdb != nil {
		guard = reconcile.NewRedisGuard(redislock.New(rdb), "lock:reconcile", 5*time.Minute)
	}

	rec := audit.NewRecorder(sinks...)
	numbers := numbering.NewGenerator(seq)
	ledger := inventory.NewLedger()

	a.inventory = inventory.NewService(uow, ledger, rec, a.metrics)
	a.purchasing = purchasing.NewService(uow, ledger, numbers, rec, a.metrics)
	a.sales = sales.NewService(uow, ledger, numbers, rec, a.metrics)
	a.shipping = shipping.NewService(uow, numbers, rec, a.metrics)
	a.checker = reconcile.NewChecker(uow, guard, a.metrics)
	return a, nil
}

func newServer(a *app) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:      "warehouse-backend",
		ErrorHandler: httpx.ErrorHandler,
	})

	srv.Use(recover.New())
	srv.Use(requestid.New())
	srv.Use(cors.New(cors.Config{
		AllowOrigins: strings.ReplaceAll(a.cfg.CORSOrigins, " ", ""),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	srv.Use(a.metrics.Middleware())

	srv.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{})))
	srv.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := srv.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(a.users))
	api.Post("/auth/login", auth.LoginHandler(a.cfg, a.users))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(a.cfg))
	protected.Get("/auth/me", auth.MeHandler(a.users))
	protected.Post("/users", auth.RequireRole(models.RoleAdmin), auth.CreateUserHandler(a.users))

	inventory.Routes(protected, a.inventory)
	purchasing.Routes(protected, a.purchasing)
	sales.Routes(protected, a.sales)
	shipping.Routes(protected, a.shipping)

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler(a.logs))
	adminRoutes.Get("/reconciliation", reconcile.RunHandler(a.checker))

	return srv
}
