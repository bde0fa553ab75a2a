// Command server runs the credit gate: the policy service deciding whether a
// generation request may proceed, combining rate limiting, the guest credit
// gate, and the monthly credit ledger.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creditgate/internal/checker"
	checkerhandler "creditgate/internal/checker/handler"
	creditshandler "creditgate/internal/credits/handler"
	creditmetrics "creditgate/internal/credits/metrics"
	"creditgate/internal/credits/ports"
	"creditgate/internal/credits/service/guest"
	"creditgate/internal/credits/service/ledger"
	"creditgate/internal/credits/store/guestflag"
	roleStore "creditgate/internal/credits/store/role"
	subStore "creditgate/internal/credits/store/subscription"
	usageStore "creditgate/internal/credits/store/usage"
	"creditgate/internal/platform/config"
	"creditgate/internal/platform/httpserver"
	"creditgate/internal/platform/kv"
	"creditgate/internal/platform/logger"
	"creditgate/internal/platform/postgres"
	redisplatform "creditgate/internal/platform/redis"
	ratelimithandler "creditgate/internal/ratelimit/handler"
	ratemetrics "creditgate/internal/ratelimit/metrics"
	ratelimit "creditgate/internal/ratelimit/service"
	"creditgate/internal/ratelimit/store/kvwindow"
	httptransport "creditgate/internal/transport/http"
	"creditgate/pkg/platform/audit/publisher"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	health := make(map[string]httptransport.HealthChecker)

	// Key-value backend: Redis when configured, in-memory otherwise.
	var kvStore kv.Store = kv.NewMemory()
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		kvStore = kv.NewRedis(redisClient.Client, "creditgate:")
		health["redis"] = redisClient
		log.Info("using redis key-value store")
	} else {
		log.Info("using in-memory key-value store")
	}

	// Authoritative stores: PostgreSQL when configured, in-memory otherwise.
	var (
		roles ports.RoleStore         = roleStore.NewMemory()
		subs  ports.SubscriptionStore = subStore.NewMemory()
		usage ports.UsageStore        = usageStore.NewMemory()
	)
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		roles = roleStore.NewPostgres(db)
		subs = subStore.NewPostgres(db)
		usage = usageStore.NewPostgres(db)
		health["postgres"] = dbHealth{db}
		log.Info("using postgres stores")
	} else {
		log.Info("using in-memory stores")
	}

	// Audit sink: Kafka when brokers are configured, structured log otherwise.
	var auditPublisher ports.AuditPublisher = publisher.NewLog(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	}

	rates, err := ratelimit.New(kvwindow.New(kvStore),
		ratelimit.WithLogger(log),
		ratelimit.WithAuditPublisher(auditPublisher),
		ratelimit.WithMetrics(ratemetrics.New()),
	)
	if err != nil {
		log.Error("rate limit service init failed", "error", err)
		os.Exit(1)
	}

	cm := creditmetrics.New()
	guests, err := guest.New(guestflag.New(kvStore),
		guest.WithLogger(log),
		guest.WithAuditPublisher(auditPublisher),
		guest.WithMetrics(cm),
	)
	if err != nil {
		log.Error("guest service init failed", "error", err)
		os.Exit(1)
	}

	creditLedger, err := ledger.New(roles, subs, usage,
		ledger.WithLogger(log),
		ledger.WithAuditPublisher(auditPublisher),
		ledger.WithMetrics(cm),
		ledger.WithFetchTimeout(cfg.Server.FetchTimeout),
	)
	if err != nil {
		log.Error("ledger service init failed", "error", err)
		os.Exit(1)
	}

	authorize, err := checker.New(rates, guests, creditLedger, checker.WithLogger(log))
	if err != nil {
		log.Error("checker init failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Authorize:     checkerhandler.New(authorize, log),
		Credits:       creditshandler.New(guests, creditLedger, log),
		RateLimit:     ratelimithandler.New(rates, creditLedger, log),
		JWTSigningKey: []byte(cfg.Server.JWTSigningKey),
		AdminAPIHash:  cfg.Server.AdminAPIKeyHash,
		Logger:        log,
		Health:        health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting creditgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("creditgate stopped")
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
