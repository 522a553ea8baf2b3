package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	lehttp "github.com/fluxcrm/leadengine/internal/adapter/http"
	"github.com/fluxcrm/leadengine/internal/adapter/memory"
	lenats "github.com/fluxcrm/leadengine/internal/adapter/nats"
	"github.com/fluxcrm/leadengine/internal/adapter/otel"
	"github.com/fluxcrm/leadengine/internal/adapter/postgres"
	"github.com/fluxcrm/leadengine/internal/adapter/ristretto"
	"github.com/fluxcrm/leadengine/internal/adapter/ws"
	"github.com/fluxcrm/leadengine/internal/config"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/logger"
	"github.com/fluxcrm/leadengine/internal/middleware"
	"github.com/fluxcrm/leadengine/internal/port/database"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
	"github.com/fluxcrm/leadengine/internal/port/notifier"
	"github.com/fluxcrm/leadengine/internal/service"

	// Notifier adapters register themselves for their channel.
	_ "github.com/fluxcrm/leadengine/internal/adapter/email"
	_ "github.com/fluxcrm/leadengine/internal/adapter/sms"
	_ "github.com/fluxcrm/leadengine/internal/adapter/whatsapp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"dispatch_interval", cfg.Dispatch.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := otel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// --- Storage ---
	var (
		store database.Store
		pool  pinger
	)
	if cfg.Postgres.DSN != "" {
		pgPool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pgPool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("postgres connected, migrations applied")

		store = postgres.NewStore(pgPool)
		pool = pgPool
	} else {
		slog.Warn("no postgres dsn configured, using in-memory store")
		store = memory.NewStore()
	}

	// --- Messaging ---
	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := lenats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
	} else {
		slog.Warn("no nats url configured, event publishing disabled")
	}

	// --- Services ---
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	resolver := service.NewResolver(store, cache, cfg.Cache.TTL)
	tenantSvc := service.NewTenantService(store, resolver)
	pipelineSvc := service.NewPipelineService(store, queue, metrics)
	followupSvc := service.NewFollowupService(store, queue)

	// --- Dispatcher ---
	notifiers, err := buildNotifiers(cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("notifiers: %w", err)
	}
	dispatcher := service.NewDispatcher(store, queue, notifiers, metrics,
		cfg.Dispatch.MaxParallel, cfg.Dispatch.BatchSize)
	go dispatcher.Run(ctx, cfg.Dispatch.Interval)

	// --- Event stream ---
	hub := ws.NewHub()
	var wsHandler http.HandlerFunc
	if queue != nil {
		stopForward, err := hub.Forward(ctx, queue)
		if err != nil {
			return fmt.Errorf("event forwarder: %w", err)
		}
		defer stopForward()
		wsHandler = hub.HandleWS
	}

	// --- HTTP ---
	handlers := lehttp.NewHandlers(tenantSvc, pipelineSvc, followupSvc, health{pool: pool, queue: queue})

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	defer limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)()

	r := chi.NewRouter()
	r.Use(lehttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(lehttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(limiter.Handler)

	lehttp.MountRoutes(r, handlers, resolver, wsHandler)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildNotifiers constructs one notifier per channel from config. A channel
// with empty config still gets a notifier; it reports ErrNotConfigured at
// send time so the message fails with a clear reason.
func buildNotifiers(cfg config.Notifiers) ([]notifier.Notifier, error) {
	specs := map[message.Channel]map[string]string{
		message.ChannelWhatsApp: {
			"gateway_url": cfg.WhatsApp.GatewayURL,
			"token":       cfg.WhatsApp.Token,
			"timeout":     cfg.WhatsApp.Timeout.String(),
		},
		message.ChannelEmail: {
			"host":     cfg.Email.Host,
			"port":     cfg.Email.Port,
			"username": cfg.Email.Username,
			"password": cfg.Email.Password,
			"from":     cfg.Email.From,
		},
		message.ChannelSMS: {
			"gateway_url": cfg.SMS.GatewayURL,
			"token":       cfg.SMS.Token,
			"sender":      cfg.SMS.Sender,
			"timeout":     cfg.SMS.Timeout.String(),
		},
	}

	notifiers := make([]notifier.Notifier, 0, len(specs))
	for ch, conf := range specs {
		n, err := notifier.New(ch, conf)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return notifiers, nil
}

// pinger is the subset of pgxpool.Pool the health check needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// health reports dependency liveness for /healthz.
type health struct {
	pool  pinger
	queue messagequeue.Queue
}

func (h health) Healthy() map[string]bool {
	components := map[string]bool{}
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		components["postgres"] = h.pool.Ping(ctx) == nil
		cancel()
	}
	if h.queue != nil {
		components["nats"] = h.queue.IsConnected()
	}
	return components
}
