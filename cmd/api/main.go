package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/realtime"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is opened lazily: only the redis cart store and kafka dedup need it
	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redisx.New(cfg.RedisAddr)
		}
		return rdb
	}

	// Cart persistence
	carts, closeCarts, err := openCartStore(ctx, cfg, redisClient)
	if err != nil {
		logger.Error("cart store", "store", cfg.CartStore, "error", err)
		os.Exit(1)
	}
	defer closeCarts()

	policy, err := cart.ParsePolicy(cfg.OverStockPolicy)
	if err != nil {
		logger.Error("cart policy", "error", err)
		os.Exit(1)
	}

	client := backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout,
		ProductTTL: cfg.ProductCacheTTL,
		UserAgent:  cfg.ServiceName,
	})

	opts := []app.Option{app.WithPolicy(policy), app.WithLogger(logger)}
	var prod *kafkax.Producer
	if cfg.PublishEvents {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPush, 1024)
		prod.Start(ctx)
		opts = append(opts, app.WithPublisher(prod, cfg.ServiceName))
	}
	reg := app.NewRegistry(client, carts, opts...)

	// Push events
	src, dedup := pushSource(cfg, redisClient)
	if src != nil {
		d := realtime.NewDispatcher(reg, dedup, logger)
		go func() {
			logger.Info("push source started", "source", cfg.EventSource)
			if err := src.Run(ctx, d.Handle); err != nil {
				logger.Error("push source stopped", "source", cfg.EventSource, "error", err)
			}
		}()
	}

	go expireSessions(ctx, reg, cfg.SessionIdle, logger)

	router := httpx.NewRouter(httpx.RouterConfig{Service: cfg.ServiceName, Timeout: cfg.HTTPTimeout, Sessions: reg})
	(&httpx.SessionHandler{Registry: reg}).Register(router)
	(&httpx.CartHandler{Registry: reg, Products: client}).Register(router)
	(&httpx.OrdersHandler{Registry: reg, ProofMaxWidth: cfg.ProofMaxWidth}).Register(router)
	(&httpx.BookingsHandler{Registry: reg, ProofMaxWidth: cfg.ProofMaxWidth}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()
	}
	cancel()
	if prod != nil {
		prod.WaitClosed()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func openCartStore(ctx context.Context, cfg config.Config, rdb func() *redis.Client) (cart.Persister, func(), error) {
	switch cfg.CartStore {
	case "file":
		fs, err := cart.NewFileStore(cfg.CartDir)
		return fs, func() {}, err
	case "redis":
		return cart.NewRedisStore(rdb()), func() {}, nil
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return cart.NewPostgresStore(pool), pool.Close, nil
	case "memory":
		return cart.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cart store %q", cfg.CartStore)
}

// pushSource picks where backend events come from. Over kafka every replica
// uses its own consumer group so each one sees the whole stream.
func pushSource(cfg config.Config, rdb func() *redis.Client) (realtime.Source, realtime.Deduper) {
	switch cfg.EventSource {
	case "websocket":
		return realtime.NewWSSource(cfg.BackendWSURL, cfg.ServiceName), nil
	case "kafka":
		host, _ := os.Hostname()
		group := cfg.RelayGroup + "-" + host
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicPush, 1)
		return realtime.NewKafkaSource(cons), redisx.NewDeduper(rdb(), group)
	}
	return nil, nil
}

func expireSessions(ctx context.Context, reg *app.Registry, idle time.Duration, logger *slog.Logger) {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := reg.Expire(idle); n > 0 {
				logger.Info("idle sessions expired", "count", n, "remaining", reg.Len())
			}
		}
	}
}
