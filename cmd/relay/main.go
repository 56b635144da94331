package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/events"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/realtime"
	"github.com/joho/godotenv"
)

// relay copies the backend socket stream into the push topic so every API
// replica can consume it with EVENT_SOURCE=kafka.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPush, 1024)
	prod.Start(ctx)

	src := realtime.NewWSSource(cfg.BackendWSURL, cfg.ServiceName+"-relay")
	src.Log = logger

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("relay started", "from", cfg.BackendWSURL, "topic", events.TopicPush)
		err := src.Run(ctx, func(ctx context.Context, env events.Envelope) error {
			return prod.PublishEvent(ctx, events.KeyFor(env), env)
		})
		if err != nil {
			logger.Error("relay source stopped", "error", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-done:
	}
	logger.Info("shutting down relay...")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}
