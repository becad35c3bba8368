// lobbyd is the lobby backend: the rooms REST API plus the realtime
// socket that fans room-change notifications out to connected clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nuocmamcacom/chess-lobby/internal/config"
	"github.com/nuocmamcacom/chess-lobby/internal/httpapi"
	"github.com/nuocmamcacom/chess-lobby/internal/hub"
	"github.com/nuocmamcacom/chess-lobby/internal/store"
	"github.com/nuocmamcacom/chess-lobby/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := newLogger(cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	roomStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	h := hub.New(ctx, log.Named("hub"))
	handlers := httpapi.NewHandlers(roomStore, log.Named("api"))
	router := httpapi.SetupRoutes(handlers, ws.Handler(h, log.Named("ws")))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("lobbyd listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("lobbyd exited")
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(cfg config.Config) (store.RoomStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("STORE_DRIVER=postgres requires DATABASE_URL")
		}
		return store.OpenPostgres(cfg.DatabaseURL)
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedis(rdb), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
