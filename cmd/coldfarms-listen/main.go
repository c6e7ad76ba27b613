// coldfarms-listen connects to the coldfarms push endpoint as a farmer and
// logs every event it receives. Optionally it journals events to Postgres
// and relays them to Redis pub/sub.
//
// Configuration via environment variables (flags override):
//
//	COLDFARMS_WS_URL     — push endpoint (default wss://cold-farm-dashboard-rosnuza.replit.app/ws)
//	COLDFARMS_FARMER_ID  — farmer ID to authenticate as
//	DATABASE_URL         — enables the Postgres journal
//	REDIS_ADDR           — enables the Redis relay
//	LOG_LEVEL, LOG_FORMAT, LOG_FILE
//
// Usage:
//
//	COLDFARMS_FARMER_ID=42 go run ./cmd/coldfarms-listen -log-format json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	realtime "github.com/coldfarms/realtime"
	"github.com/coldfarms/realtime/internal/journal"
	"github.com/coldfarms/realtime/internal/relay"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("listener failed")
	}
	logger.Info().Msg("shutting down")
}

func run(ctx context.Context, cfg listenConfig, logger zerolog.Logger) error {
	client, err := realtime.NewClient(realtime.Config{}, realtime.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	client.Subscribe(realtime.Wildcard, func(msg *realtime.Message) error {
		ev := logger.Info().Str("type", msg.Type)
		if len(msg.Data) > 0 {
			ev = ev.RawJSON("data", msg.Data)
		}
		ev.Msg("event")
		return nil
	})

	if cfg.DatabaseURL != "" {
		j, err := journal.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer j.Close()
		if err := j.EnsureSchema(ctx); err != nil {
			return err
		}
		client.Subscribe(realtime.Wildcard, j.Handler(ctx, cfg.FarmerID))
		logger.Info().Msg("journal enabled")
	}

	if cfg.Relay.Addr != "" {
		r, err := relay.New(ctx, cfg.Relay, logger)
		if err != nil {
			return err
		}
		defer r.Close()
		client.Subscribe(realtime.Wildcard, r.Handler(ctx, cfg.FarmerID))
		logger.Info().Str("redis", cfg.Relay.Addr).Msg("relay enabled")
	}

	client.OnDisconnect(func(err error) {
		logger.Warn().Err(err).Msg("connection down, events may be missed until it is restored")
	})
	client.OnReconnect(func() {
		logger.Info().Msg("connection restored")
	})

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		client.Connect(cfg.FarmerID)
		<-ctx.Done()
		client.Disconnect()
		return nil
	})

	if cfg.StatusInterval > 0 {
		eg.Go(func() error {
			ticker := time.NewTicker(cfg.StatusInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					logger.Info().Stringer("state", client.State()).Msg("status")
				}
			}
		})
	}

	return eg.Wait()
}
