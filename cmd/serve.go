package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ucrelay/pkg/api"
	"ucrelay/pkg/config"
	"ucrelay/pkg/correlate"
	"ucrelay/pkg/logger"
	"ucrelay/pkg/relay"
	"ucrelay/pkg/store"
	"ucrelay/pkg/transport"
	"ucrelay/pkg/transport/telegram"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay with its HTTP API",
	Long:  "Starts the Telegram transport, the reply correlator, and the HTTP API, and runs until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr, err := buildTransport(cfg, appLogger)
		if err != nil {
			log.Error("Transport configuration invalid", "error", err)
			return
		}

		st, err := buildStore(runCtx, cfg, appLogger)
		if err != nil {
			log.Error("Failed to initialize store", "error", err)
			return
		}

		correlator := correlate.New(cfg.Relay.BufferSize(), appLogger)

		svc, err := relay.NewService(cfg, tr, correlator, st, appLogger)
		if err != nil {
			log.Error("Failed to initialize relay service", "error", err)
			return
		}

		server, err := api.NewServer(cfg, svc, appLogger)
		if err != nil {
			log.Error("Failed to initialize api server", "error", err)
			return
		}

		log.Info("Relay starting", "transport", tr.Name())

		errCh := make(chan error, 2)
		go func() { errCh <- svc.Run(runCtx) }()
		go func() { errCh <- server.Run(runCtx) }()

		select {
		case <-runCtx.Done():
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Relay runtime failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func buildTransport(cfg *config.Config, log *slog.Logger) (transport.Transport, error) {
	if !cfg.Channels.Telegram.Enabled {
		return nil, errors.New("no transport is enabled")
	}

	adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
	if err != nil {
		return nil, fmt.Errorf("configure telegram transport: %w", err)
	}

	return adapter, nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if !cfg.Storage.Redis.Enabled {
		log.Info("Redis disabled, using in-memory store")
		return store.NewMemoryStore(), nil
	}

	redisStore, err := store.Connect(ctx, cfg.Storage.Redis.URL, log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return redisStore, nil
}
