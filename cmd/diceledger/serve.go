package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	rediscache "diceledger/internal/cache/redis"
	"diceledger/internal/chain"
	"diceledger/internal/config"
	"diceledger/internal/eventlog"
	"diceledger/internal/ledger"
	"diceledger/internal/projector"
	"diceledger/internal/server"
	"diceledger/internal/storage"
	"diceledger/internal/storage/memory"
	"diceledger/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainID, err := resolveChainID(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var (
		events    storage.EventStore
		summaries storage.SummaryStore
		health    func(context.Context) error
	)
	switch cfg.Store {
	case config.StoreMemory:
		events = memory.NewEventStore()
		summaries = memory.NewSummaryStore()
		logger.Warn("using in-memory store, events are not durable")
	case config.StorePostgres:
		if cfg.PGDSN == "" {
			logger.Warn("pg dsn not set, data endpoints will answer 503")
			break
		}
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.RunMigrations(ctx, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		events, summaries, health = store, store, store.Ping
	}

	var svc server.Ledger
	if events != nil {
		log := eventlog.New(events, eventlog.Config{
			ChainID:         chainID,
			ContractAddress: cfg.ContractAddress,
		}, logger)
		ledgerSvc := ledger.New(log, projector.New(summaries, logger), summaries, logger)

		if cfg.RedisAddr != "" {
			client, err := rediscache.New(ctx, rediscache.ClientConfig{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer client.Close()
			ledgerSvc.WithCache(rediscache.NewSummaryCache(client, cfg.SummaryCacheTTL))
			logger.Info("summary cache enabled", zap.String("redis_addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SummaryCacheTTL))
		}
		svc = ledgerSvc
	}

	srv := server.New(server.Config{
		Addr:        cfg.Listen,
		CORSOrigins: cfg.CORSOrigins,
		APIKey:      cfg.APIKey,
		HealthCheck: health,
	}, svc, logger)

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("chain_id", chainID),
		zap.String("contract_address", cfg.ContractAddress),
		zap.Int("cors_origins", len(cfg.CORSOrigins)),
		zap.Bool("api_key", cfg.APIKey != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// resolveChainID returns the configured chain id, or asks the RPC endpoint for it.
// When an RPC URL and contract address are both set, the contract must have code.
func resolveChainID(ctx context.Context, cfg config.ServeConfig, logger *zap.Logger) (uint64, error) {
	if cfg.RPCURL == "" {
		return cfg.ChainID, nil
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return 0, fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var chainID uint64
	err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		chainID, err = client.ChainID(ctx)
		if err != nil {
			logger.Warn("chain id fetch failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	if cfg.ChainID != 0 && cfg.ChainID != chainID {
		return 0, fmt.Errorf("configured chain id %d does not match rpc chain id %d", cfg.ChainID, chainID)
	}

	if cfg.ContractAddress != "" {
		var deployed bool
		err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			deployed, err = client.HasCode(ctx, cfg.ContractAddress)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("check contract code: %w", err)
		}
		if !deployed {
			return 0, fmt.Errorf("no contract deployed at %s on chain %d", cfg.ContractAddress, chainID)
		}
	}

	logger.Info("chain resolved", zap.Uint64("chain_id", chainID))
	return chainID, nil
}
