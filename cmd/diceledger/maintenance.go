package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diceledger/internal/config"
	"diceledger/internal/eventlog"
	"diceledger/internal/export"
	"diceledger/internal/ledger"
	"diceledger/internal/projector"
	"diceledger/internal/storage"
	"diceledger/internal/storage/postgres"
)

// maintenanceEnv is what every offline command needs: config, logger and an open store.
type maintenanceEnv struct {
	cfg    config.MaintenanceConfig
	logger *zap.Logger
	store  *postgres.Store
	ctx    context.Context
	close  func()
}

func openMaintenance(cmd *cobra.Command) (*maintenanceEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMaintenance(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		stop()
		_ = logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &maintenanceEnv{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ctx:    ctx,
		close: func() {
			store.Close()
			stop()
			_ = logger.Sync()
		},
	}, nil
}

func (e *maintenanceEnv) service() *ledger.Service {
	log := eventlog.New(e.store, eventlog.Config{}, e.logger)
	return ledger.New(log, projector.New(e.store, e.logger), e.store, e.logger)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	env, err := openMaintenance(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	env.logger.Info("migrate start", zap.String("pg_dsn", redactDSN(env.cfg.PGDSN)))
	return env.store.RunMigrations(env.ctx, env.logger)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	env, err := openMaintenance(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	env.logger.Info("rebuild start",
		zap.String("pg_dsn", redactDSN(env.cfg.PGDSN)),
		zap.Int("page_size", env.cfg.PageSize),
	)
	_, err = env.service().Rebuild(env.ctx, env.cfg.PageSize)
	return err
}

func runExport(cmd *cobra.Command, _ []string) error {
	env, err := openMaintenance(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	cfg := env.cfg
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if !cfg.Append && cfg.Checkpoint == "" {
		if err := os.Remove(cfg.Out); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reset output: %w", err)
		}
	}

	env.logger.Info("export start",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("out", cfg.Out),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Bool("append", cfg.Append),
		zap.Int("page_size", cfg.PageSize),
	)

	log := eventlog.New(env.store, eventlog.Config{}, env.logger)
	runner := export.NewRunner(export.RunConfig{
		PageSize:       cfg.PageSize,
		CheckpointPath: cfg.Checkpoint,
	}, log, storage.NewJsonlStorage(cfg.Out), env.logger)

	_, err = runner.Run(env.ctx)
	return err
}

func runLatest(cmd *cobra.Command, _ []string) error {
	env, err := openMaintenance(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	poolID, ok, err := env.service().GetLatestPoolID(env.ctx)
	if err != nil {
		return err
	}
	out := map[string]any{"poolId": nil}
	if ok {
		out["poolId"] = poolID
	}
	return printJSON(cmd, out)
}

func runSummary(cmd *cobra.Command, args []string) error {
	poolID, err := strconv.ParseUint(args[0], 10, 63)
	if err != nil {
		return fmt.Errorf("invalid pool id %q", args[0])
	}

	env, err := openMaintenance(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	summary, err := env.service().GetPoolSummary(env.ctx, poolID)
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
