package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "diceledger",
		Short:        "DiceMania pool event ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the event and pool HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("store", "postgres", "storage backend (postgres, memory)")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().Int32("pg-max-conns", 10, "maximum Postgres connections")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the summary cache (empty disables it)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("summary-cache-ttl", 5*time.Second, "summary cache TTL")
	serveCmd.Flags().Uint64("chain-id", 0, "chain id stamped on events (0 resolves it from --rpc)")
	serveCmd.Flags().String("contract-address", "", "DiceMania contract address")
	serveCmd.Flags().String("rpc", "", "EVM RPC URL used to resolve the chain id and check the contract")
	serveCmd.Flags().Int("rpc-max-retries", 5, "maximum RPC retry attempts")
	serveCmd.Flags().Duration("rpc-retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	serveCmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated, empty allows all)")
	serveCmd.Flags().String("api-key", "", "API key required on write endpoints")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	}
	addMaintenanceFlags(migrateCmd)
	root.AddCommand(migrateCmd)

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild pool summaries by replaying the event log",
		RunE:  runRebuild,
	}
	addMaintenanceFlags(rebuildCmd)
	rebuildCmd.Flags().Int("page-size", 500, "events per replay page")
	root.AddCommand(rebuildCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the event log to JSONL",
		RunE:  runExport,
	}
	addMaintenanceFlags(exportCmd)
	exportCmd.Flags().String("out", "./data/events.jsonl", "output JSONL path")
	exportCmd.Flags().String("checkpoint", "", "checkpoint file for incremental export (empty exports everything)")
	exportCmd.Flags().Bool("append", false, "append to an existing output file")
	exportCmd.Flags().Int("page-size", 500, "events per replay page")
	root.AddCommand(exportCmd)

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the latest pool id",
		RunE:  runLatest,
	}
	addMaintenanceFlags(latestCmd)
	root.AddCommand(latestCmd)

	summaryCmd := &cobra.Command{
		Use:   "summary <poolId>",
		Short: "Print a pool summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummary,
	}
	addMaintenanceFlags(summaryCmd)
	root.AddCommand(summaryCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addMaintenanceFlags(cmd *cobra.Command) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Int32("pg-max-conns", 4, "maximum Postgres connections")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// redactDSN hides credentials in DSNs before logging.
func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
