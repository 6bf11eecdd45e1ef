package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// .env is optional; real deployments use environment or flags.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "oracle",
		Short:        "Derived-price oracle for AMM pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Process typed pool events and maintain derived prices",
		RunE:  runProcess,
	}

	processCmd.Flags().String("in", "", "input typed events JSONL")
	processCmd.Flags().String("pg-dsn", "", "Postgres DSN for the entity snapshot")
	processCmd.Flags().String("ch-dsn", "", "ClickHouse DSN for attribution rows")
	processCmd.Flags().String("out", "", "optional attribution JSONL path")
	processCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	processCmd.Flags().Int("batch-size", 1000, "batch size for sink writes")
	processCmd.Flags().String("rpc", "", "optional RPC URL for token metadata on pool creation")
	processCmd.Flags().String("native-token", "", "native (wrapped) token address")
	processCmd.Flags().String("anchor-pool", "", "anchor native/stable pool address")
	processCmd.Flags().Bool("stable-is-token0", false, "whether the stable side of the anchor pool is token0")
	processCmd.Flags().String("min-native-locked", "1", "minimum native value locked for a derivation candidate")
	processCmd.Flags().StringSlice("whitelist", nil, "whitelisted token addresses (comma-separated)")
	processCmd.Flags().StringSlice("stables", nil, "stable-pegged token addresses (comma-separated)")
	processCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(processCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill-meta",
		Short: "Backfill missing token metadata via RPC",
		RunE:  runBackfill,
	}

	backfillCmd.Flags().String("rpc", "", "RPC URL")
	backfillCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	backfillCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(backfillCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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
