package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricegraph/internal/chain"
	"pricegraph/internal/config"
	"pricegraph/internal/pricing"
	"pricegraph/internal/processor"
	"pricegraph/internal/storage"
	"pricegraph/internal/storage/clickhouse"
	"pricegraph/internal/storage/postgres"
	"pricegraph/internal/store"
)

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.NativeToken == "" {
		return fmt.Errorf("native token address is required")
	}
	if cfg.AnchorPool == "" {
		return fmt.Errorf("anchor pool address is required")
	}

	minNativeLocked, err := decimal.NewFromString(cfg.MinNativeLocked)
	if err != nil {
		return fmt.Errorf("parse min-native-locked: %w", err)
	}

	policy, err := pricing.NewConfig(
		cfg.NativeToken,
		cfg.AnchorPool,
		cfg.StableIsToken0,
		minNativeLocked,
		cfg.WhitelistTokens,
		cfg.StableTokens,
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entities := store.NewMemory()

	var pg *postgres.Store
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		if err := loadSnapshot(ctx, pg, entities); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	}

	var sink storage.Sink
	switch {
	case cfg.CHDSN != "":
		chSink, err := clickhouse.NewSink(ctx, cfg.CHDSN)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer chSink.Close()
		sink = chSink
	case cfg.Out != "":
		sink = storage.NewJsonlSink(cfg.Out)
	}

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	var stateStore processor.StateStore
	switch {
	case cfg.StateFile != "":
		stateStore = &processor.FileStateStore{Path: cfg.StateFile}
	case pg != nil:
		stateStore = &processor.DBStateStore{Store: pg, Name: "oracle"}
	}

	proc := processor.NewProcessor(processor.Config{
		BatchSize:  cfg.BatchSize,
		StateStore: stateStore,
	}, policy, entities, pg, sink, chainClient, logger)

	logger.Info("process start",
		zap.String("in", cfg.Input),
		zap.String("native_token", cfg.NativeToken),
		zap.String("anchor_pool", cfg.AnchorPool),
		zap.Bool("stable_is_token0", cfg.StableIsToken0),
		zap.Int("whitelist", len(cfg.WhitelistTokens)),
		zap.Int("stables", len(cfg.StableTokens)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return proc.Run(ctx, cfg.Input)
}

func loadSnapshot(ctx context.Context, pg *postgres.Store, entities *store.Memory) error {
	tokens, err := pg.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	for _, token := range tokens {
		entities.PutToken(token)
	}

	pools, err := pg.LoadPools(ctx)
	if err != nil {
		return fmt.Errorf("load pools: %w", err)
	}
	for _, pool := range pools {
		entities.PutPool(pool)
	}

	bundle, err := pg.LoadBundle(ctx)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}
	entities.PutBundle(bundle)

	return nil
}
