package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricegraph/internal/chain"
	"pricegraph/internal/config"
	"pricegraph/internal/model"
	"pricegraph/internal/storage/postgres"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBackfill(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("fetch chain id: %w", err)
	}
	logger.Info("backfill start",
		zap.String("chain_id", chainID.String()),
		zap.String("rpc", cfg.RPCURL),
	)

	tokens, err := pg.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	updated := make([]model.Token, 0)
	for _, token := range tokens {
		if token.Decimals != 0 && token.Symbol != "" {
			continue
		}
		meta, err := chain.FetchTokenMetadata(ctx, chainClient, token.Address, logger)
		if err != nil {
			logger.Warn("fetch token metadata",
				zap.String("token", token.Address.Hex()),
				zap.Error(err),
			)
			continue
		}
		token.Decimals = meta.Decimals
		token.Symbol = meta.Symbol
		updated = append(updated, token)
	}

	if err := pg.UpsertTokens(ctx, updated); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}

	logger.Info("backfill complete",
		zap.Int("total", len(tokens)),
		zap.Int("updated", len(updated)),
	)

	return nil
}
