package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pricegraph/internal/model"
)

// Store provides Postgres persistence for the entity snapshot.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertTokens inserts or updates token records.
func (s *Store) UpsertTokens(ctx context.Context, tokens []model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		whitelistPools := make([]string, 0, len(token.WhitelistPools))
		for _, pool := range token.WhitelistPools {
			whitelistPools = append(whitelistPools, pool.Hex())
		}
		batch.Queue(`
			INSERT INTO tokens (
				address, decimals, symbol, derived_native, whitelist_pools, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				decimals = EXCLUDED.decimals,
				symbol = EXCLUDED.symbol,
				derived_native = EXCLUDED.derived_native,
				whitelist_pools = EXCLUDED.whitelist_pools,
				updated_at = now()
		`,
			token.Address.Hex(),
			int16(token.Decimals),
			token.Symbol,
			token.DerivedNative.String(),
			whitelistPools,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPools inserts or updates pool records.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		liquidity := "0"
		if pool.Liquidity != nil {
			liquidity = pool.Liquidity.String()
		}
		batch.Queue(`
			INSERT INTO pools (
				address, token0, token1, fee_tier, liquidity,
				token0_price, token1_price, tvl_token0, tvl_token1, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				token0_price = EXCLUDED.token0_price,
				token1_price = EXCLUDED.token1_price,
				tvl_token0 = EXCLUDED.tvl_token0,
				tvl_token1 = EXCLUDED.tvl_token1,
				updated_at = now()
		`,
			pool.Address.Hex(),
			pool.Token0.Hex(),
			pool.Token1.Hex(),
			pool.FeeTier,
			liquidity,
			pool.Token0Price.String(),
			pool.Token1Price.String(),
			pool.TVLToken0.String(),
			pool.TVLToken1.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertBundle writes the singleton bundle record.
func (s *Store) UpsertBundle(ctx context.Context, bundle model.Bundle) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bundle (id, native_price_usd, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET native_price_usd = EXCLUDED.native_price_usd, updated_at = now()
	`, model.BundleID, bundle.NativePriceUSD.String())
	return err
}

// LoadTokens reads all token records.
func (s *Store) LoadTokens(ctx context.Context) ([]model.Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, decimals, symbol, derived_native, whitelist_pools FROM tokens
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var (
			address        string
			decimals       int16
			symbol         string
			derivedNative  string
			whitelistPools []string
		)
		if err := rows.Scan(&address, &decimals, &symbol, &derivedNative, &whitelistPools); err != nil {
			return nil, err
		}
		derived, err := decimal.NewFromString(derivedNative)
		if err != nil {
			return nil, fmt.Errorf("parse derived_native for %s: %w", address, err)
		}
		pools := make([]common.Address, 0, len(whitelistPools))
		for _, pool := range whitelistPools {
			pools = append(pools, common.HexToAddress(pool))
		}
		tokens = append(tokens, model.Token{
			Address:        common.HexToAddress(address),
			Decimals:       uint8(decimals),
			Symbol:         symbol,
			DerivedNative:  derived,
			WhitelistPools: pools,
		})
	}
	return tokens, rows.Err()
}

// LoadPools reads all pool records.
func (s *Store) LoadPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, token0, token1, fee_tier, liquidity,
			token0_price, token1_price, tvl_token0, tvl_token1
		FROM pools
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var address, token0, token1, liquidity string
		var token0Price, token1Price, tvlToken0, tvlToken1 string
		var feeTier uint32
		if err := rows.Scan(&address, &token0, &token1, &feeTier, &liquidity,
			&token0Price, &token1Price, &tvlToken0, &tvlToken1); err != nil {
			return nil, err
		}

		pool := model.Pool{
			Address: common.HexToAddress(address),
			Token0:  common.HexToAddress(token0),
			Token1:  common.HexToAddress(token1),
			FeeTier: feeTier,
		}
		liq, ok := new(big.Int).SetString(liquidity, 10)
		if !ok {
			return nil, fmt.Errorf("parse liquidity for %s: %s", address, liquidity)
		}
		pool.Liquidity = liq

		for _, field := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&pool.Token0Price, token0Price},
			{&pool.Token1Price, token1Price},
			{&pool.TVLToken0, tvlToken0},
			{&pool.TVLToken1, tvlToken1},
		} {
			value, err := decimal.NewFromString(field.src)
			if err != nil {
				return nil, fmt.Errorf("parse pool decimal for %s: %w", address, err)
			}
			*field.dst = value
		}

		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

// LoadBundle reads the singleton bundle record. Absence yields a zero bundle.
func (s *Store) LoadBundle(ctx context.Context) (model.Bundle, error) {
	var nativePriceUSD string
	row := s.pool.QueryRow(ctx, `SELECT native_price_usd FROM bundle WHERE id=$1`, model.BundleID)
	if err := row.Scan(&nativePriceUSD); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Bundle{}, nil
		}
		return model.Bundle{}, err
	}
	price, err := decimal.NewFromString(nativePriceUSD)
	if err != nil {
		return model.Bundle{}, fmt.Errorf("parse native_price_usd: %w", err)
	}
	return model.Bundle{NativePriceUSD: price}, nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM oracle_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oracle_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
