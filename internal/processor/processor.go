package processor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricegraph/internal/chain"
	"pricegraph/internal/model"
	"pricegraph/internal/pricing"
	"pricegraph/internal/storage"
	"pricegraph/internal/storage/postgres"
	"pricegraph/internal/store"
)

// Config controls processing behavior.
type Config struct {
	BatchSize  int
	StateStore StateStore
}

// Processor applies typed pool events to the entity snapshot, keeping pool
// prices, the bundle, and token derived prices current, and emitting
// per-event attribution rows.
//
// Events must arrive in ledger order: a token's derived price is refreshed on
// the event that touches it, and later events read that stored value.
type Processor struct {
	cfg      Config
	policy   pricing.Config
	entities *store.Memory
	pricer   *pricing.Pricer
	pg       *postgres.Store
	sink     storage.Sink
	chain    *chain.Client
	logger   *zap.Logger

	dirtyTokens map[common.Address]struct{}
	dirtyPools  map[common.Address]struct{}
}

// NewProcessor builds a processor. pg, sink, and chainClient are optional:
// without pg nothing is written back, without sink attribution rows are
// dropped, without chainClient unknown tokens cannot be materialized.
func NewProcessor(cfg Config, policy pricing.Config, entities *store.Memory, pg *postgres.Store, sink storage.Sink, chainClient *chain.Client, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		cfg:         cfg,
		policy:      policy,
		entities:    entities,
		pricer:      pricing.NewPricer(policy, entities),
		pg:          pg,
		sink:        sink,
		chain:       chainClient,
		logger:      logger,
		dirtyTokens: make(map[common.Address]struct{}),
		dirtyPools:  make(map[common.Address]struct{}),
	}
}

// Run processes a typed events JSONL file in order.
func (p *Processor) Run(ctx context.Context, inputPath string) error {
	if p.entities == nil {
		return fmt.Errorf("entity store is nil")
	}
	if p.cfg.BatchSize <= 0 {
		p.cfg.BatchSize = 1000
	}

	startTs, err := p.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	rows := make([]model.Attribution, 0, p.cfg.BatchSize)
	maxTs := startTs
	var total, applied, skipped, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var event model.Event
		if err := json.Unmarshal(line, &event); err != nil {
			failed++
			p.logger.Warn("decode event", zap.Error(err))
			continue
		}

		if event.Timestamp <= startTs {
			skipped++
			continue
		}

		row, err := p.apply(ctx, event)
		if err != nil {
			failed++
			p.logger.Warn("apply event",
				zap.Error(err),
				zap.String("pool", event.Address),
				zap.String("event", event.EventName),
			)
			continue
		}
		applied++

		if row != nil {
			rows = append(rows, *row)
		}
		if event.Timestamp > maxTs {
			maxTs = event.Timestamp
		}

		if len(rows) >= p.cfg.BatchSize {
			if err := p.flush(ctx, rows); err != nil {
				return err
			}
			rows = rows[:0]

			if err := p.saveState(ctx, maxTs); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := p.flush(ctx, rows); err != nil {
		return err
	}
	if err := p.saveState(ctx, maxTs); err != nil {
		return err
	}

	p.logger.Info("process complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (p *Processor) apply(ctx context.Context, event model.Event) (*model.Attribution, error) {
	if !common.IsHexAddress(event.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", event.Address)
	}
	poolAddress := common.HexToAddress(event.Address)

	switch strings.ToLower(event.EventName) {
	case "pool_created":
		return nil, p.applyPoolCreated(ctx, poolAddress, event)
	case "swap":
		return p.applySwap(poolAddress, event)
	case "mint":
		return p.applyMint(poolAddress, event)
	case "burn":
		return p.applyBurn(poolAddress, event)
	default:
		return nil, nil
	}
}

func (p *Processor) applyPoolCreated(ctx context.Context, poolAddress common.Address, event model.Event) error {
	var data model.PoolCreatedEventData
	if err := json.Unmarshal(event.Decoded, &data); err != nil {
		return fmt.Errorf("decode pool_created: %w", err)
	}
	if !common.IsHexAddress(data.Token0) || !common.IsHexAddress(data.Token1) {
		return fmt.Errorf("invalid token address in pool_created")
	}

	token0, err := p.ensureToken(ctx, common.HexToAddress(data.Token0))
	if err != nil {
		return err
	}
	token1, err := p.ensureToken(ctx, common.HexToAddress(data.Token1))
	if err != nil {
		return err
	}

	// A pool anchored by a whitelisted token becomes a price-derivation
	// candidate for the opposite token.
	if p.policy.IsWhitelisted(token0.Address) {
		token1.WhitelistPools = append(token1.WhitelistPools, poolAddress)
		p.putToken(token1)
	}
	if p.policy.IsWhitelisted(token1.Address) {
		token0.WhitelistPools = append(token0.WhitelistPools, poolAddress)
		p.putToken(token0)
	}

	p.putPool(model.Pool{
		Address:   poolAddress,
		Token0:    token0.Address,
		Token1:    token1.Address,
		FeeTier:   data.FeeTier,
		Liquidity: big.NewInt(0),
	})
	return nil
}

func (p *Processor) applySwap(poolAddress common.Address, event model.Event) (*model.Attribution, error) {
	var data model.SwapEventData
	if err := json.Unmarshal(event.Decoded, &data); err != nil {
		return nil, fmt.Errorf("decode swap: %w", err)
	}

	pool, token0, token1, err := p.loadPoolTokens(poolAddress)
	if err != nil {
		return nil, err
	}

	amount0Raw, err := parseBigInt(data.Amount0)
	if err != nil {
		return nil, err
	}
	amount1Raw, err := parseBigInt(data.Amount1)
	if err != nil {
		return nil, err
	}
	sqrtPrice, err := parseBigInt(data.SqrtPriceX96)
	if err != nil {
		return nil, err
	}
	liquidity, err := parseBigInt(data.Liquidity)
	if err != nil {
		return nil, err
	}

	amount0 := rawToDecimal(amount0Raw, token0.Decimals)
	amount1 := rawToDecimal(amount1Raw, token1.Decimals)

	pool.Liquidity = liquidity
	pool.Token0Price, pool.Token1Price = pricing.SqrtPriceX96ToTokenPrices(sqrtPrice, token0, token1)
	pool.TVLToken0 = pool.TVLToken0.Add(amount0)
	pool.TVLToken1 = pool.TVLToken1.Add(amount1)
	p.putPool(pool)

	token0, token1 = p.refreshPrices(token0, token1)

	amounts := p.pricer.AdjustedAmounts(amount0.Abs(), token0, amount1.Abs(), token1)
	return p.attribution(poolAddress, event, amounts), nil
}

func (p *Processor) applyMint(poolAddress common.Address, event model.Event) (*model.Attribution, error) {
	var data model.MintEventData
	if err := json.Unmarshal(event.Decoded, &data); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	return p.applyLiquidityChange(poolAddress, event, data.Amount0, data.Amount1, false)
}

func (p *Processor) applyBurn(poolAddress common.Address, event model.Event) (*model.Attribution, error) {
	var data model.BurnEventData
	if err := json.Unmarshal(event.Decoded, &data); err != nil {
		return nil, fmt.Errorf("decode burn: %w", err)
	}
	return p.applyLiquidityChange(poolAddress, event, data.Amount0, data.Amount1, true)
}

func (p *Processor) applyLiquidityChange(poolAddress common.Address, event model.Event, amount0Str, amount1Str string, withdraw bool) (*model.Attribution, error) {
	pool, token0, token1, err := p.loadPoolTokens(poolAddress)
	if err != nil {
		return nil, err
	}

	amount0Raw, err := parseBigInt(amount0Str)
	if err != nil {
		return nil, err
	}
	amount1Raw, err := parseBigInt(amount1Str)
	if err != nil {
		return nil, err
	}

	amount0 := rawToDecimal(amount0Raw, token0.Decimals)
	amount1 := rawToDecimal(amount1Raw, token1.Decimals)

	if withdraw {
		pool.TVLToken0 = pool.TVLToken0.Sub(amount0)
		pool.TVLToken1 = pool.TVLToken1.Sub(amount1)
	} else {
		pool.TVLToken0 = pool.TVLToken0.Add(amount0)
		pool.TVLToken1 = pool.TVLToken1.Add(amount1)
	}
	p.putPool(pool)

	token0, token1 = p.refreshPrices(token0, token1)

	amounts := p.pricer.AdjustedAmounts(amount0, token0, amount1, token1)
	return p.attribution(poolAddress, event, amounts), nil
}

// refreshPrices re-resolves the bundle from the anchor pool, then both
// tokens' derived prices against the updated snapshot. The bundle goes first
// so stable-pegged tokens see the fresh USD price.
func (p *Processor) refreshPrices(token0, token1 model.Token) (model.Token, model.Token) {
	p.entities.PutBundle(model.Bundle{NativePriceUSD: p.pricer.NativePriceUSD()})

	token0.DerivedNative = p.pricer.FindNativePerToken(token0)
	p.putToken(token0)
	token1.DerivedNative = p.pricer.FindNativePerToken(token1)
	p.putToken(token1)
	return token0, token1
}

func (p *Processor) loadPoolTokens(poolAddress common.Address) (model.Pool, model.Token, model.Token, error) {
	pool, ok := p.entities.Pool(poolAddress)
	if !ok {
		return model.Pool{}, model.Token{}, model.Token{}, fmt.Errorf("unknown pool %s", poolAddress.Hex())
	}
	token0, ok := p.entities.Token(pool.Token0)
	if !ok {
		return model.Pool{}, model.Token{}, model.Token{}, fmt.Errorf("unknown token %s", pool.Token0.Hex())
	}
	token1, ok := p.entities.Token(pool.Token1)
	if !ok {
		return model.Pool{}, model.Token{}, model.Token{}, fmt.Errorf("unknown token %s", pool.Token1.Hex())
	}
	return pool, token0, token1, nil
}

func (p *Processor) ensureToken(ctx context.Context, address common.Address) (model.Token, error) {
	if token, ok := p.entities.Token(address); ok {
		return token, nil
	}
	if p.chain == nil {
		return model.Token{}, fmt.Errorf("unknown token %s and no chain client", address.Hex())
	}
	meta, err := chain.FetchTokenMetadata(ctx, p.chain, address, p.logger)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token metadata: %w", err)
	}
	token := model.Token{
		Address:  address,
		Decimals: meta.Decimals,
		Symbol:   meta.Symbol,
	}
	p.putToken(token)
	return token, nil
}

func (p *Processor) attribution(poolAddress common.Address, event model.Event, amounts model.AdjustedAmounts) *model.Attribution {
	return &model.Attribution{
		PoolAddress: poolAddress.Hex(),
		TxHash:      event.TxHash,
		LogIndex:    event.LogIndex,
		Timestamp:   event.Timestamp,
		EventName:   strings.ToLower(event.EventName),
		Amounts:     amounts,
	}
}

func (p *Processor) putToken(token model.Token) {
	p.entities.PutToken(token)
	p.dirtyTokens[token.Address] = struct{}{}
}

func (p *Processor) putPool(pool model.Pool) {
	p.entities.PutPool(pool)
	p.dirtyPools[pool.Address] = struct{}{}
}

func (p *Processor) flush(ctx context.Context, rows []model.Attribution) error {
	if p.sink != nil && len(rows) > 0 {
		if err := p.sink.PutAttributionBatch(ctx, rows); err != nil {
			return fmt.Errorf("flush attributions: %w", err)
		}
	}

	if p.pg == nil {
		p.dirtyTokens = make(map[common.Address]struct{})
		p.dirtyPools = make(map[common.Address]struct{})
		return nil
	}

	tokens := make([]model.Token, 0, len(p.dirtyTokens))
	for address := range p.dirtyTokens {
		if token, ok := p.entities.Token(address); ok {
			tokens = append(tokens, token)
		}
	}
	pools := make([]model.Pool, 0, len(p.dirtyPools))
	for address := range p.dirtyPools {
		if pool, ok := p.entities.Pool(address); ok {
			pools = append(pools, pool)
		}
	}

	if err := p.pg.UpsertTokens(ctx, tokens); err != nil {
		return fmt.Errorf("flush tokens: %w", err)
	}
	if err := p.pg.UpsertPools(ctx, pools); err != nil {
		return fmt.Errorf("flush pools: %w", err)
	}
	if err := p.pg.UpsertBundle(ctx, p.entities.Bundle()); err != nil {
		return fmt.Errorf("flush bundle: %w", err)
	}

	p.dirtyTokens = make(map[common.Address]struct{})
	p.dirtyPools = make(map[common.Address]struct{})
	return nil
}

func (p *Processor) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if p.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := p.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (p *Processor) saveState(ctx context.Context, ts uint64) error {
	if p.cfg.StateStore == nil {
		return nil
	}
	return p.cfg.StateStore.Save(ctx, ts)
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func rawToDecimal(value *big.Int, decimals uint8) decimal.Decimal {
	return pricing.SafeDiv(decimal.NewFromBigInt(value, 0), pricing.ExponentToBigDecimal(decimals))
}
