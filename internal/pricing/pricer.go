package pricing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pricegraph/internal/model"
)

// EntityReader is the snapshot view the pricer reads. Token and Pool report
// absence explicitly; ingestion guarantees presence for every record a pool
// references, so a missing record only means the candidate is dropped.
type EntityReader interface {
	Token(address common.Address) (model.Token, bool)
	Pool(address common.Address) (model.Pool, bool)
	Bundle() model.Bundle
}

// Pricer computes derived prices and tracked amounts over an entity snapshot.
// It is a pure function of the store: it never writes, never errors, and
// degrades to zero values on unknowns.
type Pricer struct {
	cfg   Config
	store EntityReader
}

func NewPricer(cfg Config, store EntityReader) *Pricer {
	return &Pricer{cfg: cfg, store: store}
}

// NativePriceUSD returns the native asset's USD price read off the configured
// anchor pool, or zero when the pool is not known yet.
func (p *Pricer) NativePriceUSD() decimal.Decimal {
	pool, ok := p.store.Pool(p.cfg.AnchorPool)
	if !ok {
		return zero
	}
	if p.cfg.StableIsToken0 {
		return pool.Token0Price
	}
	return pool.Token1Price
}

// FindNativePerToken derives the token's price in native-asset units by
// scanning its candidate pools and taking the pool with the most native value
// locked on the opposite side.
//
// Neighbor derived prices are read as stored: the caller is expected to have
// refreshed them on a prior event. A stale or unset neighbor yields a stale
// or zero price, never a fault.
func (p *Pricer) FindNativePerToken(token model.Token) decimal.Decimal {
	if token.Address == p.cfg.NativeToken {
		return one
	}

	// Stable-pegged tokens bypass the pool scan: peg is ground truth, pool
	// rates for them can be skewed by thin liquidity.
	if p.cfg.IsStable(token.Address) {
		return SafeDiv(one, p.store.Bundle().NativePriceUSD)
	}

	largestNativeLocked := zero
	priceSoFar := zero

	for _, poolAddress := range token.WhitelistPools {
		pool, ok := p.store.Pool(poolAddress)
		if !ok || !pool.HasLiquidity() {
			continue
		}

		if pool.Token0 == token.Address {
			token1, ok := p.store.Token(pool.Token1)
			if !ok {
				continue
			}
			nativeLocked := pool.TVLToken1.Mul(token1.DerivedNative)
			if p.betterCandidate(nativeLocked, largestNativeLocked, pool.Token1) {
				largestNativeLocked = nativeLocked
				// token1 per our token * native per token1
				priceSoFar = pool.Token1Price.Mul(token1.DerivedNative)
			}
		}
		if pool.Token1 == token.Address {
			token0, ok := p.store.Token(pool.Token0)
			if !ok {
				continue
			}
			nativeLocked := pool.TVLToken0.Mul(token0.DerivedNative)
			if p.betterCandidate(nativeLocked, largestNativeLocked, pool.Token0) {
				largestNativeLocked = nativeLocked
				priceSoFar = pool.Token0Price.Mul(token0.DerivedNative)
			}
		}
	}

	return priceSoFar
}

// betterCandidate gates a candidate pool: it must beat the best native value
// seen so far, and either clear the minimum-locked floor or have a
// whitelisted counterparty, which is trusted regardless of locked value.
func (p *Pricer) betterCandidate(nativeLocked, largestSoFar decimal.Decimal, opposite common.Address) bool {
	if !nativeLocked.GreaterThan(largestSoFar) {
		return false
	}
	return nativeLocked.GreaterThan(p.cfg.MinimumNativeLocked) || p.cfg.IsWhitelisted(opposite)
}

// TrackedAmountUSD returns the USD value of the two legs attributable to
// whitelisted tokens: both whitelisted sums both legs, one whitelisted doubles
// that leg, neither yields zero.
func (p *Pricer) TrackedAmountUSD(amount0 decimal.Decimal, token0 model.Token, amount1 decimal.Decimal, token1 model.Token) decimal.Decimal {
	nativePrice := p.store.Bundle().NativePriceUSD
	price0USD := token0.DerivedNative.Mul(nativePrice)
	price1USD := token1.DerivedNative.Mul(nativePrice)

	wl0 := p.cfg.IsWhitelisted(token0.Address)
	wl1 := p.cfg.IsWhitelisted(token1.Address)

	switch {
	case wl0 && wl1:
		return amount0.Mul(price0USD).Add(amount1.Mul(price1USD))
	case wl0:
		return amount0.Mul(price0USD).Mul(two)
	case wl1:
		return amount1.Mul(price1USD).Mul(two)
	default:
		return zero
	}
}

// TrackedAmountNative applies the same whitelist rule in native-asset units.
func (p *Pricer) TrackedAmountNative(amount0 decimal.Decimal, token0 model.Token, amount1 decimal.Decimal, token1 model.Token) decimal.Decimal {
	wl0 := p.cfg.IsWhitelisted(token0.Address)
	wl1 := p.cfg.IsWhitelisted(token1.Address)

	switch {
	case wl0 && wl1:
		return amount0.Mul(token0.DerivedNative).Add(amount1.Mul(token1.DerivedNative))
	case wl0:
		return amount0.Mul(token0.DerivedNative).Mul(two)
	case wl1:
		return amount1.Mul(token1.DerivedNative).Mul(two)
	default:
		return zero
	}
}

// AdjustedAmounts returns both the whitelist-filtered tracked values and the
// unconditional untracked sums, in native and USD units.
func (p *Pricer) AdjustedAmounts(amount0 decimal.Decimal, token0 model.Token, amount1 decimal.Decimal, token1 model.Token) model.AdjustedAmounts {
	nativePrice := p.store.Bundle().NativePriceUSD

	native := p.TrackedAmountNative(amount0, token0, amount1, token1)
	nativeUntracked := amount0.Mul(token0.DerivedNative).Add(amount1.Mul(token1.DerivedNative))

	return model.AdjustedAmounts{
		Native:          native,
		USD:             native.Mul(nativePrice),
		NativeUntracked: nativeUntracked,
		USDUntracked:    nativeUntracked.Mul(nativePrice),
	}
}
