package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pool is a V3 pool with its live price and reserve state.
// Token0Price is the amount of token0 equal in value to one token1,
// Token1Price the reverse. TVLToken0/TVLToken1 are per-side reserves in each
// token's own units.
type Pool struct {
	Address     common.Address  `json:"address"`
	Token0      common.Address  `json:"token0"`
	Token1      common.Address  `json:"token1"`
	FeeTier     uint32          `json:"fee_tier"`
	Liquidity   *big.Int        `json:"liquidity"`
	Token0Price decimal.Decimal `json:"token0_price"`
	Token1Price decimal.Decimal `json:"token1_price"`
	TVLToken0   decimal.Decimal `json:"tvl_token0"`
	TVLToken1   decimal.Decimal `json:"tvl_token1"`
}

// HasLiquidity reports whether the pool holds any in-range liquidity.
func (p Pool) HasLiquidity() bool {
	return p.Liquidity != nil && p.Liquidity.Sign() > 0
}
