package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token is a tracked ERC20 token with its derived price state.
// DerivedNative is the token price expressed in native-asset units; it is
// recomputed by the pricer and written back by the caller.
// WhitelistPools is the precomputed set of candidate anchor pools the token
// participates in, maintained by ingestion.
type Token struct {
	Address        common.Address   `json:"address"`
	Decimals       uint8            `json:"decimals"`
	Symbol         string           `json:"symbol"`
	DerivedNative  decimal.Decimal  `json:"derived_native"`
	WhitelistPools []common.Address `json:"whitelist_pools"`
}
