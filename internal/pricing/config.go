package pricing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config holds the static pricing policy: the native asset, the anchor pool
// bootstrapping its USD price, and the token sets trusted as price anchors.
// Built once at process start and shared by every call.
type Config struct {
	NativeToken         common.Address
	AnchorPool          common.Address
	StableIsToken0      bool
	MinimumNativeLocked decimal.Decimal

	whitelist map[common.Address]struct{}
	stables   map[common.Address]struct{}
}

// NewConfig validates the addresses and builds the immutable token sets.
func NewConfig(nativeToken, anchorPool string, stableIsToken0 bool, minimumNativeLocked decimal.Decimal, whitelist, stables []string) (Config, error) {
	native, err := parseAddress(nativeToken, "native token")
	if err != nil {
		return Config{}, err
	}
	anchor, err := parseAddress(anchorPool, "anchor pool")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		NativeToken:         native,
		AnchorPool:          anchor,
		StableIsToken0:      stableIsToken0,
		MinimumNativeLocked: minimumNativeLocked,
		whitelist:           make(map[common.Address]struct{}, len(whitelist)),
		stables:             make(map[common.Address]struct{}, len(stables)),
	}

	for _, addr := range whitelist {
		parsed, err := parseAddress(addr, "whitelist token")
		if err != nil {
			return Config{}, err
		}
		cfg.whitelist[parsed] = struct{}{}
	}
	for _, addr := range stables {
		parsed, err := parseAddress(addr, "stable token")
		if err != nil {
			return Config{}, err
		}
		cfg.stables[parsed] = struct{}{}
	}

	return cfg, nil
}

// IsWhitelisted reports whether the token is a trusted price anchor.
func (c Config) IsWhitelisted(token common.Address) bool {
	_, ok := c.whitelist[token]
	return ok
}

// IsStable reports whether the token is treated as USD-pegged.
func (c Config) IsStable(token common.Address) bool {
	_, ok := c.stables[token]
	return ok
}

func parseAddress(input, kind string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", kind, input)
	}
	return common.HexToAddress(input), nil
}
