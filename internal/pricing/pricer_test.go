package pricing

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pricegraph/internal/model"
	"pricegraph/internal/store"
)

var (
	nativeAddr  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stableAddr  = common.HexToAddress("0x1000000000000000000000000000000000000002")
	anchorAddr  = common.HexToAddress("0x2000000000000000000000000000000000000001")
	tokenXAddr  = common.HexToAddress("0x1000000000000000000000000000000000000003")
	tokenAAddr  = common.HexToAddress("0x1000000000000000000000000000000000000004")
	tokenBAddr  = common.HexToAddress("0x1000000000000000000000000000000000000005")
	poolXA      = common.HexToAddress("0x2000000000000000000000000000000000000002")
	poolXB      = common.HexToAddress("0x2000000000000000000000000000000000000003")
)

func testConfig(t *testing.T, minLocked string) Config {
	t.Helper()
	cfg, err := NewConfig(
		nativeAddr.Hex(),
		anchorAddr.Hex(),
		true,
		decimal.RequireFromString(minLocked),
		[]string{nativeAddr.Hex(), stableAddr.Hex(), tokenBAddr.Hex()},
		[]string{stableAddr.Hex()},
	)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func seedAnchor(entities *store.Memory, nativePriceUSD string) {
	entities.PutPool(model.Pool{
		Address:     anchorAddr,
		Token0:      stableAddr,
		Token1:      nativeAddr,
		Liquidity:   big.NewInt(1),
		Token0Price: decimal.RequireFromString(nativePriceUSD),
		Token1Price: SafeDiv(one, decimal.RequireFromString(nativePriceUSD)),
	})
	entities.PutBundle(model.Bundle{NativePriceUSD: decimal.RequireFromString(nativePriceUSD)})
}

func TestNativePriceUSDFromAnchorPool(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")

	pricer := NewPricer(testConfig(t, "1"), entities)
	if got := pricer.NativePriceUSD(); !got.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("native price = %s, want 2000", got)
	}
}

func TestNativePriceUSDStableSideFlag(t *testing.T) {
	entities := store.NewMemory()
	entities.PutPool(model.Pool{
		Address:     anchorAddr,
		Token0:      nativeAddr,
		Token1:      stableAddr,
		Liquidity:   big.NewInt(1),
		Token0Price: decimal.RequireFromString("0.0005"),
		Token1Price: decimal.RequireFromString("2000"),
	})

	cfg, err := NewConfig(nativeAddr.Hex(), anchorAddr.Hex(), false,
		decimal.New(1, 0), nil, nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	pricer := NewPricer(cfg, entities)
	if got := pricer.NativePriceUSD(); !got.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("native price = %s, want 2000 from token1 side", got)
	}
}

func TestNativePriceUSDAnchorAbsent(t *testing.T) {
	pricer := NewPricer(testConfig(t, "1"), store.NewMemory())
	if got := pricer.NativePriceUSD(); !got.IsZero() {
		t.Fatalf("native price = %s, want 0 when anchor pool is missing", got)
	}
}

func TestFindNativePerTokenNativeAsset(t *testing.T) {
	// The native asset is 1 by definition, regardless of pool state.
	pricer := NewPricer(testConfig(t, "1"), store.NewMemory())
	token := model.Token{Address: nativeAddr, Decimals: 18}

	if got := pricer.FindNativePerToken(token); !got.Equal(one) {
		t.Fatalf("derived native = %s, want 1", got)
	}
}

func TestFindNativePerTokenStable(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")

	pricer := NewPricer(testConfig(t, "1"), entities)
	token := model.Token{Address: stableAddr, Decimals: 6}

	want := decimal.RequireFromString("0.0005")
	if got := pricer.FindNativePerToken(token); !got.Equal(want) {
		t.Fatalf("derived native = %s, want %s", got, want)
	}
}

func TestFindNativePerTokenStableWithUnknownUSDPrice(t *testing.T) {
	// Anchor never observed: the USD price is zero and the peg inversion
	// degrades to zero instead of failing.
	pricer := NewPricer(testConfig(t, "1"), store.NewMemory())
	token := model.Token{Address: stableAddr, Decimals: 6}

	if got := pricer.FindNativePerToken(token); !got.IsZero() {
		t.Fatalf("derived native = %s, want 0", got)
	}
}

func TestFindNativePerTokenNoCandidatePools(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")

	pricer := NewPricer(testConfig(t, "1"), entities)
	token := model.Token{Address: tokenXAddr, Decimals: 18}

	if got := pricer.FindNativePerToken(token); !got.IsZero() {
		t.Fatalf("derived native = %s, want 0 for empty pool list", got)
	}
}

func TestFindNativePerTokenZeroLiquiditySkipped(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")
	entities.PutToken(model.Token{
		Address:       nativeAddr,
		Decimals:      18,
		DerivedNative: one,
	})
	entities.PutPool(model.Pool{
		Address:     poolXA,
		Token0:      tokenXAddr,
		Token1:      nativeAddr,
		Liquidity:   big.NewInt(0),
		Token1Price: decimal.RequireFromString("0.25"),
		TVLToken1:   decimal.RequireFromString("100"),
	})

	pricer := NewPricer(testConfig(t, "1"), entities)
	token := model.Token{
		Address:        tokenXAddr,
		Decimals:       18,
		WhitelistPools: []common.Address{poolXA},
	}

	if got := pricer.FindNativePerToken(token); !got.IsZero() {
		t.Fatalf("derived native = %s, want 0 when all pools are empty", got)
	}
}

func TestFindNativePerTokenBestPoolWins(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")
	entities.PutToken(model.Token{Address: nativeAddr, Decimals: 18, DerivedNative: one})
	entities.PutToken(model.Token{
		Address:       tokenAAddr,
		Decimals:      18,
		DerivedNative: decimal.RequireFromString("0.5"),
	})

	// Pool against the native asset: 10 native locked, price 0.25.
	entities.PutPool(model.Pool{
		Address:     poolXA,
		Token0:      tokenXAddr,
		Token1:      nativeAddr,
		Liquidity:   big.NewInt(1),
		Token1Price: decimal.RequireFromString("0.25"),
		TVLToken1:   decimal.RequireFromString("10"),
	})
	// Pool against token A: 4 native locked (8 * 0.5), price composition
	// 0.8 * 0.5 = 0.4.
	entities.PutPool(model.Pool{
		Address:     poolXB,
		Token0:      tokenAAddr,
		Token1:      tokenXAddr,
		Liquidity:   big.NewInt(1),
		Token0Price: decimal.RequireFromString("0.8"),
		TVLToken0:   decimal.RequireFromString("8"),
	})

	pricer := NewPricer(testConfig(t, "1"), entities)
	token := model.Token{
		Address:        tokenXAddr,
		Decimals:       18,
		WhitelistPools: []common.Address{poolXA, poolXB},
	}

	// The native pool holds more locked value and wins.
	if got := pricer.FindNativePerToken(token); !got.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("derived native = %s, want 0.25 from deepest pool", got)
	}
}

func TestFindNativePerTokenWhitelistedCounterpartyBelowFloor(t *testing.T) {
	entities := store.NewMemory()
	seedAnchor(entities, "2000")
	entities.PutToken(model.Token{
		Address:       tokenAAddr,
		Decimals:      18,
		DerivedNative: decimal.RequireFromString("0.1"),
	})
	entities.PutToken(model.Token{
		Address:       tokenBAddr,
		Decimals:      18,
		DerivedNative: one,
	})

	// 0.5 native locked against a non-whitelisted counterparty: below the
	// floor, never eligible.
	entities.PutPool(model.Pool{
		Address:     poolXA,
		Token0:      tokenXAddr,
		Token1:      tokenAAddr,
		Liquidity:   big.NewInt(1),
		Token1Price: decimal.RequireFromString("3"),
		TVLToken1:   decimal.RequireFromString("5"),
	})
	// 2 native locked against a whitelisted counterparty: still below the
	// floor, but the whitelist waives it.
	entities.PutPool(model.Pool{
		Address:     poolXB,
		Token0:      tokenXAddr,
		Token1:      tokenBAddr,
		Liquidity:   big.NewInt(1),
		Token1Price: decimal.RequireFromString("0.05"),
		TVLToken1:   decimal.RequireFromString("2"),
	})

	pricer := NewPricer(testConfig(t, "5"), entities)
	token := model.Token{
		Address:        tokenXAddr,
		Decimals:       18,
		WhitelistPools: []common.Address{poolXA, poolXB},
	}

	want := decimal.RequireFromString("0.05")
	if got := pricer.FindNativePerToken(token); !got.Equal(want) {
		t.Fatalf("derived native = %s, want %s via whitelisted counterparty", got, want)
	}
}

func trackedFixture(t *testing.T) (*Pricer, model.Token, model.Token) {
	t.Helper()
	entities := store.NewMemory()
	entities.PutBundle(model.Bundle{NativePriceUSD: decimal.RequireFromString("100")})

	// token B is whitelisted, token X is not.
	whitelisted := model.Token{
		Address:       tokenBAddr,
		Decimals:      18,
		DerivedNative: decimal.RequireFromString("2"),
	}
	unlisted := model.Token{
		Address:       tokenXAddr,
		Decimals:      18,
		DerivedNative: decimal.RequireFromString("3"),
	}
	return NewPricer(testConfig(t, "1"), entities), whitelisted, unlisted
}

func TestTrackedAmountBothWhitelisted(t *testing.T) {
	entities := store.NewMemory()
	entities.PutBundle(model.Bundle{NativePriceUSD: decimal.RequireFromString("100")})
	pricer := NewPricer(testConfig(t, "1"), entities)

	token0 := model.Token{Address: tokenBAddr, DerivedNative: decimal.RequireFromString("2")}
	token1 := model.Token{Address: stableAddr, DerivedNative: decimal.RequireFromString("0.01")}

	amount0 := decimal.RequireFromString("10")
	amount1 := decimal.RequireFromString("5")

	// 10*2 + 5*0.01 = 20.05
	wantNative := decimal.RequireFromString("20.05")
	if got := pricer.TrackedAmountNative(amount0, token0, amount1, token1); !got.Equal(wantNative) {
		t.Fatalf("tracked native = %s, want %s", got, wantNative)
	}

	wantUSD := decimal.RequireFromString("2005")
	if got := pricer.TrackedAmountUSD(amount0, token0, amount1, token1); !got.Equal(wantUSD) {
		t.Fatalf("tracked usd = %s, want %s", got, wantUSD)
	}
}

func TestTrackedAmountOneWhitelisted(t *testing.T) {
	pricer, whitelisted, unlisted := trackedFixture(t)

	amountWl := decimal.RequireFromString("10")
	amountUn := decimal.RequireFromString("5")

	// Only the whitelisted leg counts, doubled: 10*2*2 = 40.
	wantNative := decimal.RequireFromString("40")
	if got := pricer.TrackedAmountNative(amountWl, whitelisted, amountUn, unlisted); !got.Equal(wantNative) {
		t.Fatalf("tracked native = %s, want %s", got, wantNative)
	}
	// Same with the whitelisted token on the other side.
	if got := pricer.TrackedAmountNative(amountUn, unlisted, amountWl, whitelisted); !got.Equal(wantNative) {
		t.Fatalf("tracked native (swapped) = %s, want %s", got, wantNative)
	}

	wantUSD := decimal.RequireFromString("4000")
	if got := pricer.TrackedAmountUSD(amountWl, whitelisted, amountUn, unlisted); !got.Equal(wantUSD) {
		t.Fatalf("tracked usd = %s, want %s", got, wantUSD)
	}
}

func TestTrackedAmountNeitherWhitelisted(t *testing.T) {
	pricer, _, unlisted := trackedFixture(t)

	other := model.Token{Address: tokenAAddr, DerivedNative: decimal.RequireFromString("7")}
	amount := decimal.RequireFromString("10")

	if got := pricer.TrackedAmountNative(amount, unlisted, amount, other); !got.IsZero() {
		t.Fatalf("tracked native = %s, want 0", got)
	}
	if got := pricer.TrackedAmountUSD(amount, unlisted, amount, other); !got.IsZero() {
		t.Fatalf("tracked usd = %s, want 0", got)
	}
}

func TestAdjustedAmounts(t *testing.T) {
	pricer, whitelisted, unlisted := trackedFixture(t)

	amountWl := decimal.RequireFromString("10")
	amountUn := decimal.RequireFromString("5")

	got := pricer.AdjustedAmounts(amountWl, whitelisted, amountUn, unlisted)

	if want := decimal.RequireFromString("40"); !got.Native.Equal(want) {
		t.Fatalf("tracked native = %s, want %s", got.Native, want)
	}
	if want := decimal.RequireFromString("4000"); !got.USD.Equal(want) {
		t.Fatalf("tracked usd = %s, want %s", got.USD, want)
	}
	// Untracked is the unconditional sum: 10*2 + 5*3 = 35.
	if want := decimal.RequireFromString("35"); !got.NativeUntracked.Equal(want) {
		t.Fatalf("untracked native = %s, want %s", got.NativeUntracked, want)
	}
	if want := decimal.RequireFromString("3500"); !got.USDUntracked.Equal(want) {
		t.Fatalf("untracked usd = %s, want %s", got.USDUntracked, want)
	}
}

func TestAdjustedAmountsUntrackedIgnoresWhitelist(t *testing.T) {
	pricer, _, unlisted := trackedFixture(t)

	other := model.Token{Address: tokenAAddr, DerivedNative: decimal.RequireFromString("7")}
	amount := decimal.RequireFromString("10")

	got := pricer.AdjustedAmounts(amount, unlisted, amount, other)

	if !got.Native.IsZero() || !got.USD.IsZero() {
		t.Fatalf("tracked = %s/%s, want zeros", got.Native, got.USD)
	}
	// 10*3 + 10*7 = 100 regardless of whitelist membership.
	if want := decimal.RequireFromString("100"); !got.NativeUntracked.Equal(want) {
		t.Fatalf("untracked native = %s, want %s", got.NativeUntracked, want)
	}
	if want := decimal.RequireFromString("10000"); !got.USDUntracked.Equal(want) {
		t.Fatalf("untracked usd = %s, want %s", got.USDUntracked, want)
	}
}
