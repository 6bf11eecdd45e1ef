package store

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pricegraph/internal/model"
)

func TestMemoryTokenRoundTrip(t *testing.T) {
	m := NewMemory()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	if _, ok := m.Token(addr); ok {
		t.Fatalf("unexpected token before put")
	}

	m.PutToken(model.Token{Address: addr, Symbol: "AAA", Decimals: 18})
	token, ok := m.Token(addr)
	if !ok {
		t.Fatalf("token missing after put")
	}
	if token.Symbol != "AAA" || token.Decimals != 18 {
		t.Fatalf("token = %+v", token)
	}

	// Put replaces the whole record.
	token.DerivedNative = decimal.RequireFromString("0.5")
	m.PutToken(token)
	token, _ = m.Token(addr)
	if !token.DerivedNative.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("derived native = %s, want 0.5", token.DerivedNative)
	}
}

func TestMemoryPoolRoundTrip(t *testing.T) {
	m := NewMemory()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	if _, ok := m.Pool(addr); ok {
		t.Fatalf("unexpected pool before put")
	}

	m.PutPool(model.Pool{Address: addr, FeeTier: 500})
	pool, ok := m.Pool(addr)
	if !ok {
		t.Fatalf("pool missing after put")
	}
	if pool.FeeTier != 500 {
		t.Fatalf("fee tier = %d, want 500", pool.FeeTier)
	}
}

func TestMemoryBundleDefaultsToZero(t *testing.T) {
	m := NewMemory()
	if !m.Bundle().NativePriceUSD.IsZero() {
		t.Fatalf("bundle price = %s, want 0", m.Bundle().NativePriceUSD)
	}

	m.PutBundle(model.Bundle{NativePriceUSD: decimal.RequireFromString("2000")})
	if !m.Bundle().NativePriceUSD.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("bundle price = %s, want 2000", m.Bundle().NativePriceUSD)
	}
}

func TestMemorySnapshots(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 3; i++ {
		m.PutToken(model.Token{Address: common.BytesToAddress([]byte{byte(i + 1)})})
	}
	m.PutPool(model.Pool{Address: common.BytesToAddress([]byte{0xff})})

	if got := len(m.Tokens()); got != 3 {
		t.Fatalf("tokens = %d, want 3", got)
	}
	if got := len(m.Pools()); got != 1 {
		t.Fatalf("pools = %d, want 1", got)
	}
}
