package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pricegraph/internal/model"
)

// Memory is an in-process entity snapshot keyed by address.
type Memory struct {
	mu     sync.RWMutex
	tokens map[common.Address]model.Token
	pools  map[common.Address]model.Pool
	bundle model.Bundle
}

func NewMemory() *Memory {
	return &Memory{
		tokens: make(map[common.Address]model.Token),
		pools:  make(map[common.Address]model.Pool),
	}
}

func (m *Memory) Token(address common.Address) (model.Token, bool) {
	m.mu.RLock()
	token, ok := m.tokens[address]
	m.mu.RUnlock()
	return token, ok
}

func (m *Memory) PutToken(token model.Token) {
	m.mu.Lock()
	m.tokens[token.Address] = token
	m.mu.Unlock()
}

func (m *Memory) Pool(address common.Address) (model.Pool, bool) {
	m.mu.RLock()
	pool, ok := m.pools[address]
	m.mu.RUnlock()
	return pool, ok
}

func (m *Memory) PutPool(pool model.Pool) {
	m.mu.Lock()
	m.pools[pool.Address] = pool
	m.mu.Unlock()
}

func (m *Memory) Bundle() model.Bundle {
	m.mu.RLock()
	bundle := m.bundle
	m.mu.RUnlock()
	return bundle
}

func (m *Memory) PutBundle(bundle model.Bundle) {
	m.mu.Lock()
	m.bundle = bundle
	m.mu.Unlock()
}

// Tokens returns a copy of all token records.
func (m *Memory) Tokens() []model.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		out = append(out, token)
	}
	return out
}

// Pools returns a copy of all pool records.
func (m *Memory) Pools() []model.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Pool, 0, len(m.pools))
	for _, pool := range m.pools {
		out = append(out, pool)
	}
	return out
}
