package store

import (
	"github.com/ethereum/go-ethereum/common"

	"pricegraph/internal/model"
)

// EntityStore is the read/write view over the entity snapshot. Reads report
// absence explicitly; writes replace whole records.
type EntityStore interface {
	Token(address common.Address) (model.Token, bool)
	PutToken(token model.Token)
	Pool(address common.Address) (model.Pool, bool)
	PutPool(pool model.Pool)
	Bundle() model.Bundle
	PutBundle(bundle model.Bundle)
}
