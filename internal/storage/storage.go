package storage

import (
	"context"

	"pricegraph/internal/model"
)

// Sink receives attribution rows for downstream statistics.
type Sink interface {
	PutAttributionBatch(ctx context.Context, rows []model.Attribution) error
}
