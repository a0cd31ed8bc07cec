package vector

import (
	"context"

	"go.uber.org/zap"
)

// Unconfigured stands in for a vector store with no credentials. Writes are dropped
// and queries return nothing, so ingestion and chat keep working without search.
type Unconfigured struct {
	logger *zap.Logger
}

// NewUnconfigured returns the degraded-mode index.
func NewUnconfigured(logger *zap.Logger) *Unconfigured {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Unconfigured{logger: logger}
}

// Type returns the index type identifier.
func (u *Unconfigured) Type() string {
	return string(IndexTypeNone)
}

// Upsert drops the records.
func (u *Unconfigured) Upsert(_ context.Context, records []Record) error {
	u.logger.Warn("vector store not configured, skipping upsert", zap.Int("records", len(records)))
	return nil
}

// Query returns an empty result.
func (u *Unconfigured) Query(context.Context, []float32, Filter, int) ([]Match, error) {
	u.logger.Warn("vector store not configured, returning no matches")
	return []Match{}, nil
}

// DeleteByFilter does nothing.
func (u *Unconfigured) DeleteByFilter(context.Context, Filter) error {
	return nil
}

// Size is always zero.
func (u *Unconfigured) Size() int {
	return 0
}

// Close is a no-op.
func (u *Unconfigured) Close() error {
	return nil
}
