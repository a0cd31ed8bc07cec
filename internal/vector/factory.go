package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search, optionally snapshotted to disk.
	IndexTypeMemory IndexType = "memory"
	// IndexTypePGVector uses PostgreSQL with the pgvector extension.
	IndexTypePGVector IndexType = "pgvector"
	// IndexTypeNone disables vector search (degraded mode).
	IndexTypeNone IndexType = "none"
)

// Options configures NewIndex.
type Options struct {
	Type         string
	Dimensions   int
	DSN          string
	Table        string
	SnapshotPath string
	Logger       *zap.Logger
}

// NewIndex creates the vector index described by opts. A pgvector index without a DSN
// yields the Unconfigured index rather than an error.
func NewIndex(ctx context.Context, opts Options) (Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch IndexType(opts.Type) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(opts.Dimensions)
		if err != nil {
			return nil, err
		}
		if opts.SnapshotPath == "" {
			return idx, nil
		}
		return NewSnapshotIndex(idx, opts.SnapshotPath, logger)
	case IndexTypePGVector:
		if opts.DSN == "" {
			logger.Warn("pgvector selected but no DSN configured, vector search disabled")
			return NewUnconfigured(logger), nil
		}
		return NewPGVectorIndex(ctx, opts.DSN, opts.Table, opts.Dimensions)
	case IndexTypeNone:
		return NewUnconfigured(logger), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, pgvector, none)", opts.Type)
	}
}

// TypeOf returns the backend name of idx.
func TypeOf(idx Index) string {
	if t, ok := idx.(interface{ Type() string }); ok {
		return t.Type()
	}
	return "unknown"
}
