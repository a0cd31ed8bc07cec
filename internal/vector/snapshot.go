package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// SnapshotIndex is a MemoryIndex that is loaded from path at start and written back on Close.
type SnapshotIndex struct {
	*MemoryIndex
	path   string
	logger *zap.Logger
}

// NewSnapshotIndex loads idx from path. An unreadable snapshot is logged and skipped;
// the index then starts empty and is rebuilt by re-ingestion.
func NewSnapshotIndex(idx *MemoryIndex, path string, logger *zap.Logger) (*SnapshotIndex, error) {
	if idx == nil {
		return nil, fmt.Errorf("memory index is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := idx.Load(path); err != nil {
		logger.Warn("vector snapshot load skipped", zap.String("path", path), zap.Error(err))
	} else {
		logger.Debug("vector snapshot loaded", zap.String("path", path), zap.Int("vectors", idx.Size()))
	}
	return &SnapshotIndex{MemoryIndex: idx, path: path, logger: logger}, nil
}

// Close writes the snapshot.
func (s *SnapshotIndex) Close() error {
	if err := s.Save(s.path); err != nil {
		return fmt.Errorf("save vector snapshot: %w", err)
	}
	s.logger.Debug("vector snapshot saved", zap.String("path", s.path), zap.Int("vectors", s.Size()))
	return nil
}
