// Package storage defines the persistence interface for meetings and transcript chunks.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/models"
)

// ErrNotFound is returned when a meeting does not exist.
var ErrNotFound = errors.New("not found")

// Driver names accepted in config.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Storage defines meeting and transcript chunk persistence operations.
type Storage interface {
	// Meeting operations
	CreateMeeting(ctx context.Context, m *models.Meeting) error
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	GetMeetingByBotID(ctx context.Context, botID string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, userID string) ([]*models.Meeting, error)
	UpdateTranscript(ctx context.Context, id, transcript string) error
	UpdateSummary(ctx context.Context, id, summary string, actionItems []string) error
	MarkRAGProcessed(ctx context.Context, id string, at time.Time) error
	DeleteMeeting(ctx context.Context, id string) error

	// Chunk operations. BatchCreateChunks skips chunks whose vector id already exists.
	BatchCreateChunks(ctx context.Context, chunks []*models.TranscriptChunk) error
	GetChunksByMeetingID(ctx context.Context, meetingID string) ([]*models.TranscriptChunk, error)

	// Stats
	CountMeetings(ctx context.Context) (int64, error)

	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteStorage(cfg.DatabasePath)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres storage requires database_url")
		}
		return NewPostgresStorage(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
