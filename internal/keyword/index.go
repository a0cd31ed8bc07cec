// Package keyword provides full-text search over transcript chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/minutes/internal/models"
)

// SearchOptions are optional parameters for keyword search. Nil means defaults.
type SearchOptions struct {
	// MeetingID restricts hits to one meeting when set.
	MeetingID string
	// FuzzyEnabled matches terms within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default 1.
	Fuzziness int
}

// Document is one transcript chunk as stored in the keyword index, keyed by VectorID.
type Document struct {
	VectorID     string
	UserID       string
	MeetingID    string
	MeetingTitle string
	SpeakerName  string
	Content      string
	ChunkIndex   int
}

// Index defines keyword search operations. Every search is scoped to one user.
type Index interface {
	IndexChunks(ctx context.Context, docs []Document) error
	Search(ctx context.Context, userID, query string, limit int, opts *SearchOptions) ([]*models.KeywordHit, error)
	DeleteMeeting(ctx context.Context, userID, meetingID string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}
