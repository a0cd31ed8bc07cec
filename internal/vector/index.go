// Package vector stores transcript chunk embeddings and answers similarity queries
// scoped by metadata filters.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Index stores vector records and answers nearest-neighbour queries.
// Upsert replaces any record with the same id.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
	Size() int
	Close() error
}

// Metadata travels with each vector and is returned with matches.
type Metadata struct {
	MeetingID    string `json:"meetingId"`
	UserID       string `json:"userId"`
	ChunkIndex   int    `json:"chunkIndex"`
	Content      string `json:"content"`
	SpeakerName  string `json:"speakerName,omitempty"`
	MeetingTitle string `json:"meetingTitle,omitempty"`
}

// Record is one vector with its id and metadata.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a query hit. Higher Score means more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Filter keys.
const (
	FilterUserID       = "userId"
	FilterMeetingID    = "meetingId"
	FilterSpeakerName  = "speakerName"
	FilterMeetingTitle = "meetingTitle"
	FilterChunkIndex   = "chunkIndex"
)

// Filter is a conjunction of exact-match constraints on metadata fields.
type Filter map[string]string

// ErrUnknownFilterKey is returned for filter keys that do not name a metadata field.
var ErrUnknownFilterKey = errors.New("vector: unknown filter key")

// Value returns the metadata field named by a filter key.
func (m Metadata) Value(key string) (string, error) {
	switch key {
	case FilterUserID:
		return m.UserID, nil
	case FilterMeetingID:
		return m.MeetingID, nil
	case FilterSpeakerName:
		return m.SpeakerName, nil
	case FilterMeetingTitle:
		return m.MeetingTitle, nil
	case FilterChunkIndex:
		return strconv.Itoa(m.ChunkIndex), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilterKey, key)
	}
}

// Matches reports whether m satisfies every constraint in f.
func (f Filter) Matches(m Metadata) (bool, error) {
	for key, want := range f {
		got, err := m.Value(key)
		if err != nil {
			return false, err
		}
		if got != want {
			return false, nil
		}
	}
	return true, nil
}

// Validate checks that every key names a metadata field.
func (f Filter) Validate() error {
	_, err := f.Matches(Metadata{})
	return err
}
