// Package models defines core data structures for meetings, transcript chunks, and answers.
package models

import "time"

// Meeting is a recorded meeting owned by a single user.
type Meeting struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	Title          string     `json:"title" db:"title"`
	BotID          string     `json:"bot_id,omitempty" db:"bot_id"`
	Transcript     string     `json:"transcript,omitempty" db:"transcript"`
	Summary        string     `json:"summary,omitempty" db:"summary"`
	ActionItems    []string   `json:"action_items,omitempty" db:"action_items"`
	RAGProcessed   bool       `json:"rag_processed" db:"rag_processed"`
	RAGProcessedAt *time.Time `json:"rag_processed_at,omitempty" db:"rag_processed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// TitleOrDefault returns the meeting title, or "Untitled Meeting" when blank.
func (m *Meeting) TitleOrDefault() string {
	if m == nil || m.Title == "" {
		return UntitledMeeting
	}
	return m.Title
}

// UntitledMeeting is used wherever a meeting has no title.
const UntitledMeeting = "Untitled Meeting"

// TranscriptChunk is one persisted slice of a meeting transcript.
// VectorID is derived from (MeetingID, ChunkIndex) and is unique.
type TranscriptChunk struct {
	MeetingID   string    `json:"meeting_id" db:"meeting_id"`
	ChunkIndex  int       `json:"chunk_index" db:"chunk_index"`
	Content     string    `json:"content" db:"content"`
	SpeakerName string    `json:"speaker_name,omitempty" db:"speaker_name"`
	VectorID    string    `json:"vector_id" db:"vector_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// MeetingInput is the input for creating a meeting.
type MeetingInput struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	BotID      string `json:"bot_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}
