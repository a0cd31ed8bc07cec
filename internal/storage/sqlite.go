package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/minutes/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		bot_id TEXT NOT NULL DEFAULT '',
		transcript TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		action_items TEXT NOT NULL DEFAULT '[]',
		rag_processed INTEGER NOT NULL DEFAULT 0,
		rag_processed_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_user_id ON meetings(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_meetings_bot_id ON meetings(bot_id);

	CREATE TABLE IF NOT EXISTS transcript_chunks (
		vector_id TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		speaker_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_meeting_chunk ON transcript_chunks(meeting_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

const meetingColumns = `id, user_id, title, bot_id, transcript, summary, action_items,
	rag_processed, rag_processed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var m models.Meeting
	var actionItems string
	var processedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.BotID, &m.Transcript, &m.Summary, &actionItems,
		&m.RAGProcessed, &processedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if actionItems != "" {
		if err := json.Unmarshal([]byte(actionItems), &m.ActionItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action items: %w", err)
		}
	}
	if processedAt.Valid {
		t := processedAt.Time
		m.RAGProcessedAt = &t
	}
	return &m, nil
}

func marshalActionItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal action items: %w", err)
	}
	return string(b), nil
}

// CreateMeeting inserts a meeting.
func (s *SQLiteStorage) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	actionItems, err := marshalActionItems(m.ActionItems)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Title, m.BotID, m.Transcript, m.Summary, actionItems,
		m.RAGProcessed, m.RAGProcessedAt, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetMeeting returns a meeting by ID.
func (s *SQLiteStorage) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting", id)
	}
	return m, err
}

// GetMeetingByBotID returns the meeting recorded by the given bot.
func (s *SQLiteStorage) GetMeetingByBotID(ctx context.Context, botID string) (*models.Meeting, error) {
	if botID == "" {
		return nil, notFound("meeting for bot", botID)
	}
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE bot_id = ? ORDER BY created_at DESC LIMIT 1`, botID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting for bot", botID)
	}
	return m, err
}

// ListMeetings returns a user's meetings, newest first.
func (s *SQLiteStorage) ListMeetings(ctx context.Context, userID string) ([]*models.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (s *SQLiteStorage) update(ctx context.Context, id, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("meeting", id)
	}
	return nil
}

// UpdateTranscript stores the full transcript text.
func (s *SQLiteStorage) UpdateTranscript(ctx context.Context, id, transcript string) error {
	return s.update(ctx, id,
		`UPDATE meetings SET transcript = ?, updated_at = ? WHERE id = ?`,
		transcript, time.Now().UTC(), id)
}

// UpdateSummary stores the generated summary and action items.
func (s *SQLiteStorage) UpdateSummary(ctx context.Context, id, summary string, actionItems []string) error {
	items, err := marshalActionItems(actionItems)
	if err != nil {
		return err
	}
	return s.update(ctx, id,
		`UPDATE meetings SET summary = ?, action_items = ?, updated_at = ? WHERE id = ?`,
		summary, items, time.Now().UTC(), id)
}

// MarkRAGProcessed sets the processed flag and timestamp.
func (s *SQLiteStorage) MarkRAGProcessed(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id,
		`UPDATE meetings SET rag_processed = 1, rag_processed_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id)
}

// DeleteMeeting removes a meeting and its chunks.
func (s *SQLiteStorage) DeleteMeeting(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript_chunks WHERE meeting_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchCreateChunks inserts chunks in a transaction. Chunks whose vector id exists are skipped.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.TranscriptChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO transcript_chunks (vector_id, meeting_id, chunk_index, content, speaker_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, c.VectorID, c.MeetingID, c.ChunkIndex, c.Content, c.SpeakerName, c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunksByMeetingID returns a meeting's chunks ordered by chunk_index.
func (s *SQLiteStorage) GetChunksByMeetingID(ctx context.Context, meetingID string) ([]*models.TranscriptChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vector_id, meeting_id, chunk_index, content, speaker_name, created_at
		 FROM transcript_chunks WHERE meeting_id = ? ORDER BY chunk_index`,
		meetingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.TranscriptChunk
	for rows.Next() {
		var c models.TranscriptChunk
		if err := rows.Scan(&c.VectorID, &c.MeetingID, &c.ChunkIndex, &c.Content, &c.SpeakerName, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// CountMeetings returns the total number of meetings.
func (s *SQLiteStorage) CountMeetings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
