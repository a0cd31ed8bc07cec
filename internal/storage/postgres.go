package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyperjump/minutes/internal/models"
)

// PostgresStorage implements Storage on PostgreSQL through a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to databaseURL and creates the schema if missing.
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS meetings (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	bot_id TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	action_items JSONB NOT NULL DEFAULT '[]',
	rag_processed BOOLEAN NOT NULL DEFAULT FALSE,
	rag_processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_meetings_user_id ON meetings(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_meetings_bot_id ON meetings(bot_id);

CREATE TABLE IF NOT EXISTS transcript_chunks (
	vector_id TEXT PRIMARY KEY,
	meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	speaker_name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunks_meeting_chunk ON transcript_chunks(meeting_id, chunk_index);
`

func scanPGMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	if err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.BotID, &m.Transcript, &m.Summary, &m.ActionItems,
		&m.RAGProcessed, &m.RAGProcessedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMeeting inserts a meeting.
func (s *PostgresStorage) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	items := m.ActionItems
	if items == nil {
		items = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.UserID, m.Title, m.BotID, m.Transcript, m.Summary, items,
		m.RAGProcessed, m.RAGProcessedAt, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetMeeting returns a meeting by ID.
func (s *PostgresStorage) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	m, err := scanPGMeeting(s.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("meeting", id)
	}
	return m, err
}

// GetMeetingByBotID returns the meeting recorded by the given bot.
func (s *PostgresStorage) GetMeetingByBotID(ctx context.Context, botID string) (*models.Meeting, error) {
	if botID == "" {
		return nil, notFound("meeting for bot", botID)
	}
	m, err := scanPGMeeting(s.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE bot_id = $1 ORDER BY created_at DESC LIMIT 1`, botID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("meeting for bot", botID)
	}
	return m, err
}

// ListMeetings returns a user's meetings, newest first.
func (s *PostgresStorage) ListMeetings(ctx context.Context, userID string) ([]*models.Meeting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanPGMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (s *PostgresStorage) update(ctx context.Context, id, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("meeting", id)
	}
	return nil
}

// UpdateTranscript stores the full transcript text.
func (s *PostgresStorage) UpdateTranscript(ctx context.Context, id, transcript string) error {
	return s.update(ctx, id, `UPDATE meetings SET transcript = $1, updated_at = now() WHERE id = $2`, transcript, id)
}

// UpdateSummary stores the generated summary and action items.
func (s *PostgresStorage) UpdateSummary(ctx context.Context, id, summary string, actionItems []string) error {
	if actionItems == nil {
		actionItems = []string{}
	}
	return s.update(ctx, id,
		`UPDATE meetings SET summary = $1, action_items = $2, updated_at = now() WHERE id = $3`,
		summary, actionItems, id)
}

// MarkRAGProcessed sets the processed flag and timestamp.
func (s *PostgresStorage) MarkRAGProcessed(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id,
		`UPDATE meetings SET rag_processed = TRUE, rag_processed_at = $1, updated_at = now() WHERE id = $2`,
		at.UTC(), id)
}

// DeleteMeeting removes a meeting; chunks cascade.
func (s *PostgresStorage) DeleteMeeting(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	return err
}

// BatchCreateChunks inserts chunks in one batch inside a transaction. Existing vector ids are skipped.
func (s *PostgresStorage) BatchCreateChunks(ctx context.Context, chunks []*models.TranscriptChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		batch.Queue(
			`INSERT INTO transcript_chunks (vector_id, meeting_id, chunk_index, content, speaker_name, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (vector_id) DO NOTHING`,
			c.VectorID, c.MeetingID, c.ChunkIndex, c.Content, c.SpeakerName, c.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return tx.Commit(ctx)
}

// GetChunksByMeetingID returns a meeting's chunks ordered by chunk_index.
func (s *PostgresStorage) GetChunksByMeetingID(ctx context.Context, meetingID string) ([]*models.TranscriptChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vector_id, meeting_id, chunk_index, content, speaker_name, created_at
		 FROM transcript_chunks WHERE meeting_id = $1 ORDER BY chunk_index`, meetingID)
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
func (s *PostgresStorage) CountMeetings(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM meetings`).Scan(&count)
	return count, err
}

// Close closes the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
