package vector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// filterColumns maps filter keys to columns of the vectors table.
var filterColumns = map[string]string{
	FilterUserID:       "user_id",
	FilterMeetingID:    "meeting_id",
	FilterSpeakerName:  "speaker_name",
	FilterMeetingTitle: "meeting_title",
	FilterChunkIndex:   "chunk_index",
}

// PGVectorIndex stores vectors in PostgreSQL using the pgvector extension.
// Similarity is cosine (1 - cosine distance).
type PGVectorIndex struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

// NewPGVectorIndex connects to dsn, creates the extension and table if needed,
// and returns the index.
func NewPGVectorIndex(ctx context.Context, dsn, table string, dimensions int) (*PGVectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if err := ensureExtension(ctx, dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse vector dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to vector store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping vector store: %w", err)
	}

	idx := &PGVectorIndex{pool: pool, table: table, dimensions: dimensions}
	if err := idx.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

// ensureExtension creates the vector extension on a plain connection; the pool's
// AfterConnect hook needs the type to exist.
func ensureExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	return nil
}

func (p *PGVectorIndex) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		embedding vector(%[2]d) NOT NULL,
		meeting_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		speaker_name TEXT NOT NULL DEFAULT '',
		meeting_title TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS %[1]s_user_idx ON %[1]s(user_id);
	CREATE INDEX IF NOT EXISTS %[1]s_meeting_idx ON %[1]s(user_id, meeting_id);
	`, p.table, p.dimensions)
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create vectors table: %w", err)
	}
	return nil
}

// Type returns the index type identifier.
func (p *PGVectorIndex) Type() string {
	return string(IndexTypePGVector)
}

// Upsert inserts or replaces records by id in one transaction.
func (p *PGVectorIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Values) != p.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", r.ID, len(r.Values), p.dimensions)
		}
	}
	query := fmt.Sprintf(`
	INSERT INTO %s (id, embedding, meeting_id, user_id, chunk_index, content, speaker_name, meeting_title, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE SET
		embedding = EXCLUDED.embedding,
		meeting_id = EXCLUDED.meeting_id,
		user_id = EXCLUDED.user_id,
		chunk_index = EXCLUDED.chunk_index,
		content = EXCLUDED.content,
		speaker_name = EXCLUDED.speaker_name,
		meeting_title = EXCLUDED.meeting_title,
		updated_at = now()`, p.table)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range records {
		m := r.Metadata
		batch.Queue(query, r.ID, pgvector.NewVector(r.Values), m.MeetingID, m.UserID, m.ChunkIndex,
			m.Content, m.SpeakerName, m.MeetingTitle)
	}
	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert vector: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return tx.Commit(ctx)
}

// Query returns up to topK records matching filter ordered by cosine distance.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Match, error) {
	if len(vector) != p.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), p.dimensions)
	}
	if topK <= 0 {
		return []Match{}, nil
	}
	where, args, err := whereClause(filter, 2)
	if err != nil {
		return nil, err
	}
	args = append([]any{pgvector.NewVector(vector)}, args...)
	args = append(args, topK)
	query := fmt.Sprintf(`
	SELECT id, meeting_id, user_id, chunk_index, content, speaker_name, meeting_title,
		1 - (embedding <=> $1) AS score
	FROM %s%s
	ORDER BY embedding <=> $1, id
	LIMIT $%d`, p.table, where, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata.MeetingID, &m.Metadata.UserID, &m.Metadata.ChunkIndex,
			&m.Metadata.Content, &m.Metadata.SpeakerName, &m.Metadata.MeetingTitle, &m.Score); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}
	return matches, nil
}

// DeleteByFilter removes every record matching filter. An empty filter is rejected.
func (p *PGVectorIndex) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete requires a non-empty filter")
	}
	where, args, err := whereClause(filter, 1)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", p.table, where), args...); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// Size returns the number of stored vectors, or 0 if the count fails.
func (p *PGVectorIndex) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var n int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", p.table)).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the connection pool.
func (p *PGVectorIndex) Close() error {
	p.pool.Close()
	return nil
}

// whereClause renders filter as " WHERE col = $n AND ..." with placeholders starting
// at firstArg. Keys are sorted so the SQL text is stable.
func whereClause(filter Filter, firstArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		col, ok := filterColumns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownFilterKey, k)
		}
		var arg any = filter[k]
		if k == FilterChunkIndex {
			n, err := strconv.Atoi(filter[k])
			if err != nil {
				return "", nil, fmt.Errorf("chunkIndex filter: %w", err)
			}
			arg = n
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", col, firstArg+i))
		args = append(args, arg)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
