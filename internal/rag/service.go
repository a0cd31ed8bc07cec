// Package rag ingests meeting transcripts into the vector index and answers questions
// from the retrieved transcript chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/chunker"
	"github.com/hyperjump/minutes/internal/embedding"
	"github.com/hyperjump/minutes/internal/keyword"
	"github.com/hyperjump/minutes/internal/llm"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
	"github.com/hyperjump/minutes/internal/vector"
)

// Default result counts for the two question scopes.
const (
	DefaultMeetingTopK     = 5
	DefaultAllMeetingsTopK = 8
)

// IngestRequest is a transcript to chunk, embed and index.
type IngestRequest struct {
	MeetingID    string
	UserID       string
	Transcript   string
	MeetingTitle string
}

// Service is the retrieval pipeline. It holds no per-call state.
type Service struct {
	store           storage.Storage
	embedder        embedding.Embedder
	index           vector.Index
	generator       llm.Generator
	keywords        keyword.Index
	chunker         *chunker.Chunker
	meetingTopK     int
	allMeetingsTopK int
	logger          *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeywordIndex also indexes ingested chunks for keyword search.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(s *Service) {
		s.keywords = idx
	}
}

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		s.chunker = chunker.New(n)
	}
}

// WithTopK overrides the per-meeting and all-meetings result counts. Non-positive values keep the defaults.
func WithTopK(meeting, allMeetings int) Option {
	return func(s *Service) {
		if meeting > 0 {
			s.meetingTopK = meeting
		}
		if allMeetings > 0 {
			s.allMeetingsTopK = allMeetings
		}
	}
}

// NewService wires the pipeline.
func NewService(store storage.Storage, embedder embedding.Embedder, index vector.Index, generator llm.Generator, opts ...Option) *Service {
	s := &Service{
		store:           store,
		embedder:        embedder,
		index:           index,
		generator:       generator,
		chunker:         chunker.New(chunker.MaxChunkSize),
		meetingTopK:     DefaultMeetingTopK,
		allMeetingsTopK: DefaultAllMeetingsTopK,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest chunks the transcript, embeds the chunks in order, persists chunk rows and
// upserts one vector per chunk. Ids derive from (meeting, chunk index), so ingesting
// the same transcript again overwrites instead of duplicating. Returns the chunk count.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (int, error) {
	chunks := s.chunker.Chunk(req.Transcript)
	if len(chunks) == 0 {
		s.logger.Info("transcript produced no chunks", zap.String("meeting_id", req.MeetingID))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	title := req.MeetingTitle
	if title == "" {
		title = models.UntitledMeeting
	}

	rows := make([]*models.TranscriptChunk, len(chunks))
	records := make([]vector.Record, len(chunks))
	docs := make([]keyword.Document, len(chunks))
	for i, c := range chunks {
		speaker, _ := chunker.ExtractSpeaker(c.Content)
		id := chunker.VectorID(req.MeetingID, c.Index)
		rows[i] = &models.TranscriptChunk{
			MeetingID:   req.MeetingID,
			ChunkIndex:  c.Index,
			Content:     c.Content,
			SpeakerName: speaker,
			VectorID:    id,
		}
		records[i] = vector.Record{
			ID:     id,
			Values: vectors[i],
			Metadata: vector.Metadata{
				MeetingID:    req.MeetingID,
				UserID:       req.UserID,
				ChunkIndex:   c.Index,
				Content:      c.Content,
				SpeakerName:  speaker,
				MeetingTitle: title,
			},
		}
		docs[i] = keyword.Document{
			VectorID:     id,
			UserID:       req.UserID,
			MeetingID:    req.MeetingID,
			MeetingTitle: title,
			SpeakerName:  speaker,
			Content:      c.Content,
			ChunkIndex:   c.Index,
		}
	}

	if err := s.store.BatchCreateChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.IndexChunks(ctx, docs); err != nil {
			return 0, fmt.Errorf("failed to index chunks for keyword search: %w", err)
		}
	}

	s.logger.Info("ingested transcript",
		zap.String("meeting_id", req.MeetingID),
		zap.String("user_id", req.UserID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// AnswerForMeeting answers a question from one meeting's chunks. Errors propagate.
func (s *Service) AnswerForMeeting(ctx context.Context, userID, meetingID, question string) (*models.Answer, error) {
	qv, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	matches, err := s.index.Query(ctx, qv, vector.Filter{
		vector.FilterUserID:    userID,
		vector.FilterMeetingID: meetingID,
	}, s.meetingTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	title, date, err := s.meetingDetails(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, meetingPrompt(title, date, meetingContext(matches)), question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := make([]models.Source, len(matches))
	for i, m := range matches {
		sources[i] = models.Source{
			MeetingID:   m.Metadata.MeetingID,
			Content:     m.Metadata.Content,
			SpeakerName: m.Metadata.SpeakerName,
			Confidence:  m.Score,
		}
	}
	return &models.Answer{Answer: answer, Sources: sources}, nil
}

// meetingDetails returns the title and creation time for the prompt. A missing meeting
// yields the untitled default and a zero time.
func (s *Service) meetingDetails(ctx context.Context, meetingID string) (string, time.Time, error) {
	m, err := s.store.GetMeeting(ctx, meetingID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.UntitledMeeting, time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load meeting: %w", err)
	}
	return m.TitleOrDefault(), m.CreatedAt, nil
}

// AnswerForAllMeetings answers from chunks across every meeting of the user. It never
// returns an error: no matches yields NoResultsAnswer without calling the generator, and
// any failure is logged and replaced with FailureAnswer.
func (s *Service) AnswerForAllMeetings(ctx context.Context, userID, question string) (ans *models.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("answer for all meetings panicked", zap.Any("panic", r), zap.String("user_id", userID))
			ans, err = &models.Answer{Answer: FailureAnswer, Sources: []models.Source{}}, nil
		}
	}()

	ans, err = s.answerForAllMeetings(ctx, userID, question)
	if err != nil {
		s.logger.Error("answer for all meetings failed", zap.String("user_id", userID), zap.Error(err))
		return &models.Answer{Answer: FailureAnswer, Sources: []models.Source{}}, nil
	}
	return ans, nil
}

func (s *Service) answerForAllMeetings(ctx context.Context, userID, question string) (*models.Answer, error) {
	qv, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	matches, err := s.index.Query(ctx, qv, vector.Filter{vector.FilterUserID: userID}, s.allMeetingsTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(matches) == 0 {
		return &models.Answer{Answer: NoResultsAnswer, Sources: []models.Source{}}, nil
	}

	answer, err := s.generator.Generate(ctx, allMeetingsPrompt(allMeetingsContext(matches)), question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := make([]models.Source, len(matches))
	for i, m := range matches {
		sources[i] = models.Source{
			MeetingID:    m.Metadata.MeetingID,
			MeetingTitle: m.Metadata.MeetingTitle,
			Content:      m.Metadata.Content,
			SpeakerName:  m.Metadata.SpeakerName,
			Confidence:   m.Score,
		}
	}
	return &models.Answer{Answer: answer, Sources: sources}, nil
}

// DeleteMeetingVectors removes a meeting's vectors and keyword documents.
func (s *Service) DeleteMeetingVectors(ctx context.Context, userID, meetingID string) error {
	if err := s.index.DeleteByFilter(ctx, vector.Filter{
		vector.FilterUserID:    userID,
		vector.FilterMeetingID: meetingID,
	}); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.DeleteMeeting(ctx, userID, meetingID); err != nil {
			return fmt.Errorf("failed to delete keyword documents: %w", err)
		}
	}
	return nil
}

// Search runs a keyword search over the user's transcript chunks. Without a keyword
// index it returns no hits.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]*models.KeywordHit, error) {
	if s.keywords == nil {
		return []*models.KeywordHit{}, nil
	}
	return s.keywords.Search(ctx, userID, query, limit, &keyword.SearchOptions{FuzzyEnabled: true})
}

// IndexSize reports the number of stored vectors.
func (s *Service) IndexSize() int {
	return s.index.Size()
}

// IndexType reports the vector backend name.
func (s *Service) IndexType() string {
	return vector.TypeOf(s.index)
}
