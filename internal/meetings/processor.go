// Package meetings owns meeting records and the processed flag that gates transcript ingestion.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/rag"
	"github.com/hyperjump/minutes/internal/storage"
	"github.com/hyperjump/minutes/internal/summary"
)

var (
	// ErrForbidden is returned when the caller does not own the meeting.
	ErrForbidden = errors.New("meeting belongs to another user")
	// ErrAlreadyProcessed is returned when a meeting's transcript was already ingested.
	ErrAlreadyProcessed = errors.New("meeting already processed")
	// ErrMissingUser is returned when no user id is given.
	ErrMissingUser = errors.New("user id is required")
)

// FailedSummary is stored when transcript ingestion fails after summarising.
const FailedSummary = "Processing failed. Please check the transcript manually."

// Ingester is the retrieval pipeline as seen by the processor.
type Ingester interface {
	Ingest(ctx context.Context, req rag.IngestRequest) (int, error)
	DeleteMeetingVectors(ctx context.Context, userID, meetingID string) error
}

// Summarizer produces a meeting summary and action items.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) summary.Result
}

// Publisher announces processed meetings.
type Publisher interface {
	PublishProcessed(ctx context.Context, userID, meetingID string, chunks int) error
}

// Processor coordinates meeting records, summaries and ingestion.
type Processor struct {
	store      storage.Storage
	ingester   Ingester
	summarizer Summarizer
	publisher  Publisher
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublisher announces each processed meeting.
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) {
		p.publisher = pub
	}
}

// WithClock replaces time.Now for processed timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a processor.
func NewProcessor(store storage.Storage, ingester Ingester, summarizer Summarizer, opts ...Option) *Processor {
	p := &Processor{
		store:      store,
		ingester:   ingester,
		summarizer: summarizer,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create stores a new meeting for userID. A missing id is generated.
func (p *Processor) Create(ctx context.Context, userID string, in models.MeetingInput) (*models.Meeting, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	m := &models.Meeting{
		ID:         id,
		UserID:     userID,
		Title:      strings.TrimSpace(in.Title),
		BotID:      in.BotID,
		Transcript: in.Transcript,
	}
	if err := p.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	return m, nil
}

// Get returns a meeting owned by userID.
func (p *Processor) Get(ctx context.Context, userID, meetingID string) (*models.Meeting, error) {
	m, err := p.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrForbidden
	}
	return m, nil
}

// List returns userID's meetings, newest first.
func (p *Processor) List(ctx context.Context, userID string) ([]*models.Meeting, error) {
	return p.store.ListMeetings(ctx, userID)
}

// Process ingests a meeting on the owner's request. An empty transcript uses the stored
// one and an empty title uses the meeting title.
func (p *Processor) Process(ctx context.Context, userID, meetingID, transcript, title string) (int, error) {
	m, err := p.Get(ctx, userID, meetingID)
	if err != nil {
		return 0, err
	}
	if m.RAGProcessed {
		return 0, ErrAlreadyProcessed
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = m.Transcript
	}
	if strings.TrimSpace(transcript) == "" {
		return 0, ErrNoTranscript
	}
	if title == "" {
		title = m.Title
	}
	return p.ingest(ctx, m, transcript, title)
}

// ProcessTranscript handles a finished recording: it stores the transcript and, unless the
// meeting was already processed, summarises and ingests it.
func (p *Processor) ProcessTranscript(ctx context.Context, meetingID, transcript string) (*models.Meeting, error) {
	if err := p.store.UpdateTranscript(ctx, meetingID, transcript); err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}
	m, err := p.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.RAGProcessed {
		p.logger.Info("meeting already processed, transcript stored only", zap.String("meeting_id", meetingID))
		return m, nil
	}
	if strings.TrimSpace(transcript) == "" {
		return m, ErrNoTranscript
	}

	res := p.summarizer.Summarize(ctx, transcript)
	if _, err := p.ingest(ctx, m, transcript, m.Title); err != nil {
		if serr := p.store.UpdateSummary(ctx, meetingID, FailedSummary, nil); serr != nil {
			p.logger.Warn("failed to store failure summary", zap.String("meeting_id", meetingID), zap.Error(serr))
		}
		return nil, err
	}
	if err := p.store.UpdateSummary(ctx, meetingID, res.Summary, res.ActionItems); err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}
	return p.store.GetMeeting(ctx, meetingID)
}

// ProcessForBot resolves the meeting recorded by botID and processes its transcript.
func (p *Processor) ProcessForBot(ctx context.Context, botID, transcript string) (*models.Meeting, error) {
	m, err := p.store.GetMeetingByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}
	return p.ProcessTranscript(ctx, m.ID, transcript)
}

func (p *Processor) ingest(ctx context.Context, m *models.Meeting, transcript, title string) (int, error) {
	n, err := p.ingester.Ingest(ctx, rag.IngestRequest{
		MeetingID:    m.ID,
		UserID:       m.UserID,
		Transcript:   transcript,
		MeetingTitle: title,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to ingest transcript: %w", err)
	}
	if err := p.store.MarkRAGProcessed(ctx, m.ID, p.now()); err != nil {
		return 0, fmt.Errorf("failed to mark meeting processed: %w", err)
	}
	p.logger.Info("meeting processed", zap.String("meeting_id", m.ID), zap.Int("chunks", n))
	if p.publisher != nil {
		if err := p.publisher.PublishProcessed(ctx, m.UserID, m.ID, n); err != nil {
			p.logger.Warn("failed to publish processed event", zap.String("meeting_id", m.ID), zap.Error(err))
		}
	}
	return n, nil
}

// Delete removes a meeting with its vectors and chunks.
func (p *Processor) Delete(ctx context.Context, userID, meetingID string) error {
	if _, err := p.Get(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := p.ingester.DeleteMeetingVectors(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := p.store.DeleteMeeting(ctx, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}
