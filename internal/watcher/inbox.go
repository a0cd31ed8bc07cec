package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
)

// TextExtractor reads transcript text from a file.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// MeetingProcessor is the part of the meetings processor the inbox needs.
type MeetingProcessor interface {
	Get(ctx context.Context, userID, meetingID string) (*models.Meeting, error)
	Create(ctx context.Context, userID string, in models.MeetingInput) (*models.Meeting, error)
	ProcessTranscript(ctx context.Context, meetingID, transcript string) (*models.Meeting, error)
}

// Inbox turns dropped transcript files into processed meetings.
type Inbox struct {
	extractor TextExtractor
	processor MeetingProcessor
	logger    *zap.Logger
}

// NewInbox creates an inbox handler.
func NewInbox(extractor TextExtractor, processor MeetingProcessor, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{extractor: extractor, processor: processor, logger: logger}
}

// Handle extracts the dropped file and processes it for its meeting, creating the
// meeting when it does not exist yet.
func (in *Inbox) Handle(ctx context.Context, drop Drop) error {
	_, err := in.processor.Get(ctx, drop.UserID, drop.MeetingID)
	if errors.Is(err, storage.ErrNotFound) {
		title := drop.Title
		if title == "" {
			title = drop.MeetingID
		}
		_, err = in.processor.Create(ctx, drop.UserID, models.MeetingInput{ID: drop.MeetingID, Title: title})
	}
	if err != nil {
		return fmt.Errorf("meeting %s: %w", drop.MeetingID, err)
	}

	text, err := in.extractor.Extract(drop.Path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", drop.Path, err)
	}
	if strings.TrimSpace(text) == "" {
		in.logger.Debug("empty transcript file skipped", zap.String("path", drop.Path))
		return nil
	}
	m, err := in.processor.ProcessTranscript(ctx, drop.MeetingID, text)
	if err != nil {
		return err
	}
	in.logger.Info("inbox transcript processed",
		zap.String("user_id", drop.UserID),
		zap.String("meeting_id", m.ID),
		zap.Bool("rag_processed", m.RAGProcessed))
	return nil
}

// OnDrop adapts Handle to the watcher callback, logging failures.
func (in *Inbox) OnDrop(ctx context.Context) func(Drop) {
	return func(d Drop) {
		if err := in.Handle(ctx, d); err != nil {
			in.logger.Warn("inbox drop failed", zap.String("path", d.Path), zap.Error(err))
		}
	}
}
