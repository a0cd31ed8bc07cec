// Package events connects meeting processing to NATS JetStream: finished transcripts
// arrive on a durable consumer and processed meetings are announced back.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/meetings"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
)

// TranscriptReady is the payload on the transcript subject.
type TranscriptReady struct {
	MeetingID  string          `json:"meetingId"`
	Transcript json.RawMessage `json:"transcript"`
}

// Processed is the payload announced after a meeting is ingested.
type Processed struct {
	MeetingID   string    `json:"meetingId"`
	UserID      string    `json:"userId"`
	Chunks      int       `json:"chunks"`
	ProcessedAt time.Time `json:"processedAt"`
}

// TranscriptHandler processes a meeting's finished transcript.
type TranscriptHandler interface {
	ProcessTranscript(ctx context.Context, meetingID, transcript string) (*models.Meeting, error)
}

// Bridge owns the NATS connection, the transcript consumer and the processed publisher.
type Bridge struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	cfg     config.NATSConfig
	handler TranscriptHandler
	subs    []jetstream.ConsumeContext
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// Connect dials NATS and prepares JetStream. The connection retries in the background
// when the server is not up yet.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("minutes"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{nc: nc, js: js, cfg: cfg, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Start binds a durable consumer on the transcript subject and hands each message to handler.
func (b *Bridge) Start(ctx context.Context, handler TranscriptHandler) error {
	b.handler = handler
	if err := b.ensureStream(ctx); err != nil {
		return err
	}
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.cfg.Stream, jetstream.ConsumerConfig{
		Name:          b.cfg.Consumer,
		Durable:       b.cfg.Consumer,
		FilterSubject: b.cfg.TranscriptSubject,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		AckWait:       2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", b.cfg.Consumer, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		b.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", b.cfg.Consumer, err)
	}
	b.subs = append(b.subs, cc)
	b.logger.Info("subscribed to transcripts",
		zap.String("stream", b.cfg.Stream),
		zap.String("subject", b.cfg.TranscriptSubject),
		zap.String("consumer", b.cfg.Consumer),
	)
	return nil
}

func (b *Bridge) ensureStream(ctx context.Context) error {
	if _, err := b.js.Stream(ctx, b.cfg.Stream); err == nil {
		return nil
	}
	_, err := b.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      b.cfg.Stream,
		Subjects:  []string{b.cfg.TranscriptSubject, b.cfg.ProcessedSubject},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", b.cfg.Stream, err)
	}
	b.logger.Info("created stream", zap.String("name", b.cfg.Stream))
	return nil
}

func (b *Bridge) handleMessage(msg jetstream.Msg) {
	var evt TranscriptReady
	if err := json.Unmarshal(msg.Data(), &evt); err != nil || evt.MeetingID == "" {
		b.logger.Warn("malformed transcript event, skipping", zap.String("subject", msg.Subject()), zap.Error(err))
		// Ack so broken messages are not redelivered.
		_ = msg.Ack()
		return
	}
	text, err := meetings.TranscriptText(evt.Transcript)
	if err != nil {
		b.logger.Warn("transcript event without text, skipping", zap.String("meeting_id", evt.MeetingID), zap.Error(err))
		_ = msg.Ack()
		return
	}

	_, err = b.handler.ProcessTranscript(b.ctx, evt.MeetingID, text)
	switch {
	case err == nil:
		if err := msg.Ack(); err != nil {
			b.logger.Warn("failed to ack message", zap.String("subject", msg.Subject()), zap.Error(err))
		}
	case errors.Is(err, storage.ErrNotFound):
		b.logger.Warn("transcript for unknown meeting", zap.String("meeting_id", evt.MeetingID))
		_ = msg.TermWithReason("meeting not found")
	default:
		b.logger.Error("failed to process transcript", zap.String("meeting_id", evt.MeetingID), zap.Error(err))
		_ = msg.Nak()
	}
}

// PublishProcessed announces a processed meeting on the processed subject.
func (b *Bridge) PublishProcessed(ctx context.Context, userID, meetingID string, chunks int) error {
	data, err := json.Marshal(Processed{
		MeetingID:   meetingID,
		UserID:      userID,
		Chunks:      chunks,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return b.nc.Publish(b.cfg.ProcessedSubject, data)
}

// Close stops consumers and drains the connection.
func (b *Bridge) Close() {
	b.cancel()
	for _, cc := range b.subs {
		cc.Stop()
	}
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
