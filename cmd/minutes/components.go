package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/embedding"
	"github.com/hyperjump/minutes/internal/events"
	"github.com/hyperjump/minutes/internal/keyword"
	"github.com/hyperjump/minutes/internal/llm"
	"github.com/hyperjump/minutes/internal/meetings"
	"github.com/hyperjump/minutes/internal/rag"
	"github.com/hyperjump/minutes/internal/storage"
	"github.com/hyperjump/minutes/internal/summary"
	"github.com/hyperjump/minutes/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     *embedding.Provider
	VectorIndex  vector.Index
	KeywordIndex keyword.Index
	Generator    *llm.Chain
	RAG          *rag.Service
	Meetings     *meetings.Processor
	Events       *events.Bridge
}

// Close releases everything in reverse order of construction.
func (c *Components) Close() {
	if c.Events != nil {
		c.Events.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents builds the pipeline from cfg. withEvents connects the NATS bridge
// when a URL is configured.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withEvents bool) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Storage, err = storage.Open(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Embedder, err = embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	c.VectorIndex, err = vector.NewIndex(ctx, vector.Options{
		Type:         cfg.Vector.Type,
		Dimensions:   cfg.Embedding.Dimensions,
		DSN:          cfg.Vector.DSN,
		Table:        cfg.Vector.Table,
		SnapshotPath: cfg.Vector.SnapshotPath,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	logger.Info("vector index initialized",
		zap.String("type", vector.TypeOf(c.VectorIndex)),
		zap.Int("vectors", c.VectorIndex.Size()))

	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = kw

	c.Generator, err = llm.New(&cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize answer generator: %w", err)
	}

	c.RAG = rag.NewService(c.Storage, c.Embedder, c.VectorIndex, c.Generator,
		rag.WithLogger(logger),
		rag.WithKeywordIndex(c.KeywordIndex),
		rag.WithChunkSize(cfg.RAG.ChunkSize),
		rag.WithTopK(cfg.RAG.MeetingTopK, cfg.RAG.AllMeetingsTopK),
	)

	procOpts := []meetings.Option{meetings.WithLogger(logger)}
	if withEvents && cfg.NATS.URL != "" {
		c.Events, err = events.Connect(cfg.NATS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect events: %w", err)
		}
		procOpts = append(procOpts, meetings.WithPublisher(c.Events))
	}
	c.Meetings = meetings.NewProcessor(c.Storage, c.RAG,
		summary.New(c.Generator, summary.WithLogger(logger)),
		procOpts...,
	)
	return c, nil
}
