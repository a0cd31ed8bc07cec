package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/minutes/internal/cli"
	"github.com/hyperjump/minutes/internal/extract"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/server"
	"github.com/hyperjump/minutes/internal/storage"
	"github.com/hyperjump/minutes/internal/vector"
	"github.com/hyperjump/minutes/internal/watcher"
)

func newServerCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server, transcript inbox watcher and event bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			components, err := initializeComponents(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer components.Close()

			if components.Events != nil {
				if err := components.Events.Start(ctx, components.Meetings); err != nil {
					return fmt.Errorf("failed to start event bridge: %w", err)
				}
			}

			if cfg.Watch.InboxDir != "" {
				inbox := watcher.NewInbox(extract.NewExtractor(), components.Meetings, logger)
				w := watcher.NewWatcher(cfg.Watch.InboxDir, cfg.Watch.Extensions, inbox.OnDrop(ctx),
					watcher.WithLogger(logger),
					watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
				)
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to start inbox watcher: %w", err)
				}
				defer w.Stop()
				go w.SyncExisting()
			}

			srv := server.NewServer(components.RAG, components.Meetings, components.Storage, cfg, logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			logger.Info("Shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var userID, meetingID, title string
	cmd := &cobra.Command{
		Use:   "ingest [flags] <file>",
		Short: "Summarise and index a transcript file for a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if meetingID == "" {
				meetingID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			components, err := initializeComponents(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			inbox := watcher.NewInbox(extract.NewExtractor(), components.Meetings, logger)
			if err := inbox.Handle(ctx, watcher.Drop{UserID: userID, MeetingID: meetingID, Path: path, Title: title}); err != nil {
				return err
			}
			m, err := components.Meetings.Get(ctx, userID, meetingID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Meeting %s ingested (processed: %t)\n", m.ID, m.RAGProcessed)
			if m.Summary != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", m.Summary)
			}
			for _, item := range m.ActionItems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", item)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner user id (required)")
	cmd.Flags().StringVar(&meetingID, "meeting", "", "meeting id (default: file name without extension)")
	cmd.Flags().StringVar(&title, "title", "", "meeting title for a new meeting")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	var userID, meetingID, output string
	cmd := &cobra.Command{
		Use:   "ask [flags] <question>",
		Short: "Ask a question about one meeting or all of a user's meetings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			req := models.ChatRequest{MeetingID: meetingID, Question: joinArgs(args)}
			if err := req.Validate(); err != nil {
				return err
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			components, err := initializeComponents(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			var ans *models.Answer
			if req.MeetingID != "" {
				ans, err = components.RAG.AnswerForMeeting(ctx, userID, req.MeetingID, req.Question)
			} else {
				ans, err = components.RAG.AnswerForAllMeetings(ctx, userID, req.Question)
			}
			if err != nil {
				return fmt.Errorf("failed to answer: %w", err)
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), ans, format)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose meetings are searched (required)")
	cmd.Flags().StringVar(&meetingID, "meeting", "", "restrict the question to one meeting")
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var userID, output string
	var limit int
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Keyword search over a user's transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			query := joinArgs(args)
			if query == "" {
				return errors.New("query is required")
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			components, err := initializeComponents(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			hits, err := components.RAG.Search(ctx, userID, query, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchHits(cmd.OutOrStdout(), query, hits, format)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of results")
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storage and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			components, err := initializeComponents(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			count, err := components.Storage.CountMeetings(ctx)
			if err != nil {
				return fmt.Errorf("count meetings failed: %w", err)
			}
			status := cli.Status{
				Meetings:      count,
				Vectors:       components.VectorIndex.Size(),
				VectorBackend: vector.TypeOf(components.VectorIndex),
				StorageDriver: cfg.Storage.Driver,
				Embedding:     cfg.Embedding.Provider,
				Dimensions:    cfg.Embedding.Dimensions,
			}
			if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Vector.SnapshotPath); err == nil {
				status.DiskUsageBytes = &diskBytes
			}
			if components.Embedder.Fallback() {
				logger.Warn("embedding provider not configured, using fallback embeddings")
			}
			return cli.WriteStatus(cmd.OutOrStdout(), status, format)
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "minutes version %s\n", version)
		},
	}
}
