package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/export"
	"github.com/hyperjump/minutes/internal/meetings"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountMeetings(r.Context())
	if err != nil {
		s.logger.Error("status: count meetings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"meetings":       count,
		"vectors":        s.rag.IndexSize(),
		"vector_backend": s.rag.IndexType(),
	}
	cfg := s.config
	resp["config"] = map[string]any{
		"storage_driver":       cfg.Storage.Driver,
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"llm_provider":         cfg.LLM.Provider,
		"llm_models":           cfg.LLM.Models,
		"chunk_size":           cfg.RAG.ChunkSize,
	}
	if diskBytes, err := storage.DiskUsageBytes(
		cfg.Storage.DatabasePath,
		cfg.Storage.BleveIndexPath,
		cfg.Vector.SnapshotPath,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var input models.MeetingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := s.meetings.Create(r.Context(), userFrom(r.Context()), input)
	if err != nil {
		s.logger.Error("create meeting failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	list, err := s.meetings.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.logger.Error("list meetings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.Meeting{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"meetings": list})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ownedMeeting(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete meeting request", zap.String("id", id))
	if err := s.meetings.Delete(r.Context(), userFrom(r.Context()), id); err != nil {
		s.respondMeetingError(w, err, "delete meeting failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleActionItemsExport(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ownedMeeting(w, r)
	if !ok {
		return
	}
	data, err := export.ActionItemsXLSX(m)
	if err != nil {
		s.logger.Error("action items export failed", zap.String("meeting_id", m.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.ID+"-action-items.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) ownedMeeting(w http.ResponseWriter, r *http.Request) (*models.Meeting, bool) {
	m, err := s.meetings.Get(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.respondMeetingError(w, err, "get meeting failed")
		return nil, false
	}
	return m, true
}

type processRequest struct {
	MeetingID    string `json:"meetingId"`
	Transcript   string `json:"transcript,omitempty"`
	MeetingTitle string `json:"meetingTitle,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.MeetingID) == "" {
		s.respondError(w, http.StatusBadRequest, "Missing meetingId")
		return
	}
	userID := userFrom(r.Context())
	s.logger.Debug("process request",
		zap.String("meeting_id", req.MeetingID),
		zap.Bool("transcript", req.Transcript != ""),
		zap.Bool("meeting_title", req.MeetingTitle != ""))

	n, err := s.meetings.Process(r.Context(), userID, req.MeetingID, req.Transcript, req.MeetingTitle)
	switch {
	case errors.Is(err, meetings.ErrAlreadyProcessed):
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "already processed"})
	case errors.Is(err, meetings.ErrNoTranscript):
		s.respondError(w, http.StatusBadRequest, "Missing transcript")
	case err != nil:
		s.respondMeetingError(w, err, "failed to process transcript")
	default:
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "chunks": n})
	}
}

func (s *Server) handleChatMeeting(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.ValidateForMeeting(); err != nil {
		s.respondError(w, http.StatusBadRequest, "Missing meetingId or question")
		return
	}
	ans, err := s.rag.AnswerForMeeting(r.Context(), userFrom(r.Context()), req.MeetingID, req.Question)
	if err != nil {
		s.logger.Error("chat with meeting failed", zap.String("meeting_id", req.MeetingID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to process question")
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleChatAll(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, "Missing question")
		return
	}
	ans, err := s.rag.AnswerForAllMeetings(r.Context(), userFrom(r.Context()), req.Question)
	if err != nil {
		s.logger.Error("chat with all meetings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to process question")
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxSearchLimit)
		}
	}
	hits, err := s.rag.Search(r.Context(), userFrom(r.Context()), q, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits})
}

type transcriptWebhook struct {
	Event string `json:"event"`
	Data  struct {
		BotID      string          `json:"bot_id"`
		Transcript json.RawMessage `json:"transcript"`
	} `json:"data"`
}

func (s *Server) handleTranscriptWebhook(w http.ResponseWriter, r *http.Request) {
	var hook transcriptWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if hook.Event != "complete" {
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "webhook received, no action needed"})
		return
	}
	botID := hook.Data.BotID
	if botID == "" {
		s.respondError(w, http.StatusBadRequest, "bot_id is required")
		return
	}
	// The key is held while the delivery is in flight and released on failure so the sender can retry.
	key := hook.Event + ":" + botID
	if s.webhooks.Seen(key) {
		s.logger.Info("duplicate webhook ignored", zap.String("bot_id", botID))
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "duplicate webhook ignored"})
		return
	}

	text, err := meetings.TranscriptText(hook.Data.Transcript)
	if err != nil && !errors.Is(err, meetings.ErrNoTranscript) {
		s.webhooks.Forget(key)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.meetings.ProcessForBot(r.Context(), botID, text)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.webhooks.Forget(key)
		s.logger.Warn("meeting not found for bot", zap.String("bot_id", botID))
		s.respondError(w, http.StatusNotFound, "meeting not found")
		return
	case errors.Is(err, meetings.ErrNoTranscript):
		s.logger.Info("webhook without transcript", zap.String("bot_id", botID))
	case err != nil:
		s.webhooks.Forget(key)
		s.logger.Error("webhook processing failed", zap.String("bot_id", botID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	resp := map[string]any{"success": true, "message": "meeting processed successfully"}
	if m != nil {
		resp["meetingId"] = m.ID
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondMeetingError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "Meeting not found")
	case errors.Is(err, meetings.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "Unauthorized")
	default:
		s.logger.Error(logMsg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, logMsg)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
