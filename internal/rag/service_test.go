package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/embedding"
	"github.com/hyperjump/minutes/internal/keyword"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
	"github.com/hyperjump/minutes/internal/vector"
)

const dims = 16

type recordingGenerator struct {
	answer   string
	err      error
	calls    int
	system   string
	question string
}

func (g *recordingGenerator) Generate(_ context.Context, systemPrompt, question string) (string, error) {
	g.calls++
	g.system, g.question = systemPrompt, question
	return g.answer, g.err
}

// stubIndex returns fixed matches and records the last query.
type stubIndex struct {
	matches  []vector.Match
	queryErr error
	filter   vector.Filter
	topK     int
	upserts  []vector.Record
}

func (s *stubIndex) Upsert(_ context.Context, records []vector.Record) error {
	s.upserts = append(s.upserts, records...)
	return nil
}

func (s *stubIndex) Query(_ context.Context, _ []float32, filter vector.Filter, topK int) ([]vector.Match, error) {
	s.filter, s.topK = filter, topK
	return s.matches, s.queryErr
}

func (s *stubIndex) DeleteByFilter(context.Context, vector.Filter) error { return nil }
func (s *stubIndex) Size() int { return len(s.upserts) }
func (s *stubIndex) Close() error { return nil }

type failingEmbedder struct{ *embedding.FallbackEmbedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend exploded")
}

func newStore(t *testing.T, meetings ...*models.Meeting) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "meetings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, m := range meetings {
		require.NoError(t, store.CreateMeeting(context.Background(), m))
	}
	return store
}

const threeChunkTranscript = "Alice: " + "We need to finalize the launch checklist before the review on Thursday, including the " +
	"marketing copy, the pricing page, the support macros, and the onboarding emails that go out after signup." +
	"\nBob: " + "I can take the pricing page and the support macros. The macros still reference the old plan names " +
	"and the legacy refund policy, so they need a full pass rather than a quick find and replace." +
	"\nCarol: " + "Marketing copy is nearly done. I am waiting on final screenshots from design, which should land " +
	"tomorrow morning. After that I need one more review from legal before anything is published."

func TestIngest_PersistsChunksAndVectors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, &models.Meeting{ID: "M1", UserID: "U1", Title: "Launch sync"})
	idx, err := vector.NewMemoryIndex(dims)
	require.NoError(t, err)
	kw, err := keyword.NewMemoryBleveIndex()
	require.NoError(t, err)
	defer kw.Close()

	svc := NewService(store, embedding.NewFallbackEmbedder(dims), idx, &recordingGenerator{},
		WithChunkSize(250), WithKeywordIndex(kw), WithLogger(zap.NewNop()))

	n, err := svc.Ingest(ctx, IngestRequest{MeetingID: "M1", UserID: "U1", Transcript: threeChunkTranscript})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Size())

	rows, err := store.GetChunksByMeetingID(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, "M1_chunk_"+string(rune('0'+i)), r.VectorID)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, []string{rows[0].SpeakerName, rows[1].SpeakerName, rows[2].SpeakerName})

	matches, err := idx.Query(ctx, embedding.NewFallbackEmbedder(dims).Vector(rows[1].Content),
		vector.Filter{vector.FilterUserID: "U1"}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "M1_chunk_1", matches[0].ID)
	assert.Equal(t, models.UntitledMeeting, matches[0].Metadata.MeetingTitle)
	assert.Equal(t, "Bob", matches[0].Metadata.SpeakerName)

	hits, err := kw.Search(ctx, "U1", "screenshots", 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "M1_chunk_2", hits[0].VectorID)

	// Same transcript again overwrites rather than duplicates.
	n, err = svc.Ingest(ctx, IngestRequest{MeetingID: "M1", UserID: "U1", Transcript: threeChunkTranscript})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Size())
	rows, _ = store.GetChunksByMeetingID(ctx, "M1")
	assert.Len(t, rows, 3)
}

func TestIngest_EmptyTranscript(t *testing.T) {
	idx := &stubIndex{}
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims), idx, &recordingGenerator{})
	n, err := svc.Ingest(context.Background(), IngestRequest{MeetingID: "M1", UserID: "U1", Transcript: "\n  \n"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, idx.upserts)
}

func TestIngest_StoreFailurePropagates(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Close())
	svc := NewService(store, embedding.NewFallbackEmbedder(dims), &stubIndex{}, &recordingGenerator{})
	_, err := svc.Ingest(context.Background(), IngestRequest{MeetingID: "M1", UserID: "U1", Transcript: "Alice: hi"})
	assert.Error(t, err)
}

func TestAnswerForMeeting_StubbedIndex(t *testing.T) {
	created := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	store := newStore(t, &models.Meeting{ID: "M1", UserID: "U1", Title: "Design review", CreatedAt: created})
	idx := &stubIndex{matches: []vector.Match{{
		ID:    "M1_chunk_0",
		Score: 0.9,
		Metadata: vector.Metadata{
			MeetingID: "M1", UserID: "U1", ChunkIndex: 0,
			Content: "Alice: ship the beta next week", SpeakerName: "Alice",
		},
	}}}
	gen := &recordingGenerator{answer: "Alice wants to ship the beta next week."}
	svc := NewService(store, embedding.NewFallbackEmbedder(dims), idx, gen)

	ans, err := svc.AnswerForMeeting(context.Background(), "U1", "M1", "what did Alice say?")
	require.NoError(t, err)
	assert.Equal(t, "Alice wants to ship the beta next week.", ans.Answer)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, models.Source{
		MeetingID:   "M1",
		Content:     "Alice: ship the beta next week",
		SpeakerName: "Alice",
		Confidence:  0.9,
	}, ans.Sources[0])

	assert.Equal(t, vector.Filter{vector.FilterUserID: "U1", vector.FilterMeetingID: "M1"}, idx.filter)
	assert.Equal(t, DefaultMeetingTopK, idx.topK)
	assert.Equal(t, "what did Alice say?", gen.question)
	assert.Contains(t, gen.system, "Meeting: Design review\nDate: Tue May 14 2024\n")
	assert.Contains(t, gen.system, "Alice: Alice: ship the beta next week")
	assert.Contains(t, gen.system, "If the answer isn't in the meeting, say so.")
}

func TestAnswerForMeeting_UnknownMeetingAndSpeaker(t *testing.T) {
	idx := &stubIndex{matches: []vector.Match{
		{ID: "a", Score: 0.8, Metadata: vector.Metadata{Content: "first"}},
		{ID: "b", Score: 0.7, Metadata: vector.Metadata{Content: "second", SpeakerName: "Bob"}},
	}}
	gen := &recordingGenerator{answer: "Something grounded."}
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims), idx, gen)

	_, err := svc.AnswerForMeeting(context.Background(), "U1", "missing", "anything?")
	require.NoError(t, err)
	assert.Contains(t, gen.system, "Meeting: Untitled Meeting\nDate: Unknown\n")
	assert.Contains(t, gen.system, "Unknown: first\n\nBob: second")
}

func TestAnswerForMeeting_ErrorsPropagate(t *testing.T) {
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims),
		&stubIndex{queryErr: vector.ErrUnknownFilterKey}, &recordingGenerator{})
	_, err := svc.AnswerForMeeting(context.Background(), "U1", "M1", "q?")
	assert.ErrorIs(t, err, vector.ErrUnknownFilterKey)

	svc = NewService(newStore(t), failingEmbedder{embedding.NewFallbackEmbedder(dims)}, &stubIndex{}, &recordingGenerator{})
	_, err = svc.AnswerForMeeting(context.Background(), "U1", "M1", "q?")
	assert.Error(t, err)
}

func TestAnswerForAllMeetings_NoResultsSkipsGenerator(t *testing.T) {
	idx := &stubIndex{}
	gen := &recordingGenerator{answer: "should not be used"}
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims), idx, gen)

	ans, err := svc.AnswerForAllMeetings(context.Background(), "U1", "what about budgets?")
	require.NoError(t, err)
	assert.Equal(t, NoResultsAnswer, ans.Answer)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.Sources)
	assert.Zero(t, gen.calls)
	assert.Equal(t, vector.Filter{vector.FilterUserID: "U1"}, idx.filter)
	assert.Equal(t, DefaultAllMeetingsTopK, idx.topK)
}

func TestAnswerForAllMeetings_FailuresBecomeApology(t *testing.T) {
	tests := []struct {
		name string
		svc  *Service
	}{
		{"query error", NewService(newStore(t), embedding.NewFallbackEmbedder(dims),
			&stubIndex{queryErr: errors.New("index offline")}, &recordingGenerator{})},
		{"embed error", NewService(newStore(t), failingEmbedder{embedding.NewFallbackEmbedder(dims)},
			&stubIndex{}, &recordingGenerator{})},
		{"generator error", NewService(newStore(t), embedding.NewFallbackEmbedder(dims),
			&stubIndex{matches: []vector.Match{{ID: "x", Score: 0.5}}}, &recordingGenerator{err: errors.New("boom")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans, err := tt.svc.AnswerForAllMeetings(context.Background(), "U1", "q?")
			require.NoError(t, err)
			assert.Equal(t, FailureAnswer, ans.Answer)
			assert.Empty(t, ans.Sources)
		})
	}
}

func TestAnswerForAllMeetings_GroupsByMeeting(t *testing.T) {
	idx := &stubIndex{matches: []vector.Match{
		{ID: "M1_chunk_0", Score: 0.9, Metadata: vector.Metadata{MeetingID: "M1", MeetingTitle: "Standup", SpeakerName: "Alice", Content: "Alice: budget is fine"}},
		{ID: "M2_chunk_3", Score: 0.6, Metadata: vector.Metadata{MeetingID: "M2", Content: "budget later"}},
	}}
	gen := &recordingGenerator{answer: "The budget is fine per the Standup."}
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims), idx, gen)

	ans, err := svc.AnswerForAllMeetings(context.Background(), "U1", "how is the budget?")
	require.NoError(t, err)
	assert.Equal(t, "The budget is fine per the Standup.", ans.Answer)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "Standup", ans.Sources[0].MeetingTitle)
	assert.Equal(t, 0.6, ans.Sources[1].Confidence)
	assert.Contains(t, gen.system, "Meeting: Standup\nAlice: Alice: budget is fine\n\n---\n\nMeeting: Untitled Meeting\nUnknown: budget later")
	assert.True(t, strings.HasSuffix(gen.system, "mention which meeting it's from."))
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		&models.Meeting{ID: "M1", UserID: "A"},
		&models.Meeting{ID: "M2", UserID: "A"},
		&models.Meeting{ID: "M3", UserID: "B"},
	)
	idx, err := vector.NewMemoryIndex(dims)
	require.NoError(t, err)
	gen := &recordingGenerator{answer: "A grounded answer here."}
	svc := NewService(store, embedding.NewFallbackEmbedder(dims), idx, gen)

	for _, r := range []IngestRequest{
		{MeetingID: "M1", UserID: "A", Transcript: "Alice: roadmap\nBob: hiring"},
		{MeetingID: "M2", UserID: "A", Transcript: "Alice: roadmap again"},
		{MeetingID: "M3", UserID: "B", Transcript: "Alice: roadmap for B"},
	} {
		_, err := svc.Ingest(ctx, r)
		require.NoError(t, err)
	}

	ans, err := svc.AnswerForMeeting(ctx, "A", "M1", "roadmap?")
	require.NoError(t, err)
	require.NotEmpty(t, ans.Sources)
	for _, s := range ans.Sources {
		assert.Equal(t, "M1", s.MeetingID)
	}

	ans, err = svc.AnswerForAllMeetings(ctx, "A", "roadmap?")
	require.NoError(t, err)
	require.Len(t, ans.Sources, 2)
	for _, s := range ans.Sources {
		assert.NotEqual(t, "M3", s.MeetingID)
	}

	// A user with no vectors gets the fixed no-results answer.
	ans, _ = svc.AnswerForAllMeetings(ctx, "C", "roadmap?")
	assert.Equal(t, NoResultsAnswer, ans.Answer)
}

func TestDeleteMeetingVectors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, &models.Meeting{ID: "M1", UserID: "A"}, &models.Meeting{ID: "M2", UserID: "A"})
	idx, err := vector.NewMemoryIndex(dims)
	require.NoError(t, err)
	kw, err := keyword.NewMemoryBleveIndex()
	require.NoError(t, err)
	defer kw.Close()
	svc := NewService(store, embedding.NewFallbackEmbedder(dims), idx, &recordingGenerator{}, WithKeywordIndex(kw))

	_, err = svc.Ingest(ctx, IngestRequest{MeetingID: "M1", UserID: "A", Transcript: "Alice: quarterly plan"})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{MeetingID: "M2", UserID: "A", Transcript: "Bob: quarterly review"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMeetingVectors(ctx, "A", "M1"))
	assert.Equal(t, 1, svc.IndexSize())

	hits, err := svc.Search(ctx, "A", "quarterly", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "M2", hits[0].MeetingID)
}

func TestSearchWithoutKeywordIndex(t *testing.T) {
	svc := NewService(newStore(t), embedding.NewFallbackEmbedder(dims), &stubIndex{}, &recordingGenerator{})
	hits, err := svc.Search(context.Background(), "A", "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
