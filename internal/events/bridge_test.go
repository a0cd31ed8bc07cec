package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/storage"
)

type fakeMsg struct {
	subject    string
	data       []byte
	acked      bool
	naked      bool
	terminated bool
}

func (m *fakeMsg) Data() []byte { return m.data }
func (m *fakeMsg) Subject() string { return m.subject }
func (m *fakeMsg) Ack() error { m.acked = true; return nil }
func (m *fakeMsg) Nak() error { m.naked = true; return nil }
func (m *fakeMsg) NakWithDelay(d time.Duration) error { m.naked = true; return nil }
func (m *fakeMsg) InProgress() error { return nil }
func (m *fakeMsg) Term() error { m.terminated = true; return nil }
func (m *fakeMsg) TermWithReason(reason string) error { m.terminated = true; return nil }
func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return nil, nil
}
func (m *fakeMsg) Headers() nats.Header { return nil }
func (m *fakeMsg) Reply() string { return "" }
func (m *fakeMsg) DoubleAck(ctx context.Context) error { return nil }

type recordingHandler struct {
	meetingID  string
	transcript string
	err        error
	calls      int
}

func (h *recordingHandler) ProcessTranscript(_ context.Context, meetingID, transcript string) (*models.Meeting, error) {
	h.calls++
	h.meetingID, h.transcript = meetingID, transcript
	return &models.Meeting{ID: meetingID}, h.err
}

func newTestBridge(h TranscriptHandler) *Bridge {
	return &Bridge{handler: h, logger: zap.NewNop(), ctx: context.Background()}
}

func TestHandleMessage_ProcessesSegments(t *testing.T) {
	h := &recordingHandler{}
	b := newTestBridge(h)
	msg := &fakeMsg{subject: "meetings.transcript.ready", data: []byte(
		`{"meetingId":"m1","transcript":[{"speaker":"Alice","words":[{"word":"Hello"},{"word":"team"}]}]}`)}

	b.handleMessage(msg)

	if h.meetingID != "m1" || h.transcript != "Alice: Hello team" {
		t.Errorf("handler got %q / %q", h.meetingID, h.transcript)
	}
	if !msg.acked {
		t.Error("expected message to be acked")
	}
}

func TestHandleMessage_Malformed(t *testing.T) {
	for _, data := range []string{`not json`, `{"transcript":"x"}`, `{"meetingId":"m1"}`} {
		h := &recordingHandler{}
		msg := &fakeMsg{subject: "meetings.transcript.ready", data: []byte(data)}
		newTestBridge(h).handleMessage(msg)
		if h.calls != 0 {
			t.Errorf("%s: handler should not be called", data)
		}
		if !msg.acked {
			t.Errorf("%s: malformed message should be acked", data)
		}
	}
}

func TestHandleMessage_Failures(t *testing.T) {
	payload := []byte(`{"meetingId":"m1","transcript":"Alice: hi"}`)

	notFound := &fakeMsg{data: payload}
	newTestBridge(&recordingHandler{err: fmt.Errorf("meeting m1: %w", storage.ErrNotFound)}).handleMessage(notFound)
	if !notFound.terminated || notFound.acked {
		t.Error("unknown meeting should terminate delivery")
	}

	transient := &fakeMsg{data: payload}
	newTestBridge(&recordingHandler{err: errors.New("db locked")}).handleMessage(transient)
	if !transient.naked || transient.acked {
		t.Error("transient failure should nak for redelivery")
	}
}

func TestProcessedPayload(t *testing.T) {
	data, err := json.Marshal(Processed{MeetingID: "m1", UserID: "u1", Chunks: 3})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	_ = json.Unmarshal(data, &got)
	if got["meetingId"] != "m1" || got["userId"] != "u1" || got["chunks"] != float64(3) {
		t.Errorf("unexpected payload %s", data)
	}
}

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_TranscriptRoundTrip(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	suffix := time.Now().UnixNano()
	cfg := config.NATSConfig{
		URL:               natsURL,
		Stream:            fmt.Sprintf("MEETINGS_TEST_%d", suffix),
		Consumer:          fmt.Sprintf("minutes-test-%d", suffix),
		TranscriptSubject: fmt.Sprintf("test.%d.transcript.ready", suffix),
		ProcessedSubject:  fmt.Sprintf("test.%d.rag.processed", suffix),
	}

	b, err := Connect(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	done := make(chan string, 1)
	h := handlerFunc(func(meetingID, transcript string) { done <- meetingID })
	if err := b.Start(context.Background(), h); err != nil {
		t.Fatal(err)
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Drain()
	if err := nc.Publish(cfg.TranscriptSubject, []byte(`{"meetingId":"m-int","transcript":"Alice: hi"}`)); err != nil {
		t.Fatal(err)
	}

	select {
	case id := <-done:
		if id != "m-int" {
			t.Errorf("got meeting %s", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("transcript event not consumed")
	}

	if err := b.PublishProcessed(context.Background(), "u1", "m-int", 1); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

type handlerFunc func(meetingID, transcript string)

func (f handlerFunc) ProcessTranscript(_ context.Context, meetingID, transcript string) (*models.Meeting, error) {
	f(meetingID, transcript)
	return &models.Meeting{ID: meetingID}, nil
}
