package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/minutes/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func sampleAnswer() *models.Answer {
	return &models.Answer{
		Answer: "The launch is on Friday.",
		Sources: []models.Source{
			{MeetingID: "m-1", MeetingTitle: "Launch", SpeakerName: "Alice", Content: "We launch Friday.", Confidence: 0.91},
			{MeetingID: "m-2", Content: strings.Repeat("x", 300), Confidence: 0.5},
		},
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Answer != "The launch is on Friday." || len(decoded.Sources) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"The launch is on Friday.",
		"Sources (2):",
		"[1] Meeting: Launch (m-1) | Confidence: 0.9100",
		"Speaker: Alice",
		"[2] Meeting: m-2 | Confidence: 0.5000",
		strings.Repeat("x", 200) + "...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("x", 201)) {
		t.Error("long source content not truncated")
	}
}

func TestWriteAnswer_NoSources(t *testing.T) {
	var buf bytes.Buffer
	ans := &models.Answer{Answer: "Nothing found.", Sources: []models.Source{}}
	if err := WriteAnswer(&buf, ans, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Sources") {
		t.Errorf("unexpected sources header:\n%s", buf.String())
	}
}

func TestWriteSearchHits(t *testing.T) {
	hits := []*models.KeywordHit{
		{VectorID: "m-1_chunk_0", MeetingID: "m-1", MeetingTitle: "Launch", Content: "pricing page", Score: 1.25},
	}
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "pricing", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `Found 1 results for "pricing"`) || !strings.Contains(out, "Title: Launch") {
		t.Errorf("unexpected text output:\n%s", out)
	}

	buf.Reset()
	if err := WriteSearchHits(&buf, "pricing", hits, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Query string               `json:"query"`
		Hits  []*models.KeywordHit `json:"hits"`
	}
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Query != "pricing" || len(decoded.Hits) != 1 || decoded.Hits[0].VectorID != "m-1_chunk_0" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(2048)
	s := Status{Meetings: 3, Vectors: 12, VectorBackend: "memory", StorageDriver: "sqlite", Embedding: "ollama", Dimensions: 768, DiskUsageBytes: &disk}

	var buf bytes.Buffer
	if err := WriteStatus(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"meetings:           3", "vectors:            12", "disk_usage_bytes:   2048", "vector_backend:     memory", "embedding_dims:     768"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, s, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Status
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Meetings != 3 || decoded.DiskUsageBytes == nil || *decoded.DiskUsageBytes != 2048 {
		t.Errorf("decoded = %+v", decoded)
	}
}
