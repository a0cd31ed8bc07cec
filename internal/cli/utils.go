// Package cli formats command output for the minutes CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

const snippetLen = 200

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its sources to w.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n", ans.Answer)
	if len(ans.Sources) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSources (%d):\n", len(ans.Sources))
	for i, src := range ans.Sources {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] Meeting: %s | Confidence: %.4f\n", i+1, sourceMeeting(src), src.Confidence)
		if src.SpeakerName != "" {
			fmt.Fprintf(w, "Speaker: %s\n", src.SpeakerName)
		}
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(src.Content, snippetLen))
	}
	fmt.Fprintln(w)
	return nil
}

func sourceMeeting(src models.Source) string {
	if src.MeetingTitle != "" {
		return fmt.Sprintf("%s (%s)", src.MeetingTitle, src.MeetingID)
	}
	return src.MeetingID
}

// WriteSearchHits writes keyword search hits to w.
func WriteSearchHits(w io.Writer, query string, hits []*models.KeywordHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]any{"query": query, "hits": hits})
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Meeting: %s\n", i+1, h.Score, h.MeetingID)
		if h.MeetingTitle != "" {
			fmt.Fprintf(w, "Title: %s\n", h.MeetingTitle)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Content, snippetLen))
	}
	return nil
}

// Status is the output of the status command.
type Status struct {
	Meetings       int64  `json:"meetings"`
	Vectors        int    `json:"vectors"`
	VectorBackend  string `json:"vector_backend"`
	StorageDriver  string `json:"storage_driver"`
	Embedding      string `json:"embedding_provider"`
	Dimensions     int    `json:"embedding_dimensions"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

// WriteStatus writes status to w.
func WriteStatus(w io.Writer, s Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "meetings:           %d   # meetings stored\n", s.Meetings)
	fmt.Fprintf(w, "vectors:            %d   # transcript chunks in the vector index\n", s.Vectors)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", *s.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "vector_backend:     %s\n", s.VectorBackend)
	fmt.Fprintf(w, "storage_driver:     %s\n", s.StorageDriver)
	fmt.Fprintf(w, "embedding:          %s\n", s.Embedding)
	if s.Dimensions > 0 {
		fmt.Fprintf(w, "embedding_dims:     %d\n", s.Dimensions)
	}
	return nil
}
