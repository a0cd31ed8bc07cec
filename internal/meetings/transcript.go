package meetings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Segment is one speaker turn as delivered by the recording bot.
type Segment struct {
	Speaker string `json:"speaker"`
	Words   []Word `json:"words"`
}

// Word is one recognized word in a segment.
type Word struct {
	Word string `json:"word"`
}

// defaultSpeaker labels segments without a speaker.
const defaultSpeaker = "Speaker"

// FormatTranscript renders segments as "speaker: words" lines.
func FormatTranscript(segments []Segment) string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		speaker := s.Speaker
		if speaker == "" {
			speaker = defaultSpeaker
		}
		words := make([]string, len(s.Words))
		for j, w := range s.Words {
			words[j] = w.Word
		}
		lines[i] = speaker + ": " + strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

// ErrNoTranscript is returned when a payload carries no transcript text.
var ErrNoTranscript = errors.New("no transcript content found")

// TranscriptText accepts a transcript as a segment array, a plain string or an
// object with a "text" field.
func TranscriptText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", ErrNoTranscript
	}
	var text string
	switch trimmed[0] {
	case '[':
		var segments []Segment
		if err := json.Unmarshal(raw, &segments); err != nil {
			return "", fmt.Errorf("invalid transcript segments: %w", err)
		}
		text = FormatTranscript(segments)
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("invalid transcript string: %w", err)
		}
	case '{':
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("invalid transcript object: %w", err)
		}
		text = obj.Text
	default:
		return "", fmt.Errorf("unsupported transcript payload")
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}
