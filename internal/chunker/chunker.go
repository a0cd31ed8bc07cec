// Package chunker splits meeting transcripts into line-aligned chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkSize is the default soft cap on chunk length, in characters.
const MaxChunkSize = 500

// Chunk is one ordered slice of a transcript.
type Chunk struct {
	Content string `json:"content"`
	Index   int    `json:"chunk_index"`
}

// Chunker accumulates transcript lines into chunks of at most maxSize characters.
// A single line longer than maxSize is emitted whole.
type Chunker struct {
	maxSize int
}

// New creates a chunker with the given maximum chunk size. Non-positive sizes use MaxChunkSize.
func New(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = MaxChunkSize
	}
	return &Chunker{maxSize: maxSize}
}

// Split splits transcript with the default size.
func Split(transcript string) []Chunk {
	return New(MaxChunkSize).Chunk(transcript)
}

// Chunk splits transcript on line breaks. Blank lines are skipped and chunk
// indexes run 0..n-1. Empty input yields nil.
func (c *Chunker) Chunk(transcript string) []Chunk {
	var chunks []Chunk
	var buf strings.Builder
	bufLen := 0
	emit := func() {
		content := strings.TrimSpace(buf.String())
		if content != "" {
			chunks = append(chunks, Chunk{Content: content, Index: len(chunks)})
		}
		buf.Reset()
		bufLen = 0
	}
	for _, line := range strings.Split(transcript, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineLen := utf8.RuneCountInString(line)
		if bufLen+lineLen > c.maxSize && bufLen > 0 {
			emit()
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		bufLen += lineLen + 1
	}
	emit()
	return chunks
}

var speakerRe = regexp.MustCompile(`^([A-Za-z\s]+):\s*`)

// ExtractSpeaker returns the speaker tag at the start of text ("Alice: ..." gives "Alice").
// Only the leading tag is considered.
func ExtractSpeaker(text string) (string, bool) {
	m := speakerRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}

// VectorID returns the deterministic vector id for a meeting chunk.
func VectorID(meetingID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", meetingID, chunkIndex)
}
