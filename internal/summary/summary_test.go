package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubGenerator struct {
	out    string
	err    error
	system string
	q      string
}

func (g *stubGenerator) Generate(_ context.Context, system, question string) (string, error) {
	g.system, g.q = system, question
	return g.out, g.err
}

func TestSummarize(t *testing.T) {
	gen := &stubGenerator{out: "```json\n{\"summary\": \"Team agreed on the launch date.\", \"actionItems\": [\"Alice books the venue\", \" \", 3]}\n```"}
	res := New(gen).Summarize(context.Background(), "Alice: I'll book the venue")

	assert.Equal(t, "Team agreed on the launch date.", res.Summary)
	assert.Equal(t, []string{"Alice books the venue"}, res.ActionItems)
	assert.Contains(t, gen.system, `"actionItems"`)
	assert.True(t, strings.HasSuffix(gen.q, "\n\nAlice: I'll book the venue"))
}

func TestSummarize_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		gen        *stubGenerator
		transcript string
	}{
		{"empty transcript", &stubGenerator{out: `{"summary":"x"}`}, "  "},
		{"generator error", &stubGenerator{err: errors.New("down")}, "Bob: hi"},
		{"canned prose", &stubGenerator{out: "Here's a summary of the key discussion points."}, "Bob: hi"},
		{"broken json", &stubGenerator{out: `{"summary": "unterminated`}, "Bob: hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.gen).Summarize(context.Background(), tt.transcript)
			assert.Equal(t, FallbackSummary, res.Summary)
			assert.NotNil(t, res.ActionItems)
			assert.Empty(t, res.ActionItems)
		})
	}
}

func TestParse_MissingSummary(t *testing.T) {
	res, ok := Parse(`{"actionItems": []}`)
	assert.True(t, ok)
	assert.Equal(t, "Summary couldn't be generated", res.Summary)
	assert.Empty(t, res.ActionItems)
}
