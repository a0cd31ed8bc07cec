// Package summary asks the answer generator for a short meeting summary and its action items.
package summary

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/llm"
)

// FallbackSummary is used when no usable summary can be produced.
const FallbackSummary = "Meeting transcript processed successfully. Please check the full transcript for details."

// missingSummary is used when the model answered JSON without a summary.
const missingSummary = "Summary couldn't be generated"

const systemPrompt = `You are an AI assistant that analyzes meeting transcripts and provides concise summaries and action items.

Please analyze the meeting transcript and provide:
1. A clear, concise summary (2-3 sentences) of the main discussion points and decisions
2. A list of specific action items mentioned in the meeting

Format your response as JSON:
{
    "summary": "Your summary here",
    "actionItems": [
        "Action item description 1",
        "Action item description 2"
    ]
}

Return only the action item text as strings.
If no clear action items are mentioned, return an empty array for actionItems.`

// Result is a meeting summary. ActionItems is never nil.
type Result struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
}

// Summarizer produces Results through a generator.
type Summarizer struct {
	generator llm.Generator
	logger    *zap.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Summarizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a summarizer backed by generator.
func New(generator llm.Generator, opts ...Option) *Summarizer {
	s := &Summarizer{generator: generator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize never fails; any problem yields the fallback summary with no action items.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return fallback()
	}
	out, err := s.generator.Generate(ctx, systemPrompt, "Please analyze this meeting transcript:\n\n"+transcript)
	if err != nil {
		s.logger.Warn("summary generation failed", zap.Error(err))
		return fallback()
	}
	res, ok := Parse(out)
	if !ok {
		s.logger.Debug("summary response was not JSON", zap.Int("length", len(out)))
		return fallback()
	}
	return res
}

// Parse extracts the JSON object from a model response, tolerating surrounding prose
// or code fences.
func Parse(response string) (Result, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return Result{}, false
	}
	var raw struct {
		Summary     string `json:"summary"`
		ActionItems []any  `json:"actionItems"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return Result{}, false
	}
	res := Result{Summary: strings.TrimSpace(raw.Summary), ActionItems: []string{}}
	if res.Summary == "" {
		res.Summary = missingSummary
	}
	for _, item := range raw.ActionItems {
		if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
			res.ActionItems = append(res.ActionItems, strings.TrimSpace(text))
		}
	}
	return res, true
}

func fallback() Result {
	return Result{Summary: FallbackSummary, ActionItems: []string{}}
}
