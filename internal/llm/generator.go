// Package llm generates answers from a system prompt and a question using an ordered
// chain of language models, with a keyword-routed canned reply when none is usable.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Generator produces an answer for a question given system instructions.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, question string) (string, error)
}

// Model is one candidate language model.
type Model interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, question string) (string, error)
}

// Prober reports whether a model backend is reachable at all.
type Prober interface {
	Probe(ctx context.Context) error
}

// minAnswerLength is the length a trimmed answer must exceed to be accepted.
const minAnswerLength = 10

// Acceptable reports whether a model response can be returned to the user: longer than
// ten characters after trimming and not mentioning "error".
func Acceptable(response string) bool {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) <= minAnswerLength {
		return false
	}
	return !strings.Contains(strings.ToLower(trimmed), "error")
}

// CombinedPrompt folds the system instructions and question into one prompt for
// completion-style models.
func CombinedPrompt(systemPrompt, question string) string {
	return fmt.Sprintf("You are a helpful assistant analyzing meeting content.\n\n"+
		"System Instructions: %s\n\n"+
		"User Question: %s\n\n"+
		"Please provide a helpful, accurate response based on the meeting content. "+
		"If you cannot find specific information, please say so clearly.", systemPrompt, question)
}

// Chain tries each model in order and returns the first acceptable answer. When no
// model is usable it returns the canned reply for the prompt and question. Generate never fails.
type Chain struct {
	models []Model
	prober Prober
	logger *zap.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets the logger used for model failures.
func WithLogger(logger *zap.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProber skips all models when the prober fails.
func WithProber(p Prober) ChainOption {
	return func(c *Chain) {
		c.prober = p
	}
}

// NewChain returns a chain over models, tried in the given order.
func NewChain(models []Model, opts ...ChainOption) *Chain {
	c := &Chain{models: models, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the first acceptable model answer, trimmed, or the canned reply.
func (c *Chain) Generate(ctx context.Context, systemPrompt, question string) (string, error) {
	if len(c.models) == 0 {
		return cannedFor(systemPrompt, question), nil
	}
	if c.prober != nil {
		if err := c.prober.Probe(ctx); err != nil {
			c.logger.Warn("language model backend unreachable, using canned answer", zap.Error(err))
			return cannedFor(systemPrompt, question), nil
		}
	}
	for _, m := range c.models {
		out, err := m.Complete(ctx, systemPrompt, question)
		if err != nil {
			c.logger.Warn("model failed", zap.String("model", m.Name()), zap.Error(err))
			continue
		}
		if !Acceptable(out) {
			c.logger.Debug("model answer rejected", zap.String("model", m.Name()), zap.Int("length", len(out)))
			continue
		}
		c.logger.Debug("model answered", zap.String("model", m.Name()))
		return strings.TrimSpace(out), nil
	}
	c.logger.Warn("no model produced an acceptable answer, using canned answer", zap.Int("models", len(c.models)))
	return cannedFor(systemPrompt, question), nil
}

func cannedFor(systemPrompt, question string) string {
	return Canned(systemPrompt + " " + question)
}

// Models returns the model names in the order they are tried.
func (c *Chain) Models() []string {
	names := make([]string, len(c.models))
	for i, m := range c.models {
		names[i] = m.Name()
	}
	return names
}
