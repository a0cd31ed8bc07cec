package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// batchFallbackText seeds the uniform vector used when a batch cannot be embedded.
const batchFallbackText = "fallback"

// Provider is the embedder used by the RAG pipeline. It calls a primary embedder and
// substitutes deterministic fallback vectors when the primary fails, so provider
// outages never surface to callers. Only ErrEmptyText is returned from Embed.
type Provider struct {
	primary        Embedder
	fallback       *FallbackEmbedder
	dimensions     int
	cache          *EmbeddingCache
	limiter        *rate.Limiter
	maxConcurrency int
	logger         *zap.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger for fallback warnings.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCache caches primary embeddings for up to size texts.
func WithCache(size int) ProviderOption {
	return func(p *Provider) {
		p.cache = NewEmbeddingCache(size)
	}
}

// WithRateLimit throttles calls to the primary to rps requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) ProviderOption {
	return func(p *Provider) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxConcurrency bounds the goroutines EmbedBatch runs at once. n <= 0 means one per text.
func WithMaxConcurrency(n int) ProviderOption {
	return func(p *Provider) {
		p.maxConcurrency = n
	}
}

// NewProvider wraps primary (nil means fallback only) with vectors of the given dimension.
func NewProvider(primary Embedder, dimensions int, opts ...ProviderOption) *Provider {
	p := &Provider{
		primary:    primary,
		fallback:   NewFallbackEmbedder(dimensions),
		dimensions: dimensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed returns the primary embedding for text, or the fallback vector if the primary
// is missing or fails.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if p.primary == nil {
		return p.fallback.Vector(text), nil
	}
	if cached, ok := p.cache.Get(text); ok {
		return cached, nil
	}
	emb, err := p.embedPrimary(ctx, text)
	if err != nil {
		p.logger.Warn("embedding provider unavailable, using fallback vector", zap.Error(err))
		return p.fallback.Vector(text), nil
	}
	p.cache.Set(text, emb)
	return emb, nil
}

func (p *Provider) embedPrimary(ctx context.Context, text string) ([]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	emb, err := p.primary.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(emb) != p.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), p.dimensions)
	}
	return emb, nil
}

// EmbedBatch embeds texts concurrently and returns vectors in input order. If any
// text fails (for example a blank one), every text in the batch gets the same
// fallback vector and no error is returned.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	limit := p.maxConcurrency
	if limit <= 0 || limit > len(texts) {
		limit = len(texts)
	}
	sem := make(chan struct{}, max(limit, 1))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("embedding text %d panicked: %v", i, r)
				}
			}()
			out[i], errs[i] = p.Embed(ctx, text)
		}(i, text)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("batch embedding failed, using fallback vectors for the whole batch",
			zap.Int("texts", len(texts)), zap.Error(err))
		dummy := p.fallback.Vector(batchFallbackText)
		for i := range out {
			out[i] = append([]float32(nil), dummy...)
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Fallback reports whether the provider runs without a primary embedder.
func (p *Provider) Fallback() bool {
	return p.primary == nil
}

// Close closes the primary embedder.
func (p *Provider) Close() error {
	if p.primary != nil {
		return p.primary.Close()
	}
	return nil
}
