package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited wraps a provider with a requests-per-minute limiter.
type Limited struct {
	Provider
	limiter *rate.Limiter
}

// NewLimited returns p throttled to rpm requests per minute. rpm <= 0
// returns p unchanged.
func NewLimited(p Provider, rpm int) Provider {
	if rpm <= 0 {
		return p
	}
	return &Limited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Generate waits for a slot before delegating. Waiting respects ctx, so a
// caller's deadline also bounds time spent queued.
func (l *Limited) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limit: %w", err)
	}
	return l.Provider.Generate(ctx, prompt, maxTokens)
}
