package improve

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"golang.org/x/time/rate"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "claude-3-5-sonnet-20241022"

// NewAnthropicModel returns a langchaingo model backed by the Anthropic API.
func NewAnthropicModel(apiKey config.Secret, model string) (llms.Model, error) {
	if !apiKey.IsSet() {
		return nil, errors.New("anthropic API key required")
	}
	if model == "" {
		model = DefaultModel
	}
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey.Value()),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating anthropic client: %w", err)
	}
	return llm, nil
}

// newLimiter converts a per-minute budget into a token bucket.
func newLimiter(perMinute float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perMinute/60), burst)
}
