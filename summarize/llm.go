// Package summarize turns tracker issues into short Impact/Fix/Test summaries using a
// language model.
package summarize

import (
	"context"
	"fmt"

	"jira-insights-bot/config"

	"golang.org/x/time/rate"
)

// LLM completes a single prompt.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	maxOutputTokens = 300
	temperature     = 0.7
)

// NewLLM builds the configured provider, rate limited to cfg.LLMRPS calls per second.
func NewLLM(ctx context.Context, cfg config.Config) (LLM, error) {
	var (
		llm LLM
		err error
	)
	switch cfg.LLMProvider {
	case "openai":
		llm, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "gemini", "":
		llm, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimited(llm, cfg.LLMRPS), nil
}

// Limited spaces calls to the wrapped LLM.
type Limited struct {
	next    LLM
	limiter *rate.Limiter
}

func NewLimited(next LLM, rps float64) *Limited {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *Limited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}
	return l.next.Complete(ctx, prompt)
}
