package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMUnavailable is returned when no LLM client is configured.
var ErrLLMUnavailable = errors.New("llm client not configured")

// LLMAvailable reports whether an LLM client is configured.
func LLMAvailable() bool {
	return cfg.LLMClient != nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt using the configured temperature and max_tokens
// and returns the response with code fences stripped.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMUnavailable
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt,
		llm.WithChatTemperature(cfg.LLMTemperature),
		llm.WithChatMaxTokens(cfg.LLMMaxTokens),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}
