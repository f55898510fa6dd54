package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallLLMUnavailable(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { Init(saved) })
	Init(DefaultConfig())

	if LLMAvailable() {
		t.Fatal("default config should have no LLM client")
	}
	if _, err := CallLLM(context.Background(), "plan"); !errors.Is(err, ErrLLMUnavailable) {
		t.Errorf("CallLLM() error = %v, want ErrLLMUnavailable", err)
	}
}
