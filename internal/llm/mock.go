package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider returns a scripted sequence of responses, one per call, for
// deterministic agent-loop tests. Calling it more times than len(Responses)
// repeats the last response. Safe for concurrent use, since patch_vote and
// the orchestrator's worker pool both call a shared provider from several
// goroutines at once.
type MockProvider struct {
	ModelName string
	Responses []string

	mu    sync.Mutex
	calls int
}

func (m *MockProvider) Model() string { return m.ModelName }

// Calls reports how many times Call has been invoked so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Call(_ context.Context, _ []Message) (Response, error) {
	if len(m.Responses) == 0 {
		return Response{}, fmt.Errorf("llm: mock provider has no scripted responses")
	}
	m.mu.Lock()
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	m.mu.Unlock()
	text := m.Responses[idx]
	return Response{Text: text, InputTokens: len(text) / 4, OutputTokens: len(text) / 4}, nil
}
