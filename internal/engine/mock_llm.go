package engine

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter is a test implementation of llm.Client. It answers with the
// reply of the first rule whose key occurs in the prompt, in insertion order.
type MockCompleter struct {
	fallback MockReply
	rules    []mockRule
	calls    []MockLLMCall
	mu       sync.Mutex
}

// MockReply is a canned completion or failure.
type MockReply struct {
	Err     error
	Content string
}

// MockLLMCall records a completion request.
type MockLLMCall struct {
	Prompt string
	Reply  MockReply
}

type mockRule struct {
	contains string
	reply    MockReply
}

// NewMockCompleter creates a completer that answers unmatched prompts with an
// empty reply.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// On registers content as the reply for prompts containing substr.
func (m *MockCompleter) On(substr, content string) *MockCompleter {
	return m.OnReply(substr, MockReply{Content: content})
}

// OnReply registers reply for prompts containing substr.
func (m *MockCompleter) OnReply(substr string, reply MockReply) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, reply: reply})
	return m
}

// Otherwise sets the reply for prompts no rule matches.
func (m *MockCompleter) Otherwise(reply MockReply) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = reply
	return m
}

// Complete implements llm.Client.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reply := m.fallback
	for _, rule := range m.rules {
		if strings.Contains(prompt, rule.contains) {
			reply = rule.reply
			break
		}
	}

	m.calls = append(m.calls, MockLLMCall{Prompt: prompt, Reply: reply})
	return reply.Content, reply.Err
}

// Calls returns the recorded requests.
func (m *MockCompleter) Calls() []MockLLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockLLMCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
