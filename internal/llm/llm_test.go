package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{TextMessage(RoleUser, "hello")},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestMessageText(t *testing.T) {
	msg := Message{Role: RoleUser, Parts: []Part{
		{Text: "one "},
		{InlineData: &InlineData{Data: "aGk=", MIMEType: "application/pdf"}},
		{Text: "two"},
	}}
	if got := msg.Text(); got != "one two" {
		t.Errorf("Text() = %q", got)
	}
	if !msg.HasInlineData() {
		t.Error("expected HasInlineData")
	}
	if TextMessage(RoleUser, "x").HasInlineData() {
		t.Error("text message should not carry inline data")
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	if _, err := NewProvider("grok", "model"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	if _, err := NewProvider("google", "gemini-3-pro-preview"); err == nil {
		t.Error("expected error when GOOGLE_API_KEY is unset")
	}
}

func TestRateLimiterPassthrough(t *testing.T) {
	mock := NewMockProvider("test")

	// rpm <= 0 returns the provider unchanged.
	if p := NewRateLimitedProvider(mock, 0); p != Provider(mock) {
		t.Error("expected passthrough for rpm=0")
	}

	limited := NewRateLimitedProvider(mock, 600)
	for i := 0; i < 3; i++ {
		if _, err := limited.Complete(context.Background(), CompletionRequest{}); err != nil {
			t.Fatalf("Complete[%d]: %v", i, err)
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	mock := NewMockProvider("test")
	limited := NewRateLimitedProvider(mock, 1)

	// Exhaust the single token.
	if _, err := limited.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := limited.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
