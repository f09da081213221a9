package llm

import "errors"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInlineDataUnsupported is returned by providers that cannot accept
// inline binary attachments (everything except Gemini and Anthropic).
var ErrInlineDataUnsupported = errors.New("provider does not support inline binary input")

// InlineData is a base64-encoded binary attachment (e.g. a PDF) passed
// to a multimodal model untouched.
type InlineData struct {
	Data     string // base64, no data: prefix
	MIMEType string
}

// Part is one piece of a message: either text or an inline attachment.
type Part struct {
	Text       string
	InlineData *InlineData
}

// Message represents a single message in a conversation.
type Message struct {
	Role  Role
	Parts []Part
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		s += p.Text
	}
	return s
}

// HasInlineData reports whether any part carries a binary attachment.
func (m Message) HasInlineData() bool {
	for _, p := range m.Parts {
		if p.InlineData != nil {
			return true
		}
	}
	return false
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
