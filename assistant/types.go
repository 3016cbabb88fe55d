/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"context"
	"time"

	"github.com/acronis/go-aikit/langdetect"
)

// Kind is a kind of the request.
type Kind string

// Request kinds.
const (
	KindCompletion    Kind = "completion"
	KindChat          Kind = "chat"
	KindAnalysis      Kind = "analysis"
	KindDocumentation Kind = "documentation"
	KindTests         Kind = "tests"
)

// Finish reasons.
const (
	FinishReasonStop  = "stop"
	FinishReasonError = "error"
)

// Role is an author of the conversation message.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a generation request.
type Request struct {
	Kind        Kind
	Prompt      string
	Context     string
	Language    langdetect.Language
	MaxTokens   int

	// Task narrows down what is asked of the backend, e.g. the analysis type,
	// the documentation type or the test framework.
	Task string

	// Temperature is the sampling temperature. The default of the request kind is used if nil,
	// so an explicit zero is kept as is.
	Temperature *float64

	// CacheKey overrides the fingerprint computed from the request content.
	CacheKey string

	// History is the preceding conversation. It's filled by Assistant.Chat.
	History []Message

	// ID is a unique request identifier. It's filled by Assistant.
	ID string
}

// Float64 returns a pointer to v. It's handy for setting Request.Temperature.
func Float64(v float64) *float64 {
	return &v
}

// Usage reports token consumption of the request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a generated response.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string
	CreatedAt    time.Time
}

// Backend generates responses. It's called only after the request has been admitted by the pacer.
type Backend interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Pacer limits the rate of backend calls.
type Pacer interface {
	WaitIfNeeded(ctx context.Context) error
}

// ResponseCache stores generated completions by fingerprint.
type ResponseCache interface {
	Get(fingerprint string) (Response, bool)
	Put(fingerprint string, resp Response)
	Clear()
	Len() int
}
