/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acronis/go-aikit/assistant"
	"github.com/acronis/go-aikit/internal/libinfo"
	"github.com/acronis/go-aikit/log"
)

// Sampling parameters sent with every request.
const (
	defaultTopK = 40
	defaultTopP = 0.95
)

const maxErrorMessageLen = 512

// contentFields are checked in order when looking for the generated text in a response object.
var contentFields = []string{"content", "text", "generated_text", "output"}

// ErrResponseTooLarge is returned when the response body exceeds the configured size limit.
// It wraps assistant.ErrMalformedResponse.
var ErrResponseTooLarge = fmt.Errorf("%w: size limit exceeded", assistant.ErrMalformedResponse)

// ErrNoContent is returned when the response doesn't contain generated text in any known field.
// It wraps assistant.ErrMalformedResponse.
var ErrNoContent = fmt.Errorf("%w: no content found", assistant.ErrMalformedResponse)

// StatusError is returned when the backend responds with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable tells whether the error returned by HTTPBackend.Generate or by the assistant wrapping it is transient.
// Transport failures, 429 and 5xx responses and responses with the error finish reason are retryable.
// Cancellation of the caller's context and malformed responses are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, assistant.ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, assistant.ErrBackendFailed) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Opts represents options for HTTPBackend.
type Opts struct {
	// Transport is used for sending requests. http.DefaultTransport is used if nil.
	Transport http.RoundTripper

	// Logger is used for logging failed and slow requests. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector is used for collecting request durations. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// HTTPBackend generates responses by sending JSON requests to an HTTP endpoint.
type HTTPBackend struct {
	client          *http.Client
	url             string
	model           string
	maxResponseSize int64
}

var _ assistant.Backend = (*HTTPBackend)(nil)

// New creates a new HTTPBackend.
// Empty User-Agent in cfg means the library name with its version.
func New(cfg *Config, opts Opts) *HTTPBackend {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = libinfo.UserAgent()
	}
	transport := NewTransport(opts.Transport, TransportOpts{
		UserAgent:            userAgent,
		AuthToken:            cfg.APIKey,
		Logger:               opts.Logger,
		LoggingMode:          cfg.Log.Mode,
		SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestThreshold),
		MetricsCollector:     opts.MetricsCollector,
	})
	maxResponseSize := int64(cfg.MaxResponseSize)
	if maxResponseSize <= 0 {
		maxResponseSize = int64(DefaultMaxResponseSize)
	}
	return &HTTPBackend{
		client:          &http.Client{Transport: transport, Timeout: time.Duration(cfg.Timeout)},
		url:             cfg.URL,
		model:           cfg.Model,
		maxResponseSize: maxResponseSize,
	}
}

type generateInstance struct {
	Content  string              `json:"content"`
	Context  string              `json:"context,omitempty"`
	Language string              `json:"language,omitempty"`
	Task     string              `json:"task,omitempty"`
	History  []assistant.Message `json:"history,omitempty"`
}

type generateParameters struct {
	MaxOutputTokens int      `json:"maxOutputTokens"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopK            int      `json:"topK"`
	TopP            float64  `json:"topP"`
}

type generateRequest struct {
	Model      string             `json:"model,omitempty"`
	Kind       string             `json:"kind"`
	Instances  []generateInstance `json:"instances"`
	Parameters generateParameters `json:"parameters"`
}

type generateResponseMeta struct {
	Model string `json:"model"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends the request to the backend and extracts the generated text from the response.
func (b *HTTPBackend) Generate(ctx context.Context, req *assistant.Request) (*assistant.Response, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model: b.model,
		Kind:  string(req.Kind),
		Instances: []generateInstance{{
			Content:  req.Prompt,
			Context:  req.Context,
			Language: string(req.Language),
			Task:     req.Task,
			History:  req.History,
		}},
		Parameters: generateParameters{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
			TopK:            defaultTopK,
			TopP:            defaultTopP,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx = NewContextWithRequestKind(NewContextWithRequestID(ctx, req.ID), string(req.Kind))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, readErr := readLimited(resp.Body, b.maxResponseSize)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorMessageLen {
			msg = msg[:maxErrorMessageLen]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if readErr != nil {
		return nil, readErr
	}
	return b.parseResponse(respBody)
}

func (b *HTTPBackend) parseResponse(body []byte) (*assistant.Response, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", assistant.ErrMalformedResponse, err)
	}
	content, ok := extractContent(data)
	if !ok {
		return nil, ErrNoContent
	}

	var meta generateResponseMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("%w: unmarshal metadata: %w", assistant.ErrMalformedResponse, err)
	}
	result := &assistant.Response{Content: content, FinishReason: assistant.FinishReasonStop, Model: meta.Model}
	if result.Model == "" {
		result.Model = b.model
	}
	switch {
	case meta.Usage != nil:
		result.Usage = assistant.Usage{
			PromptTokens:     meta.Usage.PromptTokens,
			CompletionTokens: meta.Usage.CompletionTokens,
			TotalTokens:      meta.Usage.TotalTokens,
		}
	case meta.UsageMetadata != nil:
		result.Usage = assistant.Usage{
			PromptTokens:     meta.UsageMetadata.PromptTokenCount,
			CompletionTokens: meta.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      meta.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return data, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > limit {
		return data[:limit], fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, limit)
	}
	return data, nil
}

// extractContent looks for the generated text in the first item of a known list field
// (predictions, candidates, choices) and then in the top-level object.
func extractContent(data map[string]interface{}) (string, bool) {
	for _, listKey := range []string{"predictions", "candidates", "choices"} {
		items, ok := data[listKey].([]interface{})
		if !ok || len(items) == 0 {
			continue
		}
		if item, ok := items[0].(map[string]interface{}); ok {
			if content, found := extractContentField(item); found {
				return content, true
			}
		}
	}
	return extractContentField(data)
}

func extractContentField(obj map[string]interface{}) (string, bool) {
	for _, field := range contentFields {
		switch v := obj[field].(type) {
		case string:
			return strings.TrimSpace(v), true
		case map[string]interface{}:
			if text, ok := joinParts(v); ok {
				return text, true
			}
		}
	}
	if msg, ok := obj["message"].(map[string]interface{}); ok {
		return extractContentField(msg)
	}
	return "", false
}

// joinParts concatenates texts of the {"parts": [{"text": ...}]} object.
func joinParts(obj map[string]interface{}) (string, bool) {
	parts, ok := obj["parts"].([]interface{})
	if !ok {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, p := range parts {
		part, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			sb.WriteString(text)
			found = true
		}
	}
	return strings.TrimSpace(sb.String()), found
}
