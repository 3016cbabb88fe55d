/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-aikit/assistant"
	"github.com/acronis/go-aikit/config"
	"github.com/acronis/go-aikit/log/logtest"
	"github.com/acronis/go-aikit/testutil"
)

func newTestConfig(url string) *Config {
	return &Config{
		URL:             url,
		Model:           DefaultModel,
		Timeout:         config.TimeDuration(5 * time.Second),
		MaxResponseSize: config.ByteSize(1024),
		UserAgent:       "aikit-test",
		Log:             LogConfig{Mode: LoggingModeFailed},
	}
}

func TestHTTPBackend_Generate(t *testing.T) {
	var gotPayload generateRequest
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{"predictions":[{"content":"  return a + b\n"}],` +
			`"usage":{"prompt_tokens":7,"completion_tokens":5,"total_tokens":12}}`))
	}))
	defer srv.Close()

	cfg := newTestConfig(srv.URL)
	cfg.APIKey = "secret"
	b := New(cfg, Opts{})
	resp, err := b.Generate(context.Background(), &assistant.Request{
		ID:          "req-1",
		Kind:        assistant.KindCompletion,
		Prompt:      "def add(a, b):",
		Context:     "import math",
		Language:    "python",
		Task:        "pytest",
		MaxTokens:   512,
		Temperature: assistant.Float64(0.3),
		History:     []assistant.Message{{Role: assistant.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, &assistant.Response{
		Content:      "return a + b",
		FinishReason: assistant.FinishReasonStop,
		Model:        DefaultModel,
		Usage:        assistant.Usage{PromptTokens: 7, CompletionTokens: 5, TotalTokens: 12},
	}, resp)

	require.Equal(t, "aikit-test", gotHeaders.Get("User-Agent"))
	require.Equal(t, "req-1", gotHeaders.Get("X-Request-ID"))
	require.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))
	require.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	require.Equal(t, DefaultModel, gotPayload.Model)
	require.Equal(t, "completion", gotPayload.Kind)
	require.Equal(t, []generateInstance{{
		Content:  "def add(a, b):",
		Context:  "import math",
		Language: "python",
		Task:     "pytest",
		History:  []assistant.Message{{Role: assistant.RoleUser, Content: "hi"}},
	}}, gotPayload.Instances)
	require.Equal(t, generateParameters{
		MaxOutputTokens: 512, Temperature: assistant.Float64(0.3), TopK: 40, TopP: 0.95}, gotPayload.Parameters)
}

func TestHTTPBackend_GenerateZeroTemperature(t *testing.T) {
	var gotPayload map[string]map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = rw.Write([]byte(`{"content":"ok"}`))
	}))
	defer srv.Close()

	b := New(newTestConfig(srv.URL), Opts{})
	_, err := b.Generate(context.Background(), &assistant.Request{Prompt: "p", Temperature: assistant.Float64(0)})
	require.NoError(t, err)
	temperature, found := gotPayload["parameters"]["temperature"]
	require.True(t, found)
	require.Equal(t, float64(0), temperature)
}

func TestHTTPBackend_ResponseFormats(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantContent string
		wantModel   string
		wantUsage   assistant.Usage
		wantErr     error
	}{
		{
			name:        "prediction text field",
			body:        `{"predictions":[{"text":"x := 1"}]}`,
			wantContent: "x := 1",
		},
		{
			name:        "prediction generated_text field",
			body:        `{"predictions":[{"generated_text":"print(1)","output":"ignored"}]}`,
			wantContent: "print(1)",
		},
		{
			name:        "field order",
			body:        `{"predictions":[{"output":"second","content":"first"}]}`,
			wantContent: "first",
		},
		{
			name: "candidates with parts",
			body: `{"candidates":[{"content":{"parts":[{"text":"foo"},{"text":"bar"}]}}],` +
				`"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`,
			wantContent: "foobar",
			wantUsage:   assistant.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		},
		{
			name:        "choices with message",
			body:        `{"model":"gpt-x","choices":[{"message":{"role":"assistant","content":"hello"}}]}`,
			wantContent: "hello",
			wantModel:   "gpt-x",
		},
		{
			name:        "top-level output",
			body:        `{"output":"done"}`,
			wantContent: "done",
		},
		{
			name:    "no content",
			body:    `{"predictions":[{"score":1}]}`,
			wantErr: ErrNoContent,
		},
		{
			name:    "too large",
			body:    `{"output":"` + strings.Repeat("a", 2048) + `"}`,
			wantErr: ErrResponseTooLarge,
		},
		{
			name:    "invalid JSON",
			body:    `<html>Bad Gateway</html>`,
			wantErr: assistant.ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				_, _ = rw.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := New(newTestConfig(srv.URL), Opts{}).Generate(context.Background(), &assistant.Request{Prompt: "p"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, assistant.ErrMalformedResponse)
				require.False(t, IsRetryable(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantContent, resp.Content)
			wantModel := tt.wantModel
			if wantModel == "" {
				wantModel = DefaultModel
			}
			require.Equal(t, wantModel, resp.Model)
			require.Equal(t, tt.wantUsage, resp.Usage)
		})
	}
}

func TestHTTPBackend_StatusErrors(t *testing.T) {
	tests := []struct {
		status        int
		wantRetryable bool
	}{
		{status: http.StatusBadRequest, wantRetryable: false},
		{status: http.StatusUnauthorized, wantRetryable: false},
		{status: http.StatusTooManyRequests, wantRetryable: true},
		{status: http.StatusInternalServerError, wantRetryable: true},
		{status: http.StatusServiceUnavailable, wantRetryable: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(tt.status)
				_, _ = rw.Write([]byte("quota exceeded\n"))
			}))
			defer srv.Close()

			logRecorder := logtest.NewRecorder()
			metrics := NewPrometheusMetrics()
			b := New(newTestConfig(srv.URL), Opts{Logger: logRecorder, MetricsCollector: metrics})
			_, err := b.Generate(context.Background(), &assistant.Request{ID: "req-2", Kind: assistant.KindChat})

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, tt.status, statusErr.StatusCode)
			require.Equal(t, "quota exceeded", statusErr.Message)
			require.Equal(t, tt.wantRetryable, IsRetryable(err))

			entry, found := logRecorder.FindEntry("backend http request failed")
			require.True(t, found)
			field, found := entry.FindField("status")
			require.True(t, found)
			require.Equal(t, tt.status, int(field.Int))

			hist := metrics.Durations.WithLabelValues("chat", fmt.Sprint(tt.status))
			testutil.RequireSamplesCountInHistogram(t, hist.(prometheus.Histogram), 1)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	require.False(t, IsRetryable(context.Canceled))
	require.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	require.False(t, IsRetryable(errors.New("some error")))
	require.True(t, IsRetryable(&StatusError{StatusCode: http.StatusBadGateway}))
	require.True(t, IsRetryable(fmt.Errorf("%w: quota exceeded", assistant.ErrBackendFailed)))
	require.False(t, IsRetryable(ErrNoContent))

	b := New(newTestConfig("http://127.0.0.1:1"), Opts{})
	_, err := b.Generate(context.Background(), &assistant.Request{Prompt: "p"})
	require.Error(t, err)
	require.True(t, IsRetryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Generate(ctx, &assistant.Request{Prompt: "p"})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsRetryable(err))
}
