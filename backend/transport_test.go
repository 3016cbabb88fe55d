/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-aikit/log/logtest"
)

func TestTransport_Headers(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, TransportOpts{UserAgent: "aikit", AuthToken: "token"})}

	t.Run("headers are set from options and context", func(t *testing.T) {
		ctx := NewContextWithRequestID(context.Background(), "abc")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, "aikit", gotHeaders.Get("User-Agent"))
		require.Equal(t, "abc", gotHeaders.Get("X-Request-ID"))
		require.Equal(t, "Bearer token", gotHeaders.Get("Authorization"))
	})

	t.Run("explicit headers are kept", func(t *testing.T) {
		ctx := NewContextWithRequestID(context.Background(), "abc")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "custom")
		req.Header.Set("X-Request-ID", "xyz")
		req.Header.Set("Authorization", "Basic Zm9v")
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, "custom", gotHeaders.Get("User-Agent"))
		require.Equal(t, "xyz", gotHeaders.Get("X-Request-ID"))
		require.Equal(t, "Basic Zm9v", gotHeaders.Get("Authorization"))
	})

	t.Run("no request id in context", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Empty(t, gotHeaders.Get("X-Request-ID"))
	})
}

func TestLoggingRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			rw.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name        string
		mode        LoggingMode
		path        string
		wantMessage string
	}{
		{name: "all, success", mode: LoggingModeAll, path: "/ok", wantMessage: "backend http request done"},
		{name: "all, failure", mode: LoggingModeAll, path: "/fail", wantMessage: "backend http request failed"},
		{name: "failed, success", mode: LoggingModeFailed, path: "/ok"},
		{name: "failed, failure", mode: LoggingModeFailed, path: "/fail", wantMessage: "backend http request failed"},
		{name: "none, failure", mode: LoggingModeNone, path: "/fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logRecorder := logtest.NewRecorder()
			client := &http.Client{Transport: &LoggingRoundTripper{
				Delegate: http.DefaultTransport, Logger: logRecorder, Mode: tt.mode}}
			ctx := NewContextWithRequestKind(context.Background(), "completion")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+tt.path, http.NoBody)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())

			if tt.wantMessage == "" {
				require.Empty(t, logRecorder.Entries())
				return
			}
			require.Len(t, logRecorder.Entries(), 1)
			entry, found := logRecorder.FindEntry(tt.wantMessage)
			require.True(t, found)
			field, found := entry.FindField("kind")
			require.True(t, found)
			require.Equal(t, "completion", string(field.Bytes))
		})
	}
}

func TestLoggingMode_IsValid(t *testing.T) {
	require.True(t, LoggingModeAll.IsValid())
	require.True(t, LoggingModeFailed.IsValid())
	require.True(t, LoggingModeNone.IsValid())
	require.False(t, LoggingMode("verbose").IsValid())
}
