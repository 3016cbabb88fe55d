/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"net/http"
	"strconv"
	"time"

	"github.com/acronis/go-aikit/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logging mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// UserAgentRoundTripper implements http.RoundTripper interface
// and sets User-Agent HTTP header in all outgoing requests if it's not set yet.
type UserAgentRoundTripper struct {
	Delegate  http.RoundTripper
	UserAgent string
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.UserAgent == "" || req.Header.Get("User-Agent") != "" {
		return rt.Delegate.RoundTrip(req)
	}
	req = req.Clone(req.Context()) // Per RoundTripper contract.
	req.Header.Set("User-Agent", rt.UserAgent)
	return rt.Delegate.RoundTrip(req)
}

// RequestIDRoundTripper sets X-Request-ID header from the request context.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper
}

// RoundTrip adds X-Request-ID header to the request.
func (rt *RequestIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := GetRequestIDFromContext(req.Context())
	if req.Header.Get("X-Request-ID") != "" || requestID == "" {
		return rt.Delegate.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-ID", requestID)
	return rt.Delegate.RoundTrip(req)
}

// AuthBearerRoundTripper sets Authorization header with a static bearer token.
type AuthBearerRoundTripper struct {
	Delegate http.RoundTripper
	Token    string
}

// RoundTrip adds Authorization header to the request.
func (rt *AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Token == "" || req.Header.Get("Authorization") != "" {
		return rt.Delegate.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+rt.Token)
	return rt.Delegate.RoundTrip(req)
}

// LoggingRoundTripper implements http.RoundTripper for logging requests.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	Logger   log.FieldLogger

	// Mode of logging: none, all, failed.
	Mode LoggingMode

	// SlowRequestThreshold is a threshold for slow requests.
	// Successful requests faster than the threshold are not logged.
	SlowRequestThreshold time.Duration
}

// RoundTrip adds logging capabilities to the HTTP transport.
func (rt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Mode == LoggingModeNone || rt.Logger == nil {
		return rt.Delegate.RoundTrip(req)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(req)
	elapsed := time.Since(start)

	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if !failed && (rt.Mode == LoggingModeFailed || elapsed < rt.SlowRequestThreshold) {
		return resp, err
	}

	fields := []log.Field{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.String("kind", GetRequestKindFromContext(req.Context())),
		log.String("request_id", GetRequestIDFromContext(req.Context())),
		log.DurationIn(elapsed, time.Millisecond),
	}
	if resp != nil {
		fields = append(fields, log.Int("status", resp.StatusCode))
	}
	if err != nil {
		rt.Logger.Error("backend http request failed", append(fields, log.Error(err))...)
		return resp, err
	}
	if failed {
		rt.Logger.Warn("backend http request failed", fields...)
		return resp, err
	}
	rt.Logger.Info("backend http request done", fields...)
	return resp, err
}

// MetricsRoundTripper is an HTTP transport that measures requests done.
type MetricsRoundTripper struct {
	Delegate  http.RoundTripper
	Collector MetricsCollector
}

// RoundTrip measures requests to the backend.
func (rt *MetricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Collector == nil {
		return rt.Delegate.RoundTrip(req)
	}

	status := "0"
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(req)
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	rt.Collector.ObserveRequest(GetRequestKindFromContext(req.Context()), status, time.Since(start))
	return resp, err
}

// TransportOpts represents options for the round trippers chain.
type TransportOpts struct {
	UserAgent            string
	AuthToken            string
	Logger               log.FieldLogger
	LoggingMode          LoggingMode
	SlowRequestThreshold time.Duration
	MetricsCollector     MetricsCollector
}

// NewTransport wraps delegate (http.DefaultTransport if nil) with round trippers
// that set headers, log and measure outgoing requests.
func NewTransport(delegate http.RoundTripper, opts TransportOpts) http.RoundTripper {
	if delegate == nil {
		delegate = http.DefaultTransport
	}
	if opts.LoggingMode == "" {
		opts.LoggingMode = LoggingModeFailed
	}
	var rt http.RoundTripper = &MetricsRoundTripper{Delegate: delegate, Collector: opts.MetricsCollector}
	rt = &LoggingRoundTripper{
		Delegate:             rt,
		Logger:               opts.Logger,
		Mode:                 opts.LoggingMode,
		SlowRequestThreshold: opts.SlowRequestThreshold,
	}
	rt = &AuthBearerRoundTripper{Delegate: rt, Token: opts.AuthToken}
	rt = &RequestIDRoundTripper{Delegate: rt}
	return &UserAgentRoundTripper{Delegate: rt, UserAgent: opts.UserAgent}
}
