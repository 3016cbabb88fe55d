/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/acronis/go-aikit/langdetect"
	"github.com/acronis/go-aikit/log"
	"github.com/acronis/go-aikit/retry"
)

// Default parameter values.
const (
	DefaultHistorySize          = 20
	DefaultRetryMaxAttempts     = 3
	DefaultRetryInitialInterval = time.Second
	DefaultRetryMaxInterval     = 10 * time.Second

	DefaultCompletionMaxTokens   = 512
	DefaultCompletionTemperature = 0.3
	DefaultChatMaxTokens         = 2048
	DefaultChatTemperature       = 0.8

	DefaultAnalysisMaxTokens        = 1024
	DefaultAnalysisTemperature      = 0.3
	DefaultDocumentationMaxTokens   = 1024
	DefaultDocumentationTemperature = 0.4
	DefaultTestsMaxTokens           = 1536
	DefaultTestsTemperature         = 0.3

	DefaultMaxCodeContexts = 10
)

// ErrBackendFailed is returned when the backend responded with the error finish reason.
// It's retried by default.
var ErrBackendFailed = errors.New("backend failed to generate response")

// ErrMalformedResponse should be wrapped by Backend implementations into errors about responses
// that can't be interpreted. Such errors are not retried by default.
var ErrMalformedResponse = errors.New("malformed backend response")

// Opts represents options for Assistant.
type Opts struct {
	// RetryPolicy defines how failed backend calls are retried.
	// Exponential backoff with default parameters is used if nil.
	RetryPolicy retry.Policy

	// IsRetryable tells whether the backend error is transient.
	// If nil, all errors are retried except context cancellation and ErrMalformedResponse.
	IsRetryable retry.IsRetryable

	// Detector detects a language of the request context. langdetect.DefaultRules are used if nil.
	Detector *langdetect.Detector

	// HistorySize is the maximum number of conversation messages attached to chat requests.
	HistorySize int

	// MaxCodeContexts is the maximum number of tracked files. The least recently updated file is forgotten first.
	MaxCodeContexts int

	// Logger is used for logging. Logging is disabled if nil.
	Logger log.FieldLogger

	// NowFunc returns current time. time.Now is used if nil.
	NowFunc func() time.Time
}

// Stats contains usage statistics.
type Stats struct {
	CacheSize         int
	Requests          int64
	CacheHits         int64
	CoalescedRequests int64
	BackendCalls      int64
	BackendErrors     int64
	HistoryLength     int
	ContextsTracked   int
}

// Assistant serves generation requests of all kinds.
// It's safe for concurrent use.
type Assistant struct {
	backend     Backend
	pacer       Pacer
	cache       ResponseCache
	retryPolicy retry.Policy
	isRetryable retry.IsRetryable
	detector    *langdetect.Detector
	historySize int
	maxContexts int
	logger      log.FieldLogger
	now         func() time.Time

	flights      singleflight.Group
	flightsMu    sync.Mutex
	flightStates map[string]*flight

	historyMu sync.Mutex
	history   []Message

	contextsMu sync.Mutex
	contexts   []CodeContext // ordered by UpdatedAt, the oldest first

	requests          atomic.Int64
	cacheHits         atomic.Int64
	coalescedRequests atomic.Int64
	backendCalls      atomic.Int64
	backendErrors     atomic.Int64
}

// New creates a new Assistant. The pacer and the cache are owned by the caller
// and may be shared between several assistants.
func New(backend Backend, pacer Pacer, cache ResponseCache, opts Opts) *Assistant {
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = retry.ExponentialBackoffPolicy{
			InitialInterval: DefaultRetryInitialInterval,
			MaxInterval:     DefaultRetryMaxInterval,
			MaxAttempts:     DefaultRetryMaxAttempts,
		}
	}
	if opts.IsRetryable == nil {
		opts.IsRetryable = isRetryableByDefault
	}
	if opts.Detector == nil {
		opts.Detector = langdetect.NewDetector(nil)
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.MaxCodeContexts <= 0 {
		opts.MaxCodeContexts = DefaultMaxCodeContexts
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.NowFunc == nil {
		opts.NowFunc = time.Now
	}
	return &Assistant{
		backend:     backend,
		pacer:       pacer,
		cache:       cache,
		retryPolicy: opts.RetryPolicy,
		isRetryable: opts.IsRetryable,
		detector:    opts.Detector,
		historySize: opts.HistorySize,
		maxContexts: opts.MaxCodeContexts,
		logger:      opts.Logger,
		now:         opts.NowFunc,

		flightStates: make(map[string]*flight),
	}
}

// NewFromConfig creates a new Assistant using the retry, history and code context parameters from cfg.
// RetryPolicy, HistorySize and MaxCodeContexts in opts are ignored.
func NewFromConfig(cfg *Config, backend Backend, pacer Pacer, cache ResponseCache, opts Opts) *Assistant {
	opts.RetryPolicy = cfg.RetryPolicy()
	opts.HistorySize = cfg.HistorySize
	opts.MaxCodeContexts = cfg.MaxCodeContexts
	return New(backend, pacer, cache, opts)
}

// Complete returns a completion for the request.
// A fresh cached response is returned without calling the backend.
// Concurrent misses of the same fingerprint share a single backend call. The shared call is canceled
// only when every caller waiting for it has gone, so one caller leaving doesn't fail the others.
func (a *Assistant) Complete(ctx context.Context, req *Request) (*Response, error) {
	r := a.prepareRequest(req, KindCompletion, DefaultCompletionMaxTokens, DefaultCompletionTemperature)
	fp := Fingerprint(r)
	logger := a.logger.With(log.String("request_id", r.ID), log.String("kind", string(r.Kind)))

	if resp, ok := a.cache.Get(fp); ok {
		a.cacheHits.Inc()
		logger.Debug("completion found in cache")
		return &resp, nil
	}
	for {
		resp, err := a.completeShared(ctx, fp, r, logger)
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// Joined a flight that had been abandoned by all of its callers.
			continue
		}
		return resp, err
	}
}

func (a *Assistant) completeShared(ctx context.Context, fp string, r *Request, logger log.FieldLogger) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fl := a.joinFlight(ctx, fp)
	defer a.leaveFlight(fp, fl)

	resCh := a.flights.DoChan(fp, func() (interface{}, error) {
		// The previous flight for this fingerprint may have just filled the cache.
		if resp, ok := a.cache.Get(fp); ok {
			a.cacheHits.Inc()
			return resp, nil
		}
		resp, err := a.generate(fl.ctx, r, logger)
		if err != nil {
			return Response{}, err
		}
		a.cache.Put(fp, resp)
		return resp, nil
	})
	select {
	case <-ctx.Done():
		logger.Debug("caller stopped waiting for completion", log.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-resCh:
		if res.Shared {
			a.coalescedRequests.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		resp := res.Val.(Response)
		return &resp, nil
	}
}

// flight is a context of the backend call shared by callers that missed the same fingerprint.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// joinFlight registers the caller as a waiter of the flight for the fingerprint.
// The flight context keeps values of the first caller's context but not its cancellation.
func (a *Assistant) joinFlight(ctx context.Context, fp string) *flight {
	a.flightsMu.Lock()
	defer a.flightsMu.Unlock()
	fl, ok := a.flightStates[fp]
	if !ok {
		fl = &flight{}
		fl.ctx, fl.cancel = context.WithCancel(context.WithoutCancel(ctx))
		a.flightStates[fp] = fl
	}
	fl.waiters++
	return fl
}

// leaveFlight unregisters the caller. The flight context is canceled when no one waits for it anymore.
func (a *Assistant) leaveFlight(fp string, fl *flight) {
	a.flightsMu.Lock()
	defer a.flightsMu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if a.flightStates[fp] == fl {
		delete(a.flightStates, fp)
	}
}

// Chat returns a reply for the message in the request. Responses are never cached.
// The conversation history is attached to the request and updated on success.
func (a *Assistant) Chat(ctx context.Context, req *Request) (*Response, error) {
	r := a.prepareRequest(req, KindChat, DefaultChatMaxTokens, DefaultChatTemperature)
	r.History = a.History()
	logger := a.logger.With(log.String("request_id", r.ID), log.String("kind", string(r.Kind)))

	resp, err := a.generate(ctx, r, logger)
	if err != nil {
		return nil, err
	}
	a.appendHistory(Message{Role: RoleUser, Content: req.Prompt}, Message{Role: RoleAssistant, Content: resp.Content})
	return &resp, nil
}

// History returns a copy of the conversation history.
func (a *Assistant) History() []Message {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	return append([]Message(nil), a.history...)
}

// ClearHistory forgets the conversation history.
func (a *Assistant) ClearHistory() {
	a.historyMu.Lock()
	a.history = nil
	a.historyMu.Unlock()
	a.logger.Info("conversation history cleared")
}

// ClearCache removes all cached completions.
func (a *Assistant) ClearCache() {
	a.cache.Clear()
	a.logger.Info("response cache cleared")
}

// Stats returns usage statistics.
func (a *Assistant) Stats() Stats {
	a.historyMu.Lock()
	historyLen := len(a.history)
	a.historyMu.Unlock()
	return Stats{
		CacheSize:         a.cache.Len(),
		Requests:          a.requests.Load(),
		CacheHits:         a.cacheHits.Load(),
		CoalescedRequests: a.coalescedRequests.Load(),
		BackendCalls:      a.backendCalls.Load(),
		BackendErrors:     a.backendErrors.Load(),
		HistoryLength:     historyLen,
		ContextsTracked:   a.contextsTracked(),
	}
}

func (a *Assistant) prepareRequest(req *Request, kind Kind, maxTokens int, temperature float64) *Request {
	a.requests.Inc()
	r := *req
	r.History = nil
	if r.Kind == "" {
		r.Kind = kind
	}
	if r.Language == "" {
		r.Language = a.detector.Detect(r.Context + "\n" + r.Prompt)
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = maxTokens
	}
	if r.Temperature == nil {
		r.Temperature = Float64(temperature)
	} else {
		r.Temperature = Float64(*r.Temperature)
	}
	r.ID = xid.New().String()
	return &r
}

// generate calls the backend pacing every attempt and retrying transient failures.
func (a *Assistant) generate(ctx context.Context, req *Request, logger log.FieldLogger) (Response, error) {
	startTime := a.now()
	var resp *Response
	notify := func(err error, delay time.Duration) {
		logger.Warn("backend call failed, retrying", log.Error(err), log.Duration("delay", delay))
	}
	err := retry.DoWithRetry(ctx, a.retryPolicy, a.isRetryable, notify, func(ctx context.Context) error {
		if pErr := a.pacer.WaitIfNeeded(ctx); pErr != nil {
			return pErr
		}
		a.backendCalls.Inc()
		var gErr error
		if resp, gErr = a.backend.Generate(ctx, req); gErr != nil {
			return gErr
		}
		if resp.FinishReason == FinishReasonError {
			return fmt.Errorf("%w: %s", ErrBackendFailed, resp.Content)
		}
		return nil
	})
	if err != nil {
		a.backendErrors.Inc()
		logger.Error("backend call failed", log.Error(err), log.DurationIn(a.now().Sub(startTime), time.Millisecond))
		return Response{}, err
	}
	result := *resp
	if result.FinishReason == "" {
		result.FinishReason = FinishReasonStop
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = a.now()
	}
	logger.Info("response generated",
		log.String("language", string(req.Language)),
		log.Int("total_tokens", result.Usage.TotalTokens),
		log.DurationIn(a.now().Sub(startTime), time.Millisecond))
	return result, nil
}

func (a *Assistant) appendHistory(msgs ...Message) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	a.history = append(a.history, msgs...)
	if len(a.history) > a.historySize {
		a.history = append([]Message(nil), a.history[len(a.history)-a.historySize:]...)
	}
}

func isRetryableByDefault(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, ErrMalformedResponse)
}
