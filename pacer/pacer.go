/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package pacer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-aikit/log"
)

// Default parameter values.
const (
	DefaultMaxRequests = 60
	DefaultWindow      = time.Minute
)

// ErrInvalidConfiguration is returned when Pacer is constructed with non-positive limits.
var ErrInvalidConfiguration = errors.New("invalid pacer configuration")

// Opts represents options for Pacer.
type Opts struct {
	// MaxRequests is the maximum number of admissions in any trailing Window.
	MaxRequests int

	// Window is the duration of the sliding window.
	Window time.Duration

	// Clock is used for reading current time and suspending callers.
	// Real time is used by default.
	Clock Clock

	// MetricsCollector is used for collecting admission statistics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// Logger is used for logging. Logging is disabled if nil.
	Logger log.FieldLogger
}

// Pacer admits requests so that no more than MaxRequests are admitted
// in any trailing Window interval.
type Pacer struct {
	maxRequests int
	window      time.Duration
	clock       Clock
	metrics     MetricsCollector
	logger      log.FieldLogger

	mu         sync.Mutex
	timestamps []time.Time // admission instants in chronological order
}

// New creates a new Pacer with the given limit.
func New(maxRequests int, window time.Duration) (*Pacer, error) {
	return NewWithOpts(Opts{MaxRequests: maxRequests, Window: window})
}

// NewWithOpts creates a new Pacer with the provided options.
func NewWithOpts(opts Opts) (*Pacer, error) {
	if opts.MaxRequests <= 0 {
		return nil, fmt.Errorf("%w: max requests must be greater than 0, got %d", ErrInvalidConfiguration, opts.MaxRequests)
	}
	if opts.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be greater than 0, got %s", ErrInvalidConfiguration, opts.Window)
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Pacer{
		maxRequests: opts.MaxRequests,
		window:      opts.Window,
		clock:       opts.Clock,
		metrics:     opts.MetricsCollector,
		logger:      opts.Logger,
		timestamps:  make([]time.Time, 0, opts.MaxRequests),
	}, nil
}

// NewFromConfig creates a new Pacer using limits from cfg.
// Limits in opts are ignored.
func NewFromConfig(cfg *Config, opts Opts) (*Pacer, error) {
	opts.MaxRequests = cfg.MaxRequests
	opts.Window = time.Duration(cfg.Window)
	return NewWithOpts(opts)
}

// WaitIfNeeded blocks until the request may proceed and counts it as admitted.
// It returns a non-nil error only if ctx is done before the admission,
// in this case nothing is counted.
func (p *Pacer) WaitIfNeeded(ctx context.Context) error {
	var waited time.Duration
	for {
		admitted, wait := p.tryAdmit()
		if admitted {
			p.metrics.ObserveAdmission(waited)
			return nil
		}
		p.logger.Debug("request pacing limit reached, waiting",
			log.Int("max_requests", p.maxRequests), log.Duration("wait", wait))
		if err := p.clock.Sleep(ctx, wait); err != nil {
			p.metrics.IncAbandoned()
			return err
		}
		waited += wait
	}
}

// TryAdmit admits the request if the window is not full.
// Otherwise, it returns false and the duration after which the next slot will be freed.
func (p *Pacer) TryAdmit() (admitted bool, retryAfter time.Duration) {
	if admitted, retryAfter = p.tryAdmit(); admitted {
		p.metrics.ObserveAdmission(0)
	}
	return admitted, retryAfter
}

// Len returns the number of admissions counted in the trailing window.
func (p *Pacer) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purge(p.clock.Now())
	return len(p.timestamps)
}

// Reset forgets all admissions.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timestamps = p.timestamps[:0]
}

func (p *Pacer) tryAdmit() (bool, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	p.purge(now)
	if len(p.timestamps) < p.maxRequests {
		p.timestamps = append(p.timestamps, now)
		return true, 0
	}
	return false, p.window - now.Sub(p.timestamps[0])
}

// purge drops admissions that are not within the window anymore. Must be called under lock.
func (p *Pacer) purge(now time.Time) {
	i := 0
	for i < len(p.timestamps) && now.Sub(p.timestamps[i]) >= p.window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(p.timestamps, p.timestamps[i:])
	p.timestamps = p.timestamps[:n]
}
