package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and counts outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test the upstream.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s State) gauge() float64 {
	switch s {
	case Closed, Open, HalfOpen:
		return float64(s)
	default:
		return -1
	}
}

// Breaker trips on the failure ratio observed inside a counting window.
type Breaker struct {
	mu sync.Mutex

	minRequests  int
	failureRatio float64
	openFor      time.Duration
	window       time.Duration

	state       State
	windowStart time.Time
	total       int
	failures    int
	openedAt    time.Time
	probing     bool

	target string
	logger zerolog.Logger
	now    func() time.Time
}

// NewBreaker constructs a breaker that opens once minRequests outcomes have been
// seen in the current window and the failure ratio reaches failureRatio.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		window:       time.Minute,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithTarget names the upstream in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishLocked()
	return b
}

// WithLogger sets the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithWindow sets how long closed-state outcomes are counted before the
// counters start over.
func (b *Breaker) WithWindow(window time.Duration) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if window > 0 {
		b.window = window
	}
	return b
}

// Allow reports whether a request may proceed. After the cool-off an open
// breaker admits exactly one probe; further calls are refused until it reports.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case Open:
		if now.Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		if now.Sub(b.windowStart) >= b.window {
			b.resetCountsLocked(now)
		}
		return true
	}
}

// Report records the outcome of an allowed request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.total++
	if !success {
		b.failures++
	}
	if b.total >= b.minRequests && float64(b.failures)/float64(b.total) >= b.failureRatio {
		b.transitionLocked(ctx, Open)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// report is Report for an optional breaker.
func (b *Breaker) report(ctx context.Context, success bool) {
	if b != nil {
		b.Report(ctx, success)
	}
}

func (b *Breaker) resetCountsLocked(now time.Time) {
	b.windowStart = now
	b.total = 0
	b.failures = 0
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	now := b.now()
	b.state = next
	switch next {
	case Open:
		b.openedAt = now
	case Closed:
		b.openedAt = time.Time{}
		b.resetCountsLocked(now)
	}
	b.publishLocked()

	label := b.label()
	BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	if next == Open {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.logger.Info()
	if next == Open {
		evt = b.logger.Warn()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Int("window_failures", b.failures).
		Msg("breaker_transition")
}

func (b *Breaker) publishLocked() {
	BreakerState.WithLabelValues(b.label()).Set(b.state.gauge())
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}
