// Package ping measures one-way latency per session by sending timestamped
// probes over the transport and halving the observed round trip.
package ping

import (
	"context"
	"log/slog"
	"time"

	"github.com/lobbyd/lobbyd/internal/dependencies/clock"
	"github.com/lobbyd/lobbyd/internal/model"
)

const (
	// DefaultInterval is the probe cadence.
	DefaultInterval = time.Second
	// echoTolerance allows for timestamp truncation on the wire.
	echoTolerance = time.Millisecond
	// retryIntervals is how many silent cadences pass before an in-flight
	// probe is abandoned and a fresh one sent.
	retryIntervals = 3
)

// SendFunc delivers a probe carrying the given send timestamp to a session.
type SendFunc func(session model.SessionID, sentAt time.Time) error

// Observer is invoked on the estimator's goroutine whenever a session's
// latency estimate changes.
type Observer func(session model.SessionID, estimate time.Duration)

type probe struct {
	inFlight bool
	sentAt   time.Time
	estimate time.Duration
	hasValue bool
}

// Estimator keeps one latency estimate per tracked session. At most one probe
// per session is in flight; replies that do not match the outstanding
// timestamp are dropped. Not safe for concurrent use; external callers go
// through Run's command channel or hold their own serialization.
type Estimator struct {
	interval time.Duration
	send     SendFunc
	clock    clock.Clock
	logger   *slog.Logger
	observer Observer

	probes map[model.SessionID]*probe
	cmds   chan func()
}

type Option func(*Estimator)

// WithInterval overrides the probe cadence.
func WithInterval(d time.Duration) Option {
	return func(e *Estimator) { e.interval = d }
}

// WithObserver registers a callback for estimate changes.
func WithObserver(fn Observer) Option {
	return func(e *Estimator) { e.observer = fn }
}

func New(send SendFunc, clk clock.Clock, logger *slog.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		interval: DefaultInterval,
		send:     send,
		clock:    clk,
		logger:   logger.With(slog.String("component", "ping")),
		probes:   make(map[model.SessionID]*probe),
		cmds:     make(chan func(), 64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Track begins probing a session on the next tick.
func (e *Estimator) Track(session model.SessionID) {
	if _, ok := e.probes[session]; ok {
		return
	}
	e.probes[session] = &probe{}
}

// Untrack stops probing a session and discards its estimate.
func (e *Estimator) Untrack(session model.SessionID) {
	delete(e.probes, session)
}

// Tick sends a probe to every tracked session without one in flight, and
// abandons probes that have gone unanswered for retryIntervals cadences.
func (e *Estimator) Tick() {
	now := e.clock.Now()
	for session, pr := range e.probes {
		if pr.inFlight {
			if now.Sub(pr.sentAt) < time.Duration(retryIntervals)*e.interval {
				continue
			}
			e.logger.Warn("probe abandoned",
				slog.Uint64("session", uint64(session)))
			pr.inFlight = false
		}
		if err := e.send(session, now); err != nil {
			e.logger.Warn("probe send failed",
				slog.Uint64("session", uint64(session)),
				slog.Any("error", err))
			continue
		}
		pr.inFlight = true
		pr.sentAt = now
	}
}

// HandleEcho processes a probe reply. The echoed timestamp must match the
// outstanding probe within a millisecond; anything else is a stale or
// fabricated reply and is dropped. The estimate is half the round trip.
func (e *Estimator) HandleEcho(session model.SessionID, echoed time.Time) {
	pr, ok := e.probes[session]
	if !ok || !pr.inFlight {
		return
	}
	delta := pr.sentAt.Sub(echoed)
	if delta < 0 {
		delta = -delta
	}
	if delta > echoTolerance {
		e.logger.Debug("stale echo dropped",
			slog.Uint64("session", uint64(session)))
		return
	}
	pr.inFlight = false
	pr.estimate = e.clock.Now().Sub(pr.sentAt) / 2
	pr.hasValue = true
	if e.observer != nil {
		e.observer(session, pr.estimate)
	}
}

// Estimate returns the latest one-way latency estimate for a session.
func (e *Estimator) Estimate(session model.SessionID) (time.Duration, bool) {
	pr, ok := e.probes[session]
	if !ok || !pr.hasValue {
		return 0, false
	}
	return pr.estimate, true
}

// Estimates returns a copy of every known estimate.
func (e *Estimator) Estimates() map[model.SessionID]time.Duration {
	out := make(map[model.SessionID]time.Duration, len(e.probes))
	for session, pr := range e.probes {
		if pr.hasValue {
			out[session] = pr.estimate
		}
	}
	return out
}

// Run drives Tick on the configured cadence until the context ends. Work
// submitted through Do runs on the same goroutine as the ticks.
func (e *Estimator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		case fn := <-e.cmds:
			fn()
		}
	}
}

// Do schedules fn onto the estimator goroutine and waits for it to run.
// Callers outside Run's goroutine must use Do for every method call.
func (e *Estimator) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	select {
	case e.cmds <- func() {
		defer close(done)
		fn()
	}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
