package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/domain"
	"github.com/kartoza/cplus-plugin/internal/ports"
)

const (
	// DefaultPollLimit caps status checks for one polling session.
	DefaultPollLimit = 3600

	// DefaultPollInterval separates consecutive status checks.
	DefaultPollInterval = time.Second

	// UnboundedPollLimit disables the attempt limit.
	UnboundedPollLimit = -1

	// degradedAfterFailures is the consecutive-failure count after which the
	// poller reports itself degraded. It keeps retrying regardless; the
	// signal exists so a permanent error (a 404 burning the whole attempt
	// budget asleep) is at least visible in the logs.
	degradedAfterFailures = 5
)

// StatusFunc issues one status query and returns the decoded body and
// status code, or a transport failure.
type StatusFunc func(ctx context.Context) (Document, int, error)

// Poller repeatedly queries a job's status until it reaches a terminal
// state, the attempt limit is exhausted, or the session is cancelled.
// Every failure of a single attempt, transport-level or non-200, is treated
// as transient and retried after the interval; only the attempt limit is
// fatal. Cancellation is cooperative: the flag is observed at iteration
// boundaries, never mid-flight.
type Poller struct {
	fetch    StatusFunc
	limit    int
	interval time.Duration
	sleeper  ports.Sleeper
	logger   zerolog.Logger

	cancelled atomic.Bool

	// OnResponse, when set, observes every successfully decoded status
	// response, intermediate and terminal alike, in arrival order.
	OnResponse func(Document)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

func WithPollLimit(limit int) PollerOption {
	return func(p *Poller) {
		if limit != 0 {
			p.limit = limit
		}
	}
}

func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithPollSleeper(sleeper ports.Sleeper) PollerOption {
	return func(p *Poller) {
		if sleeper != nil {
			p.sleeper = sleeper
		}
	}
}

func NewPoller(fetch StatusFunc, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		limit:    DefaultPollLimit,
		interval: DefaultPollInterval,
		sleeper:  ports.SystemSleeper{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cancel marks the session cancelled. The next iteration returns a
// synthetic Cancelled response without issuing a network call; an in-flight
// call is not interrupted.
func (p *Poller) Cancel() {
	p.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (p *Poller) Cancelled() bool {
	return p.cancelled.Load()
}

// Poll blocks until a terminal response, cancellation, or the attempt
// limit. Callers that must stay responsive run it on its own goroutine and
// consume progress through OnResponse.
func (p *Poller) Poll(ctx context.Context) (Document, error) {
	attempts := 0
	consecutiveFailures := 0

	for {
		if p.cancelled.Load() {
			return Document{"status": domain.StatusCancelled}, nil
		}

		attempts++
		if p.limit != UnboundedPollLimit && attempts >= p.limit {
			return nil, &PollError{Attempts: attempts, Err: ErrPollTimeout}
		}

		doc, status, err := p.fetch(ctx)
		if err != nil || status != http.StatusOK {
			consecutiveFailures++
			if consecutiveFailures == degradedAfterFailures {
				p.logger.Warn().
					Int("consecutive_failures", consecutiveFailures).
					Int("last_status", status).
					Err(err).
					Msg("status polling degraded, still retrying")
			}
			if sleepErr := p.sleeper.Sleep(ctx, p.interval); sleepErr != nil {
				return nil, &PollError{Attempts: attempts, Err: sleepErr}
			}
			continue
		}
		consecutiveFailures = 0

		if p.OnResponse != nil {
			p.OnResponse(doc)
		}

		statusValue, _ := doc["status"].(string)
		if domain.IsTerminalStatus(statusValue) {
			return doc, nil
		}

		if sleepErr := p.sleeper.Sleep(ctx, p.interval); sleepErr != nil {
			return nil, &PollError{Attempts: attempts, Err: sleepErr}
		}
	}
}
