package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

func TestPollReturnsTerminalResponse(t *testing.T) {
	t.Parallel()

	responses := []Document{
		{"status": domain.StatusPending},
		{"status": domain.StatusRunning, "progress": 10.0},
		{"status": domain.StatusRunning, "progress": 80.0},
		{"status": domain.StatusCompleted, "progress": 100.0},
	}

	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		doc := responses[calls]
		calls++
		return doc, http.StatusOK, nil
	}

	var observed []string
	sleeper := &recordingSleeper{}
	poller := NewPoller(fetch, testLogger(), WithPollSleeper(sleeper))
	poller.OnResponse = func(doc Document) {
		status, _ := doc["status"].(string)
		observed = append(observed, status)
	}

	doc, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc["status"])
	assert.Equal(t, 4, calls)
	// The terminal response is observed too.
	assert.Equal(t, []string{
		domain.StatusPending,
		domain.StatusRunning,
		domain.StatusRunning,
		domain.StatusCompleted,
	}, observed)
	// One interval between each pair of requests.
	assert.Len(t, sleeper.Delays(), 3)
}

func TestPollAttemptLimitCountsBeforeTheRequest(t *testing.T) {
	t.Parallel()

	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		calls++
		return Document{"status": domain.StatusRunning}, http.StatusOK, nil
	}

	poller := NewPoller(fetch, testLogger(),
		WithPollLimit(5),
		WithPollSleeper(&recordingSleeper{}),
	)

	_, err := poller.Poll(context.Background())

	var pollErr *PollError
	require.ErrorAs(t, err, &pollErr)
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 5, pollErr.Attempts)
	// The limit is checked before each request, so the fifth attempt fails
	// without one.
	assert.Equal(t, 4, calls)
}

func TestPollRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		calls++
		switch calls {
		case 1:
			return nil, 0, &TransportError{URL: "http://x", Err: errors.New("refused")}
		case 2:
			return Document{}, http.StatusBadGateway, nil
		default:
			return Document{"status": domain.StatusCompleted}, http.StatusOK, nil
		}
	}

	sleeper := &recordingSleeper{}
	poller := NewPoller(fetch, testLogger(),
		WithPollInterval(250*time.Millisecond),
		WithPollSleeper(sleeper),
	)

	doc, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc["status"])
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, sleeper.Delays())
}

func TestPollCancelledBeforeStartSkipsNetwork(t *testing.T) {
	t.Parallel()

	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		calls++
		return Document{"status": domain.StatusRunning}, http.StatusOK, nil
	}

	poller := NewPoller(fetch, testLogger(), WithPollSleeper(&recordingSleeper{}))
	poller.Cancel()

	doc, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, doc["status"])
	assert.Equal(t, 0, calls)
	assert.True(t, poller.Cancelled())
}

func TestPollCancelTakesEffectAtIterationBoundary(t *testing.T) {
	t.Parallel()

	var poller *Poller
	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		calls++
		if calls == 2 {
			poller.Cancel()
		}
		return Document{"status": domain.StatusRunning}, http.StatusOK, nil
	}

	poller = NewPoller(fetch, testLogger(), WithPollSleeper(&recordingSleeper{}))

	doc, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, doc["status"])
	assert.Equal(t, 2, calls)
}

func TestPollContextCancellationStopsTheLoop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (Document, int, error) {
		cancel()
		return Document{"status": domain.StatusRunning}, http.StatusOK, nil
	}

	poller := NewPoller(fetch, testLogger(), WithPollSleeper(&recordingSleeper{}))

	_, err := poller.Poll(ctx)

	var pollErr *PollError
	require.ErrorAs(t, err, &pollErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollUnboundedLimitKeepsGoing(t *testing.T) {
	t.Parallel()

	calls := 0
	fetch := func(ctx context.Context) (Document, int, error) {
		calls++
		if calls < DefaultPollLimit+10 {
			return Document{"status": domain.StatusRunning}, http.StatusOK, nil
		}
		return Document{"status": domain.StatusStopped}, http.StatusOK, nil
	}

	poller := NewPoller(fetch, testLogger(),
		WithPollLimit(UnboundedPollLimit),
		WithPollSleeper(&recordingSleeper{}),
	)

	doc, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, doc["status"])
	assert.Equal(t, DefaultPollLimit+10, calls)
}
