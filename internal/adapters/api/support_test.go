package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeClock hands out a controllable instant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleeper records requested delays without actually waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// memoryCredentialStore keeps login credentials in memory.
type memoryCredentialStore struct {
	mu          sync.Mutex
	credentials domain.LoginCredentials
	saved       bool
}

func (s *memoryCredentialStore) Credentials(ctx context.Context) (domain.LoginCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return domain.LoginCredentials{}, domain.ErrMissingCredentials
	}
	return s.credentials, nil
}

func (s *memoryCredentialStore) Save(ctx context.Context, credentials domain.LoginCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = credentials
	s.saved = true
	return nil
}

func (s *memoryCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = domain.LoginCredentials{}
	s.saved = false
	return nil
}
