package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/domain"
	"github.com/kartoza/cplus-plugin/internal/ports"
)

// Authenticator obtains and caches a bearer token from the Trends.Earth
// identity endpoint. The refresh path is a critical section: concurrent
// callers that find the cached token expired serialize on one login instead
// of issuing duplicates.
type Authenticator struct {
	transport *Transport
	urls      TrendsURL
	store     ports.CredentialStore
	clock     ports.Clock
	logger    zerolog.Logger

	mu     sync.Mutex
	cached domain.Credential
}

func NewAuthenticator(transport *Transport, urls TrendsURL, store ports.CredentialStore, clock ports.Clock, logger zerolog.Logger) *Authenticator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Authenticator{
		transport: transport,
		urls:      urls,
		store:     store,
		clock:     clock,
		logger:    logger,
	}
}

// Token returns a bearer token, reusing the cached credential while it
// remains inside its validity window and logging in otherwise.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached.Valid(a.clock.Now()) {
		return a.cached.AccessToken, nil
	}

	credentials, err := a.store.Credentials(ctx)
	if err != nil {
		return "", &AuthError{
			Detail: "missing credentials, run auth login first",
			Err:    domain.ErrMissingCredentials,
		}
	}
	if !credentials.Complete() {
		return "", &AuthError{
			Detail: "missing credentials, run auth login first",
			Err:    domain.ErrMissingCredentials,
		}
	}

	payload := map[string]string{
		"email":    credentials.Email,
		"password": credentials.Password,
	}
	doc, status, err := a.transport.Post(ctx, a.urls.Auth(), payload, nil)
	if err != nil {
		return "", &AuthError{Detail: "login request failed", Err: err}
	}
	if status != http.StatusOK {
		detail, _ := doc["description"].(string)
		if detail == "" {
			detail = "Unknown Error"
		}
		return "", &AuthError{Status: status, Detail: detail}
	}

	accessToken, _ := doc["access_token"].(string)
	if accessToken == "" {
		return "", &AuthError{Detail: "missing access_token in login response"}
	}

	a.cached = domain.Credential{
		AccessToken: accessToken,
		ExpiresAt:   a.clock.Now().Add(domain.TokenValidity),
	}
	a.logger.Debug().Time("expires_at", a.cached.ExpiresAt).Msg("obtained api token")

	return accessToken, nil
}

// Invalidate drops the cached credential so the next Token call logs in
// again.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = domain.Credential{}
}
