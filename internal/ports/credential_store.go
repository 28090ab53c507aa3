package ports

import (
	"context"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

// CredentialStore persists the Trends.Earth login credentials. Credentials
// returns domain.ErrMissingCredentials when either half is absent.
type CredentialStore interface {
	Credentials(ctx context.Context) (domain.LoginCredentials, error)
	Save(ctx context.Context, credentials domain.LoginCredentials) error
	Clear(ctx context.Context) error
}
