package domain

import "time"

const (
	// TokenSafetyMargin is subtracted from a credential's expiry when
	// deciding whether it can still be used; a token inside the margin is
	// treated as already expired.
	TokenSafetyMargin = time.Hour

	// TokenValidity is the fixed lifetime assumed for a freshly issued
	// token. The identity service's own advertised lifetime is not parsed.
	TokenValidity = 24 * time.Hour
)

// Credential is a bearer token obtained from the Trends.Earth identity
// service together with its assumed expiry.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the credential can be used at the given instant,
// leaving the safety margin before the actual expiry.
func (c Credential) Valid(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return now.Add(TokenSafetyMargin).Before(c.ExpiresAt)
}

// LoginCredentials is the stored username/password pair used to obtain a
// Credential from the identity endpoint.
type LoginCredentials struct {
	Email    string
	Password string
}

func (l LoginCredentials) Complete() bool {
	return l.Email != "" && l.Password != ""
}
