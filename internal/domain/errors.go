package domain

import "errors"

// ErrMissingCredentials signals that no usable login credentials are
// stored; callers should prompt for a fresh login.
var ErrMissingCredentials = errors.New("missing credentials")
