// Package file stores the Trends.Earth login credentials as files under a
// private directory, one value per file with 0600 permissions.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kartoza/cplus-plugin/internal/domain"
	"github.com/kartoza/cplus-plugin/internal/ports"
)

const (
	storeDirMode   = 0o700
	secretFileMode = 0o600

	usernameKey = "trends/username"
	passwordKey = "trends/password"
)

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Credentials(ctx context.Context) (domain.LoginCredentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.LoginCredentials{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	email, err := s.read(usernameKey)
	if err != nil {
		return domain.LoginCredentials{}, err
	}
	password, err := s.read(passwordKey)
	if err != nil {
		return domain.LoginCredentials{}, err
	}

	return domain.LoginCredentials{Email: email, Password: password}, nil
}

func (s *Store) Save(ctx context.Context, credentials domain.LoginCredentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !credentials.Complete() {
		return domain.ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(usernameKey, credentials.Email); err != nil {
		return err
	}
	if err := s.write(passwordKey, credentials.Password); err != nil {
		// Leave no half-saved pair behind.
		_ = s.remove(usernameKey)
		return err
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.remove(usernameKey); err != nil {
		return err
	}
	return s.remove(passwordKey)
}

func (s *Store) read(key string) (string, error) {
	path, err := s.pathForKey(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrMissingCredentials
		}
		return "", fmt.Errorf("read credential %q: %w", key, err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (s *Store) write(key, value string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(value), secretFileMode); err != nil {
		return fmt.Errorf("write credential %q: %w", key, err)
	}

	return nil
}

func (s *Store) remove(key string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential %q: %w", key, err)
	}

	return nil
}

func (s *Store) pathForKey(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid credential key %q", key)
	}

	return filepath.Join(s.root, cleaned), nil
}
