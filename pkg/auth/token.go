// Package auth persists the Hugging Face access token used to download
// gated dataset files.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "prefaudit"
	keyringUser    = "hf_token"
	tokenFileName  = "hf_token"
)

// ErrNoToken indicates no token has been saved yet.
var ErrNoToken = errors.New("no access token found, run auth first")

// TokenStore keeps the token in the OS keychain, falling back to a file in
// the app home dir when no keychain is available.
type TokenStore struct {
	dir string
}

// NewTokenStore creates a token store rooted at the given app home dir.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// Save stores the token.
func (s *TokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return s.saveFile(token)
	}

	// clean up a stale file copy if one exists
	os.Remove(path.Join(s.dir, tokenFileName))

	return nil
}

// Get returns the saved token, preferring the keychain. A token found only
// on disk is migrated into the keychain.
func (s *TokenStore) Get() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = s.getFile()
	if err != nil {
		return "", ErrNoToken
	}

	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		os.Remove(path.Join(s.dir, tokenFileName))
	}

	return token, nil
}

// Delete removes the token from both the keychain and disk.
func (s *TokenStore) Delete() error {
	kerr := keyring.Delete(keyringService, keyringUser)
	ferr := os.Remove(path.Join(s.dir, tokenFileName))

	if kerr != nil && !errors.Is(kerr, keyring.ErrNotFound) {
		return fmt.Errorf("removing token from keychain: %w", kerr)
	}
	if ferr != nil && !os.IsNotExist(ferr) {
		return fmt.Errorf("removing token file: %w", ferr)
	}
	return nil
}

func (s *TokenStore) saveFile(token string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	return os.WriteFile(path.Join(s.dir, tokenFileName), []byte(token), 0600)
}

func (s *TokenStore) getFile() (string, error) {
	b, err := os.ReadFile(path.Join(s.dir, tokenFileName))
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("token file is empty")
	}
	return token, nil
}
