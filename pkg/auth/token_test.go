package auth

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenStore_SaveGet(t *testing.T) {
	keyring.MockInit()
	s := NewTokenStore(t.TempDir())

	require.NoError(t, s.Save("hf_abc123"))

	token, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "hf_abc123", token)
}

func TestTokenStore_SaveTrimsWhitespace(t *testing.T) {
	keyring.MockInit()
	s := NewTokenStore(t.TempDir())

	require.NoError(t, s.Save("  hf_abc123\n"))

	token, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "hf_abc123", token)
}

func TestTokenStore_EmptyToken(t *testing.T) {
	keyring.MockInit()
	s := NewTokenStore(t.TempDir())
	assert.Error(t, s.Save(""))
	assert.Error(t, s.Save("   "))
}

func TestTokenStore_MissingToken(t *testing.T) {
	keyring.MockInit()
	s := NewTokenStore(t.TempDir())

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStore_MigratesFileToken(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(path.Join(dir, tokenFileName), []byte("hf_from_file\n"), 0600))

	s := NewTokenStore(dir)
	token, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "hf_from_file", token)

	// migrated into the keychain and removed from disk
	_, err = os.Stat(path.Join(dir, tokenFileName))
	assert.True(t, os.IsNotExist(err))

	kt, err := keyring.Get(keyringService, keyringUser)
	require.NoError(t, err)
	assert.Equal(t, "hf_from_file", kt)
}

func TestTokenStore_Delete(t *testing.T) {
	keyring.MockInit()
	s := NewTokenStore(t.TempDir())

	require.NoError(t, s.Save("hf_abc123"))
	require.NoError(t, s.Delete())

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNoToken)

	// deleting again is fine
	assert.NoError(t, s.Delete())
}
