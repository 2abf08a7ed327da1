package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withWhoAmIServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	old := whoAmIURL
	whoAmIURL = srv.URL
	t.Cleanup(func() { whoAmIURL = old })
}

func TestVerifyToken(t *testing.T) {
	withWhoAmIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_abc123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name": "tester"}`))
	})

	name, err := verifyToken(context.Background(), "hf_abc123")
	require.NoError(t, err)
	assert.Equal(t, "tester", name)
}

func TestVerifyToken_Rejected(t *testing.T) {
	withWhoAmIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := verifyToken(context.Background(), "hf_bad")
	assert.Error(t, err)
}

func TestVerifyToken_MissingName(t *testing.T) {
	withWhoAmIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := verifyToken(context.Background(), "hf_abc123")
	assert.Error(t, err)
}
