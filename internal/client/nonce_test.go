package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmehttp01/internal/net"
)

func TestNonceRefreshesWhenEmpty(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Replay-Nonce", "nonce-from-directory")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	httpClient, err := net.New(net.Config{})
	require.NoError(t, err)

	store := NewNonceStore(httpClient, srv.URL)
	nonce, err := store.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "nonce-from-directory", nonce)
	assert.Equal(t, 1, calls)
}

func TestNonceConsumedExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "first")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	httpClient, err := net.New(net.Config{})
	require.NoError(t, err)

	store := NewNonceStore(httpClient, srv.URL)

	first, err := store.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	// Cache is now empty; once Update replenishes it, the next Nonce()
	// call hands back the new value rather than the consumed one.
	store.Update("second")
	second, err := store.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "second", second)
}

func TestUpdateIgnoresBlankNonce(t *testing.T) {
	httpClient, err := net.New(net.Config{})
	require.NoError(t, err)

	store := NewNonceStore(httpClient, "https://ca.example.com/directory")
	store.Update("kept")
	store.Update("")

	nonce, err := store.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "kept", nonce)
}

func TestNonceRefreshFailsOnMissingHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	httpClient, err := net.New(net.Config{})
	require.NoError(t, err)

	store := NewNonceStore(httpClient, srv.URL)
	_, err = store.Nonce()
	assert.Error(t, err)
}
