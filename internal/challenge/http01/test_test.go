package http01

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/keys"
)

func TestTestProviderServesRegisteredChallenge(t *testing.T) {
	// Port 0 is not supported by challtestsrv's HTTPOneAddrs; pick a
	// fixed high port unlikely to collide with other listeners.
	addr := ":15002"
	provider, err := NewTestProvider([]string{addr})
	require.NoError(t, err)
	defer provider.Shutdown()

	assert.Equal(t, acme.HTTP01, provider.Type())
	assert.NoError(t, provider.ValidateDomainControl("example.com"))

	key, err := keys.GenerateRSAKey(2048)
	require.NoError(t, err)

	ch := acme.Challenge{Type: string(acme.HTTP01), Token: "test-token"}
	keyAuth, err := provider.PrepareChallenge("example.com", ch, &key.PublicKey)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1%s/.well-known/acme-challenge/%s", addr, ch.Token))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, keyAuth, string(body))

	provider.CleanupChallenge("example.com", ch)

	resp2, err := http.Get(fmt.Sprintf("http://127.0.0.1%s/.well-known/acme-challenge/%s", addr, ch.Token))
	require.NoError(t, err)
	defer resp2.Body.Close()
	// challtestsrv answers an unregistered token with an empty body
	// rather than a 404.
	body2, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Empty(t, string(body2))
}
