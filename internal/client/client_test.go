package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/keys"
	"github.com/cpu/acmehttp01/internal/logging"
	acmenet "github.com/cpu/acmehttp01/internal/net"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	key, err := keys.GenerateRSAKey(2048)
	require.NoError(t, err)

	httpClient, err := acmenet.New(acmenet.Config{})
	require.NoError(t, err)

	return New(httpClient, acme.Directory{BaseURL: baseURL}, key, logging.Discard())
}

func TestSignedRequestEmbedsJWKAndConsumesNonce(t *testing.T) {
	var seenNonces []string
	nonceSeq := []string{"n1", "n2"}
	callIdx := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", nonceSeq[0])
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/acme/new-reg", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		parsed, err := jose.ParseSigned(string(body), []jose.SignatureAlgorithm{jose.RS256})
		require.NoError(t, err)

		header := parsed.Signatures[0].Protected
		seenNonces = append(seenNonces, header.Nonce)

		assert.NotNil(t, header.JSONWebKey, "protected header must embed the account JWK")
		assert.Empty(t, header.KeyID, "this dialect never uses a Key ID")

		callIdx++
		w.Header().Set("Replay-Nonce", nonceSeq[callIdx%len(nonceSeq)])
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	resp, err := c.SignedRequest(acme.NewRegPath, map[string]string{"resource": "new-reg"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, seenNonces, 1)
	assert.Equal(t, "n1", seenNonces[0])
}

func TestSignedRequestResolvesRelativeURI(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "n1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/acme/new-authz", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Replay-Nonce", "n2")
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.SignedRequest(acme.NewAuthzPath, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, acme.NewAuthzPath, gotPath)
}

func TestGetUpdatesNonceFromResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme/authz/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "from-poll")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"pending"}`))
	})
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Get must not refresh the nonce cache via /directory")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.Get(srv.URL + "/acme/authz/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	nonce, err := c.nonces.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "from-poll", nonce)
}
