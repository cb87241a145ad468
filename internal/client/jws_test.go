package client

import (
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmehttp01/internal/keys"
)

type staticNonceSource string

func (s staticNonceSource) Nonce() (string, error) { return string(s), nil }

func TestMarshalPayloadDisablesHTMLEscaping(t *testing.T) {
	body, err := marshalPayload(map[string]string{"detail": "a <b> & c"})
	require.NoError(t, err)
	// json.Marshal would have rewritten "<" and "&" to unicode escape
	// sequences.
	assert.Contains(t, string(body), "a <b> & c")
}

func TestMarshalPayloadTrimsTrailingNewline(t *testing.T) {
	body, err := marshalPayload(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "\n")
}

func TestSignEmbeddedProducesEmbeddedJWK(t *testing.T) {
	key, err := keys.GenerateRSAKey(2048)
	require.NoError(t, err)

	signed, err := signEmbedded(key, staticNonceSource("test-nonce"), []byte(`{"resource":"new-reg"}`))
	require.NoError(t, err)

	parsed, err := jose.ParseSigned(string(signed), []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	require.Len(t, parsed.Signatures, 1)

	header := parsed.Signatures[0].Protected
	assert.Equal(t, "test-nonce", header.Nonce)
	require.NotNil(t, header.JSONWebKey)
	assert.Empty(t, header.KeyID)

	payload, err := parsed.Verify(&key.PublicKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"new-reg"}`, string(payload))
}
