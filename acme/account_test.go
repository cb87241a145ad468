package acme

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"
)

func TestAccountKeyPEMRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	account := Account{PrivateKey: key, Contact: []string{"mailto:ops@example.com"}}
	pemBytes := account.KeyPEM()

	restored, err := AccountFromPEM(account.Contact, pemBytes)
	require.NoError(t, err)
	assert.Equal(t, key.N, restored.PrivateKey.N)
	assert.Equal(t, account.Contact, restored.Contact)
}

func TestAccountFromPEMRejectsGarbage(t *testing.T) {
	_, err := AccountFromPEM(nil, []byte("not a pem block"))
	assert.Error(t, err)
}

func TestAccountStringFallback(t *testing.T) {
	assert.Equal(t, "<account>", Account{}.String())
	assert.Equal(t, "mailto:a@example.com", Account{Contact: []string{"mailto:a@example.com"}}.String())
}
