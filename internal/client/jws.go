package client

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// marshalPayload renders v as compact JSON with HTML escaping disabled,
// so a literal "<", ">" or "&" in a payload field is never rewritten to
// a unicode escape. encoding/json's Encoder, unlike Marshal, lets that
// be turned off.
func marshalPayload(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// signEmbedded signs payload for the account key, embedding the account's
// JWK in the protected header as {alg, jwk} — there is no Key ID variant
// in this draft dialect, every request authenticates with the full public
// key. The nonce source supplies the nonce merged into the same protected
// header.
func signEmbedded(key *rsa.PrivateKey, nonces jose.NonceSource, payload []byte) ([]byte, error) {
	signingKey := jose.SigningKey{Key: key, Algorithm: jose.RS256}

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: nonces,
		EmbedJWK:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("client: building JWS signer: %w", err)
	}

	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("client: signing JWS: %w", err)
	}

	return []byte(signed.FullSerialize()), nil
}
