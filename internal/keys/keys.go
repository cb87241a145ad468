// Package keys provides the RSA/JWK/CSR primitives the ACME client signs
// requests and proves domain control with.
package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Base64URL encodes b using unpadded, URL-safe base64 (RFC 4648 §5),
// matching the encoding ACME uses for every JWS component.
func Base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64URLDecode inverts Base64URL.
func Base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// GenerateRSAKey creates a new RSA private key of the given bit size.
// A bit size of 0 defaults to 2048.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = 2048
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating %d-bit RSA key: %w", bits, err)
	}
	return key, nil
}

// KeyToPEM PEM-encodes an RSA private key using PKCS#1.
func KeyToPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// JWK is the account key's public parameters in the exact field order
// ACME's key-authorization thumbprint requires: "e", "kty", "n". Field
// order here is load-bearing — it is what makes the JSON produced by
// encoding/json's struct-field-order marshaling match the RFC 7638
// canonical form without a custom marshaler.
type JWK struct {
	E   string `json:"e"`
	Kty string `json:"kty"`
	N   string `json:"n"`
}

// JWKForKey returns the canonical JWK representation of an RSA public
// key: kty RSA, with n and e as base64url of their big-endian unsigned
// byte representations.
func JWKForKey(pub *rsa.PublicKey) JWK {
	eBytes := big64(pub.E)
	return JWK{
		E:   Base64URL(eBytes),
		Kty: "RSA",
		N:   Base64URL(pub.N.Bytes()),
	}
}

// big64 encodes a small positive int (the RSA public exponent) as the
// minimal big-endian byte string, matching what other ACME clients
// produce for the common exponent 65537 (0x010001).
func big64(e int) []byte {
	if e == 0 {
		return []byte{0}
	}
	var b []byte
	for e > 0 {
		b = append([]byte{byte(e & 0xff)}, b...)
		e >>= 8
	}
	return b
}

// CanonicalJSON serializes the JWK with no extraneous whitespace and
// its three fields in lexicographic order. encoding/json already emits
// struct fields in declaration order with no whitespace for a struct
// with no nested maps, which is exactly the canonicalization RFC 7638
// requires for a JWK thumbprint.
func (j JWK) CanonicalJSON() []byte {
	// The error return from json.Marshal on a plain string-field struct
	// is unreachable; JWK has no cyclic or unsupported types.
	b, _ := json.Marshal(j)
	return b
}

// Thumbprint returns the SHA-256 thumbprint of the canonical JWK, used
// as the second half of every KeyAuthorization.
func (j JWK) Thumbprint() []byte {
	sum := sha256.Sum256(j.CanonicalJSON())
	return sum[:]
}

// KeyAuthorization builds the key-authorization string for a challenge
// token: token + "." + base64url(SHA-256(canonical JWK)).
func KeyAuthorization(pub *rsa.PublicKey, token string) string {
	jwk := JWKForKey(pub)
	return fmt.Sprintf("%s.%s", token, Base64URL(jwk.Thumbprint()))
}

// SigningKeyRS256 builds a go-jose SigningKey for RS256 account-key
// signing, either embedding the JWK (EmbedKey) or identified by a
// server-assigned KeyID.
func SigningKeyRS256(key crypto.Signer, keyID string) jose.SigningKey {
	if keyID == "" {
		return jose.SigningKey{Key: key, Algorithm: jose.RS256}
	}
	jwk := jose.JSONWebKey{Key: key, Algorithm: string(jose.RS256), KeyID: keyID}
	return jose.SigningKey{Key: jwk, Algorithm: jose.RS256}
}

// CSRConfig configures the certificate signing request assembled by
// NewCSR: the Subject Alternative Name set (every requested domain),
// the commonName (defaulting to the first domain) and a Distinguished
// Name supplying the remaining Subject fields.
type CSRConfig struct {
	Domains    []string
	CommonName string
	DN         pkix.Name
}

// NewCSR builds a PKCS#10 certificate signing request for the given
// domains, signed by key. commonName defaults to domains[0]. The
// subjectAltName extension lists every domain as a DNS: entry in
// input order.
func NewCSR(cfg CSRConfig, key *rsa.PrivateKey) ([]byte, error) {
	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("keys: no domains given for CSR")
	}
	subject := cfg.DN
	if cfg.CommonName != "" {
		subject.CommonName = cfg.CommonName
	} else {
		subject.CommonName = cfg.Domains[0]
	}

	template := &x509.CertificateRequest{
		SignatureAlgorithm: x509.SHA256WithRSA,
		Subject:            subject,
		DNSNames:           cfg.Domains,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, fmt.Errorf("creating certificate signing request: %w", err)
	}
	return der, nil
}

// CSRToPEM PEM-armors a DER certificate signing request.
func CSRToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}

// CertToPEM PEM-armors a DER certificate with the standard 64-column
// base64 line wrapping.
func CertToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
