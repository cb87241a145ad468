// Package client implements the ACME protocol engine's nonce handling
// and JWS-signed request/response flow against a CA, for the RSA,
// always-embedded-JWK draft dialect this CA speaks.
package client

import (
	"crypto/rsa"
	"strings"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/logging"
	"github.com/cpu/acmehttp01/internal/net"
)

// Client drives signed and unsigned requests against a single CA directory
// on behalf of one account key. It is not safe for concurrent use: the
// nonce it holds must be consumed and replenished in strict request order.
type Client struct {
	http      *net.Client
	Directory acme.Directory
	key       *rsa.PrivateKey
	nonces    *NonceStore
	log       logging.Sink
}

// New builds a Client for the given CA directory and account key. log may
// be the zero Sink, which discards every event.
func New(httpClient *net.Client, dir acme.Directory, accountKey *rsa.PrivateKey, log logging.Sink) *Client {
	return &Client{
		http:      httpClient,
		Directory: dir,
		key:       accountKey,
		nonces:    NewNonceStore(httpClient, dir.BaseURL+"/directory"),
		log:       log,
	}
}

// resolve turns a possibly-relative URI into an absolute one against
// the directory's base URL.
func (c *Client) resolve(uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	return c.Directory.BaseURL + uri
}

// Get issues a plain, unsigned GET — used for polling an Authorization or
// certificate URL, neither of which this CA's dialect requires a JWS for.
func (c *Client) Get(uri string) (*net.Response, error) {
	resolved := c.resolve(uri)
	c.log.Debug("GET", "url", resolved)
	resp, err := c.http.Get(resolved)
	if err != nil {
		c.log.Critical(err, "GET failed", "url", resolved)
		return nil, &acme.TransportError{URL: uri, Err: err}
	}
	c.nonces.Update(resp.Header.Get(acme.ReplayNonceHeader))
	return resp, nil
}

// SignedRequest builds a JWS over payload (marshaled to deterministic,
// non-HTML-escaped JSON) using the current nonce and the account's
// embedded JWK, POSTs it to uri, and replenishes the nonce from whatever
// the response carried — even on a non-2xx response, since the CA is
// expected to hand back a fresh nonce on every reply.
func (c *Client) SignedRequest(uri string, payload interface{}) (*net.Response, error) {
	resolved := c.resolve(uri)
	c.log.Debug("POST", "url", resolved)

	body, err := marshalPayload(payload)
	if err != nil {
		return nil, &acme.CryptoError{Op: "marshaling signed request payload", Err: err}
	}

	jws, err := signEmbedded(c.key, c.nonces, body)
	if err != nil {
		c.log.Critical(err, "signing request failed", "url", resolved)
		return nil, &acme.CryptoError{Op: "signing request", Err: err}
	}

	resp, err := c.http.Post(resolved, jws)
	if err != nil {
		c.log.Critical(err, "POST failed", "url", resolved)
		return nil, &acme.TransportError{URL: resolved, Err: err}
	}

	c.nonces.Update(resp.Header.Get(acme.ReplayNonceHeader))
	return resp, nil
}
