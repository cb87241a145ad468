package client

import (
	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/net"
)

// NonceStore holds the single cached Replay-Nonce value a Client signs its
// next request with. It satisfies go-jose's NonceSource interface directly:
// Nonce() both returns and consumes the cached value, so a nonce is never
// reused across two requests.
type NonceStore struct {
	current      string
	http         *net.Client
	directoryURL string
}

// NewNonceStore builds a NonceStore that refreshes by GETting directoryURL
// when its cache is empty, rather than a dedicated newNonce endpoint: the CA
// this client speaks to only exposes new-reg, new-authz and new-cert, and
// returns a Replay-Nonce on every directory fetch.
func NewNonceStore(httpClient *net.Client, directoryURL string) *NonceStore {
	return &NonceStore{http: httpClient, directoryURL: directoryURL}
}

// Nonce returns the cached nonce, consuming it, refreshing first via GET
// <ca>/directory if the cache is empty. Obtaining a nonce this way is fatal
// for the caller's request when it fails.
func (n *NonceStore) Nonce() (string, error) {
	if n.current == "" {
		if err := n.refresh(); err != nil {
			return "", err
		}
	}
	nonce := n.current
	n.current = ""
	return nonce, nil
}

func (n *NonceStore) refresh() error {
	resp, err := n.http.Get(n.directoryURL)
	if err != nil {
		return &acme.NonceError{Reason: "fetching " + n.directoryURL + ": " + err.Error()}
	}
	if resp.StatusCode != 200 {
		return &acme.NonceError{Reason: "directory fetch returned unexpected status"}
	}
	nonce := resp.Header.Get(acme.ReplayNonceHeader)
	if nonce == "" {
		return &acme.NonceError{Reason: "directory response carried no Replay-Nonce header"}
	}
	n.current = nonce
	return nil
}

// Update replenishes the cache from a response header, once the caller that
// consumed the previous nonce has a new one to store. A blank nonce is
// ignored rather than clearing an already-cached value.
func (n *NonceStore) Update(nonce string) {
	if nonce != "" {
		n.current = nonce
	}
}
