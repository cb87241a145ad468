package http01

import (
	"crypto/rsa"
	"fmt"

	"github.com/letsencrypt/challtestsrv"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/keys"
)

// TestProvider answers HTTP-01 challenges with an in-process origin
// server instead of a real, operator-run webroot, for issuing against
// local or development ACME servers (Pebble-like setups) where there is
// no webserver to place files on. It is a thin wrapper over
// challtestsrv.ChallSrv, which letsencrypt-boulder's own integration
// tests use for the same role.
type TestProvider struct {
	srv *challtestsrv.ChallSrv
}

// NewTestProvider starts a challtestsrv HTTP-01 responder bound to
// addrs (e.g. []string{":5002"}) and returns a Provider driving it.
func NewTestProvider(addrs []string) (*TestProvider, error) {
	srv, err := challtestsrv.New(challtestsrv.Config{HTTPOneAddrs: addrs})
	if err != nil {
		return nil, fmt.Errorf("http01: starting test challenge server: %w", err)
	}
	srv.Run()
	return &TestProvider{srv: srv}, nil
}

// Shutdown stops the underlying test server.
func (p *TestProvider) Shutdown() {
	p.srv.Shutdown()
}

// Type identifies this Provider as answering http-01 challenges.
func (p *TestProvider) Type() acme.ChallengeType { return acme.HTTP01 }

// ValidateDomainControl always succeeds: the test server answers every
// request on its bound address regardless of the Host header, so there
// is no real domain-control fact to check locally.
func (p *TestProvider) ValidateDomainControl(domain string) error {
	return nil
}

// PrepareChallenge registers the challenge's key authorization with the
// test server under its token, so a CA validation request against the
// bound test address will find it.
func (p *TestProvider) PrepareChallenge(domain string, ch acme.Challenge, accountKey *rsa.PublicKey) (string, error) {
	keyAuth := keys.KeyAuthorization(accountKey, ch.Token)
	p.srv.AddHTTPOneChallenge(ch.Token, keyAuth)
	return keyAuth, nil
}

// CleanupChallenge deregisters the challenge's token from the test
// server. Idempotent: challtestsrv.DeleteHTTPOneChallenge on an unknown
// token is a no-op.
func (p *TestProvider) CleanupChallenge(domain string, ch acme.Challenge) {
	p.srv.DeleteHTTPOneChallenge(ch.Token)
}
