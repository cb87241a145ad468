// Package challenge defines the pluggable domain-control capability an
// ACME Session drives per domain: a self-check, a way to prepare a
// challenge response, and guaranteed cleanup. A single Provider
// implementation is selected once at session construction.
package challenge

import (
	"crypto/rsa"

	"github.com/cpu/acmehttp01/acme"
)

// Provider proves control of a domain for one challenge type.
type Provider interface {
	// Type returns the ACME challenge type this Provider answers, e.g.
	// "http-01".
	Type() acme.ChallengeType

	// ValidateDomainControl performs a local self-check that the
	// operator actually controls domain, before any CA request is
	// made for it.
	ValidateDomainControl(domain string) error

	// PrepareChallenge places whatever response artifact the given
	// Challenge requires and returns the key authorization the CA is
	// expected to observe.
	PrepareChallenge(domain string, ch acme.Challenge, accountKey *rsa.PublicKey) (string, error)

	// CleanupChallenge removes the artifact PrepareChallenge placed.
	// Idempotent and best-effort: called on every exit path, including
	// failure, so it must not itself panic or block indefinitely.
	CleanupChallenge(domain string, ch acme.Challenge)
}
