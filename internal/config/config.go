// Package config loads and validates the options an issuance run needs,
// from CLI flags parsed with github.com/jessevdk/go-flags, which
// supports repeatable list-valued flags directly via struct tags.
package config

import (
	"crypto/x509/pkix"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/cpu/acmehttp01/acme"
)

// Config holds every command-line option the issuance client accepts.
type Config struct {
	Debug bool `long:"debug" description:"Use the staging CA URL instead of ca"`

	CA        string `long:"ca" description:"Production CA base URL"`
	CATesting string `long:"ca-testing" description:"Staging CA base URL, used when --debug is set"`

	Agreement string `long:"agreement" description:"Subscriber Agreement URL to include in registration"`

	Domains []string `long:"domain" description:"Domain to request a certificate for; repeatable" required:"true"`

	CertAccountDir     string   `long:"account-dir" description:"Directory holding the account private key" required:"true"`
	CertAccountContact []string `long:"contact" description:"Account contact URI (mailto: or tel:); repeatable" required:"true"`

	CertDistinguishedNameCountry string `long:"dn-country" description:"CSR Subject countryName" required:"true"`
	CertDistinguishedNameOrg     string `long:"dn-org" description:"CSR Subject organizationName"`

	CertKeyTypes   []string `long:"key-type" default:"RSA" description:"Certificate key types; only RSA is implemented"`
	CertRSAKeyBits int      `long:"rsa-bits" default:"2048" description:"RSA key size in bits"`
	CertDigestAlg  string   `long:"digest" default:"sha256" description:"Certificate signature digest algorithm"`

	DHParamFile string `long:"dh-param-file" description:"Optional DH parameters file, absolute or relative to account-dir"`

	WebRootDir          string `long:"webroot" description:"HTTP-01 webroot directory"`
	AppendDomain        bool   `long:"append-domain" description:"Insert the domain name as a path segment under webroot"`
	AppendWellKnownPath bool   `no-flag:"true"`
	NoAppendWellKnown   bool   `long:"no-append-well-known" description:"Do not append .well-known/acme-challenge to the resolved webroot path"`
	WebServerFilePerm   uint32 `long:"webserver-file-perm" default:"420" description:"Permission bits (decimal) challenge files are written with; 420 is 0644"`

	TestChallengeAddrs []string `long:"test-challenge-addr" description:"Answer HTTP-01 with an in-process test responder bound to this address instead of webroot; repeatable. For issuing against a local development CA only"`

	CertDir string `long:"cert-dir" description:"Output directory for the issued bundle" required:"true"`
}

// Parse parses argv (typically os.Args[1:]) into a Config and validates
// it.
func Parse(argv []string) (*Config, error) {
	var cfg Config
	if _, err := flags.ParseArgs(&cfg, argv); err != nil {
		return nil, &acme.ConfigurationError{Reason: err.Error()}
	}
	// go-flags bool flags always default to false, so appending the
	// well-known path is on unless --no-append-well-known is given.
	cfg.AppendWellKnownPath = !cfg.NoAppendWellKnown
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize trims trailing slashes from every configured URL/path so
// path joins downstream never produce a doubled separator.
func (c *Config) normalize() {
	c.CA = strings.TrimRight(c.CA, "/")
	c.CATesting = strings.TrimRight(c.CATesting, "/")
	c.CertAccountDir = strings.TrimRight(c.CertAccountDir, "/")
	c.WebRootDir = strings.TrimRight(c.WebRootDir, "/")
	c.CertDir = strings.TrimRight(c.CertDir, "/")
}

// defaultContacts are the shipped example contacts that must never
// reach a real deployment unmodified.
var defaultContacts = map[string]bool{
	"mailto:cert-admin@example.com": true,
	"tel:+12025551212":              true,
}

// Validate rejects a malformed or incomplete Config before any network
// call is made.
func (c *Config) Validate() error {
	if len(c.Domains) == 0 {
		return &acme.ConfigurationError{Reason: "at least one --domain is required"}
	}
	if len(c.CertAccountContact) == 0 {
		return &acme.ConfigurationError{Reason: "certAccountContact must not be empty"}
	}
	for _, contact := range c.CertAccountContact {
		if defaultContacts[contact] {
			return &acme.ConfigurationError{Reason: "certAccountContact still contains the shipped default " + contact}
		}
	}
	if c.CertDistinguishedNameCountry == "" {
		return &acme.ConfigurationError{Reason: "certDistinguishedName must include countryName"}
	}
	for _, kt := range c.CertKeyTypes {
		if kt != "RSA" {
			return &acme.ConfigurationError{Reason: "unsupported certKeyTypes entry " + kt + ", only RSA is implemented"}
		}
	}

	if err := os.MkdirAll(c.CertAccountDir, 0700); err != nil {
		return &acme.ConfigurationError{Reason: "cannot create certAccountDir: " + err.Error()}
	}

	if c.WebRootDir == "" && len(c.TestChallengeAddrs) == 0 {
		return &acme.ConfigurationError{Reason: "one of --webroot or --test-challenge-addr is required"}
	}
	if c.WebRootDir != "" && len(c.TestChallengeAddrs) > 0 {
		return &acme.ConfigurationError{Reason: "--webroot and --test-challenge-addr are mutually exclusive"}
	}
	return nil
}

// UseTestChallengeResponder reports whether the configured challenge
// responder is the in-process test server rather than a real webroot.
func (c *Config) UseTestChallengeResponder() bool {
	return len(c.TestChallengeAddrs) > 0
}

// EffectiveCA returns the staging CA when Debug is set, else the
// production CA.
func (c *Config) EffectiveCA() string {
	if c.Debug {
		return c.CATesting
	}
	return c.CA
}

// DistinguishedName builds the pkix.Name CSRs are issued against from
// the configured fields.
func (c *Config) DistinguishedName() pkix.Name {
	dn := pkix.Name{Country: []string{c.CertDistinguishedNameCountry}}
	if c.CertDistinguishedNameOrg != "" {
		dn.Organization = []string{c.CertDistinguishedNameOrg}
	}
	return dn
}
