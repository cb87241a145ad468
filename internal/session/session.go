// Package session implements the ACME protocol state machine: account
// registration, per-domain authorization via a Challenge Provider, and
// certificate finalization.
package session

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/challenge"
	acmeclient "github.com/cpu/acmehttp01/internal/client"
	"github.com/cpu/acmehttp01/internal/keys"
	"github.com/cpu/acmehttp01/internal/logging"
)

// PollPacing controls how a poll loop paces itself between attempts and
// how many attempts it takes before giving up.
type PollPacing struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPacing polls every two seconds for up to two minutes.
var DefaultPollPacing = PollPacing{Interval: 2 * time.Second, MaxAttempts: 60}

// Session drives one account through registration, authorization of a
// set of domains, and finalization into a certificate bundle. A Session
// is initialized once; a second Init call is a programming error.
type Session struct {
	client      *acmeclient.Client
	provider    challenge.Provider
	log         logging.Sink
	pacing      PollPacing
	agreement   string
	initialized bool
	account     *acme.Account
}

// Config supplies everything a Session needs beyond the account itself.
type Config struct {
	Client    *acmeclient.Client
	Provider  challenge.Provider
	Log       logging.Sink
	Pacing    PollPacing
	Agreement string
}

// New builds a Session. It is not yet usable until Init registers the
// account. The zero Log discards every event.
func New(cfg Config) *Session {
	pacing := cfg.Pacing
	if pacing.MaxAttempts == 0 {
		pacing = DefaultPollPacing
	}
	return &Session{
		client:    cfg.Client,
		provider:  cfg.Provider,
		log:       cfg.Log,
		pacing:    pacing,
		agreement: cfg.Agreement,
	}
}

// defaultContacts are the shipped example contacts every real
// deployment must replace before registering an account.
var defaultContacts = map[string]bool{
	"mailto:cert-admin@example.com": true,
	"tel:+12025551212":              true,
}

// validateContacts rejects an unmodified default contact list before
// any network call is made.
func validateContacts(contacts []string) error {
	if len(contacts) == 0 {
		return &acme.ConfigurationError{Reason: "certAccountContact must not be empty"}
	}
	for _, c := range contacts {
		if defaultContacts[c] {
			return &acme.ConfigurationError{
				Reason: fmt.Sprintf("certAccountContact still contains the shipped default %q", c),
			}
		}
	}
	return nil
}

type newRegRequest struct {
	Resource  string   `json:"resource"`
	Agreement string   `json:"agreement,omitempty"`
	Contact   []string `json:"contact,omitempty"`
}

// Init registers account, rejecting unmodified default contacts before
// making any request. Calling Init twice on the same Session is a
// StateError.
func (s *Session) Init(account *acme.Account) error {
	if s.initialized {
		return &acme.StateError{Reason: "session already initialized"}
	}

	if err := validateContacts(account.Contact); err != nil {
		s.log.Critical(err, "rejecting account contact")
		return err
	}

	s.log.Debug("submitting new-reg", "contact", strings.Join(account.Contact, ","))
	resp, err := s.client.SignedRequest(acme.NewRegPath, newRegRequest{
		Resource:  "new-reg",
		Agreement: s.agreement,
		Contact:   account.Contact,
	})
	if err != nil {
		s.log.Critical(err, "new-reg request failed")
		return err
	}
	if resp.StatusCode != 201 {
		err := &acme.TransportError{URL: acme.NewRegPath, StatusCode: resp.StatusCode, Body: resp.Body}
		s.log.Critical(err, "new-reg did not return 201")
		return err
	}

	s.account = account
	s.initialized = true
	s.log.Notice("account registered", "contact", strings.Join(account.Contact, ","))
	return nil
}

type newAuthzRequest struct {
	Resource   string          `json:"resource"`
	Identifier acme.Identifier `json:"identifier"`
}

type challengeResponseRequest struct {
	Resource         string `json:"resource"`
	Type             string `json:"type"`
	KeyAuthorization string `json:"keyAuthorization"`
	Token            string `json:"token"`
}

// Authorize proves control of every domain in domains. It self-checks
// all of them with the configured Provider before contacting the CA for
// any of them: if any domain fails its local self-check, Authorize
// returns without ever issuing a new-authz request, for that domain or
// any other. Only once every domain has passed its self-check does it
// proceed, in order, through new-authz, challenge response, and polling
// for each.
func (s *Session) Authorize(domains []string) error {
	if !s.initialized {
		return &acme.StateError{Reason: "session not initialized"}
	}

	for _, domain := range domains {
		s.log.Debug("running local self-check", "domain", domain)
		if err := s.provider.ValidateDomainControl(domain); err != nil {
			s.log.Critical(err, "self-check failed, aborting before any CA contact", "domain", domain)
			return err
		}
	}

	for _, domain := range domains {
		if err := s.authorizeDomain(domain); err != nil {
			return err
		}
	}
	return nil
}

// AuthorizeDomain runs the full single-domain authorization flow: a
// local self-check, new-authz, challenge selection and response, and
// polling until the Authorization reaches a terminal status. Calling it
// directly on multiple domains does not give the all-domains-self-check
// guarantee Authorize does; Authorize is the entry point for more than
// one domain.
func (s *Session) AuthorizeDomain(domain string) error {
	if !s.initialized {
		return &acme.StateError{Reason: "session not initialized"}
	}

	s.log.Debug("running local self-check", "domain", domain)
	if err := s.provider.ValidateDomainControl(domain); err != nil {
		s.log.Critical(err, "self-check failed", "domain", domain)
		return err
	}

	return s.authorizeDomain(domain)
}

// authorizeDomain runs new-authz onward for domain, assuming its local
// self-check already passed. The challenge token is always cleaned up
// before returning, on every path.
func (s *Session) authorizeDomain(domain string) error {
	s.log.Debug("submitting new-authz", "domain", domain)
	resp, err := s.client.SignedRequest(acme.NewAuthzPath, newAuthzRequest{
		Resource:   "new-authz",
		Identifier: acme.Identifier{Type: "dns", Value: domain},
	})
	if err != nil {
		s.log.Critical(err, "new-authz request failed", "domain", domain)
		return err
	}
	if resp.StatusCode != 201 {
		err := &acme.TransportError{URL: acme.NewAuthzPath, StatusCode: resp.StatusCode, Body: resp.Body}
		s.log.Critical(err, "new-authz did not return 201", "domain", domain)
		return err
	}
	authzURL := resp.Header.Get(acme.LocationHeader)
	if authzURL == "" {
		return &acme.TransportError{URL: acme.NewAuthzPath, StatusCode: resp.StatusCode, Body: resp.Body,
			Err: fmt.Errorf("response carried no Location header")}
	}

	var authz acme.Authorization
	if err := json.Unmarshal(resp.Body, &authz); err != nil {
		return &acme.TransportError{URL: authzURL, Err: fmt.Errorf("parsing authorization body: %w", err)}
	}
	authz.ID = authzURL

	var selected *acme.Challenge
	for i := range authz.Challenges {
		if authz.Challenges[i].Type == string(s.provider.Type()) {
			selected = &authz.Challenges[i]
			break
		}
	}
	if selected == nil {
		err := &acme.ChallengeError{Domain: domain, Reason: "no compatible challenge offered by CA"}
		s.log.Critical(err, "no compatible challenge offered", "domain", domain)
		return err
	}

	keyAuth, err := s.provider.PrepareChallenge(domain, *selected, &s.account.PrivateKey.PublicKey)
	defer s.provider.CleanupChallenge(domain, *selected)
	if err != nil {
		s.log.Critical(err, "preparing challenge response failed", "domain", domain)
		return err
	}
	s.log.Debug("challenge prepared", "domain", domain, "type", selected.Type)

	resp, err = s.client.SignedRequest(selected.URI, challengeResponseRequest{
		Resource:         "challenge",
		Type:             selected.Type,
		KeyAuthorization: keyAuth,
		Token:            selected.Token,
	})
	if err != nil {
		s.log.Critical(err, "challenge response request failed", "domain", domain)
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &acme.TransportError{URL: selected.URI, StatusCode: resp.StatusCode, Body: resp.Body}
		s.log.Critical(err, "challenge response rejected", "domain", domain)
		return err
	}

	if err := s.pollAuthorization(domain, authzURL); err != nil {
		return err
	}
	s.log.Notice("domain authorized", "domain", domain)
	return nil
}

func (s *Session) pollAuthorization(domain, authzURL string) error {
	var lastBody []byte
	var lastStatus string
	for attempt := 0; attempt < s.pacing.MaxAttempts; attempt++ {
		s.log.Debug("polling authorization", "domain", domain, "attempt", attempt)
		resp, err := s.client.Get(authzURL)
		if err != nil {
			return err
		}
		var authz acme.Authorization
		if err := json.Unmarshal(resp.Body, &authz); err != nil {
			return &acme.TransportError{URL: authzURL, Err: fmt.Errorf("parsing authorization body: %w", err)}
		}
		lastBody = resp.Body
		lastStatus = authz.Status

		if authz.Status != "pending" {
			if authz.Status != "valid" {
				err := &acme.AuthorizationError{Domain: domain, Status: authz.Status, Body: lastBody}
				s.log.Critical(err, "authorization reached a terminal non-valid status", "domain", domain)
				return err
			}
			s.log.Debug("authorization valid", "domain", domain)
			return nil
		}
		time.Sleep(s.pacing.Interval)
	}
	err := &acme.AuthorizationError{Domain: domain, Status: lastStatus, Body: lastBody}
	s.log.Critical(err, "exhausted poll budget waiting for authorization", "domain", domain)
	return err
}

type newCertRequest struct {
	Resource string `json:"resource"`
	CSR      string `json:"csr"`
}

// Finalize generates a fresh domain key pair, submits a CSR covering
// all of domains, and polls the issued certificate URL until the leaf
// is ready, assembling the issuer chain from Link: rel="up" headers.
func (s *Session) Finalize(domains []string, rsaBits int, dn keys.CSRConfig) (*acme.CertificateBundle, error) {
	if !s.initialized {
		return nil, &acme.StateError{Reason: "session not initialized"}
	}
	if len(domains) == 0 {
		return nil, &acme.ConfigurationError{Reason: "no domains to finalize"}
	}

	domainKey, err := keys.GenerateRSAKey(rsaBits)
	if err != nil {
		return nil, &acme.CryptoError{Op: "generating domain key", Err: err}
	}

	dn.Domains = domains
	der, err := keys.NewCSR(dn, domainKey)
	if err != nil {
		return nil, &acme.CryptoError{Op: "building CSR", Err: err}
	}

	s.log.Debug("submitting new-cert", "domains", strings.Join(domains, ","))
	resp, err := s.client.SignedRequest(acme.NewCertPath, newCertRequest{
		Resource: "new-cert",
		CSR:      keys.Base64URL(der),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 201 {
		err := &acme.CertificateError{Reason: "new-cert did not return 201", Body: resp.Body}
		s.log.Critical(err, "new-cert did not return 201")
		return nil, err
	}
	certURL := resp.Header.Get(acme.LocationHeader)
	if certURL == "" {
		return nil, &acme.CertificateError{Reason: "new-cert response carried no Location header"}
	}

	bundle, err := s.pollCertificate(certURL, domainKey)
	if err != nil {
		return nil, err
	}
	s.log.Notice("certificate issued", "domains", strings.Join(domains, ","))
	return bundle, nil
}

func (s *Session) pollCertificate(certURL string, domainKey *rsa.PrivateKey) (*acme.CertificateBundle, error) {
	for attempt := 0; attempt < s.pacing.MaxAttempts; attempt++ {
		s.log.Debug("polling certificate", "attempt", attempt)
		resp, err := s.client.Get(certURL)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case 202:
			time.Sleep(s.pacing.Interval)
			continue
		case 200:
			chain, err := s.fetchChain(resp.Header.Values(acme.LinkHeader))
			if err != nil {
				return nil, err
			}
			return &acme.CertificateBundle{
				Leaf:  keys.CertToPEM(resp.Body),
				Chain: chain,
				Key:   keys.KeyToPEM(domainKey),
			}, nil
		default:
			err := &acme.CertificateError{Reason: fmt.Sprintf("unexpected status %d polling certificate", resp.StatusCode), Body: resp.Body}
			s.log.Critical(err, "unexpected status polling certificate")
			return nil, err
		}
	}
	return nil, &acme.CertificateError{Reason: "exhausted poll budget waiting for certificate"}
}

// fetchChain fetches and PEM-armors every rel="up" Link header, in the
// order they appeared, concatenating them into one issuer chain.
func (s *Session) fetchChain(links []string) ([]byte, error) {
	var chain []byte
	for _, link := range links {
		url, rel, ok := parseLink(link)
		if !ok || rel != "up" {
			continue
		}
		resp, err := s.client.Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != 200 {
			return nil, &acme.CertificateError{Reason: fmt.Sprintf("fetching issuer %q returned status %d", url, resp.StatusCode)}
		}
		chain = append(chain, keys.CertToPEM(resp.Body)...)
	}
	return chain, nil
}

// parseLink splits a single Link header value, e.g.
// `<https://ca.example/chain1>; rel="up"`, into its URL and rel
// parameter.
func parseLink(link string) (url, rel string, ok bool) {
	parts := strings.Split(link, ";")
	if len(parts) < 2 {
		return "", "", false
	}
	url = strings.TrimSpace(parts[0])
	url = strings.TrimPrefix(url, "<")
	url = strings.TrimSuffix(url, ">")

	for _, param := range parts[1:] {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, "rel=") {
			continue
		}
		rel = strings.TrimPrefix(param, "rel=")
		rel = strings.Trim(rel, `"`)
		return url, rel, true
	}
	return "", "", false
}
