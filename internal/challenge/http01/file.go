// Package http01 implements the HTTP-01 domain-control Provider: placing
// challenge response files under a webroot and verifying an HTTP fetch of
// the challenge's domain returns exactly what was written.
package http01

import (
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/challenge"
	"github.com/cpu/acmehttp01/internal/keys"
)

const selfCheckFile = "local_check.txt"
const selfCheckBody = "OK"

// FileConfig configures a FileProvider.
type FileConfig struct {
	// WebRootDir is the base directory challenge files are written
	// under.
	WebRootDir string
	// AppendDomain inserts the domain name as a path segment between
	// WebRootDir and the well-known path, for webroots serving several
	// virtual hosts from one filesystem location.
	AppendDomain bool
	// AppendWellKnownPath appends ".well-known/acme-challenge" to the
	// resolved directory. Disable it when WebRootDir already points at
	// that directory.
	AppendWellKnownPath bool
	// FileMode is the permission bits challenge files are written
	// with; the webserver serving WebRootDir must be able to read
	// them. Defaults to 0644.
	FileMode os.FileMode
}

// FileProvider answers HTTP-01 challenges by writing response files into
// a webroot directory an operator-controlled webserver serves, the
// primary Provider design: no in-process HTTP server is started, domain
// control is proven through a real, externally reachable webserver.
type FileProvider struct {
	cfg FileConfig
}

// NewFileProvider builds a FileProvider from cfg, filling in the default
// file mode when unset.
func NewFileProvider(cfg FileConfig) *FileProvider {
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}
	return &FileProvider{cfg: cfg}
}

// Type identifies this Provider as answering http-01 challenges.
func (p *FileProvider) Type() acme.ChallengeType { return acme.HTTP01 }

func (p *FileProvider) wellKnownDir(domain string) string {
	dir := p.cfg.WebRootDir
	if p.cfg.AppendDomain {
		dir = filepath.Join(dir, domain)
	}
	if p.cfg.AppendWellKnownPath {
		dir = filepath.Join(dir, ".well-known", "acme-challenge")
	}
	return dir
}

func challengeURL(domain, filename string) string {
	return fmt.Sprintf("http://%s/.well-known/acme-challenge/%s", domain, filename)
}

var selfCheckClient = &http.Client{Timeout: 10 * time.Second}

func fetch(url string) (int, string, error) {
	resp, err := selfCheckClient.Get(url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

// ValidateDomainControl writes a local_check.txt under domain's
// well-known path, fetches it back over plain HTTP, and requires the
// round trip to return "OK" before any CA request is made.
func (p *FileProvider) ValidateDomainControl(domain string) error {
	dir := p.wellKnownDir(domain)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &acme.ChallengeError{Domain: domain, Reason: "creating well-known path", Err: err}
	}

	path := filepath.Join(dir, selfCheckFile)
	token, err := challenge.AcquireScopedToken(path, []byte(selfCheckBody), p.cfg.FileMode)
	if err != nil {
		return &acme.ChallengeError{Domain: domain, Reason: "writing local self-check file", Err: err}
	}
	defer token.Close()

	status, body, err := fetch(challengeURL(domain, selfCheckFile))
	if err != nil {
		return &acme.ChallengeError{Domain: domain, Reason: "fetching local self-check file", Err: err}
	}
	if status != http.StatusOK || body != selfCheckBody {
		return &acme.ChallengeError{
			Domain: domain,
			Reason: fmt.Sprintf("local self-check returned status %d, body %q", status, body),
		}
	}
	return nil
}

// PrepareChallenge writes the challenge's key authorization to the
// well-known path and confirms it is served back exactly before
// returning it for the caller to submit to the CA.
func (p *FileProvider) PrepareChallenge(domain string, ch acme.Challenge, accountKey *rsa.PublicKey) (string, error) {
	keyAuth := keys.KeyAuthorization(accountKey, ch.Token)

	dir := p.wellKnownDir(domain)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &acme.ChallengeError{Domain: domain, Reason: "creating well-known path", Err: err}
	}

	path := filepath.Join(dir, ch.Token)
	token, err := challenge.AcquireScopedToken(path, []byte(keyAuth), p.cfg.FileMode)
	if err != nil {
		return "", &acme.ChallengeError{Domain: domain, Reason: "writing challenge token file", Err: err}
	}

	status, body, err := fetch(challengeURL(domain, ch.Token))
	if err != nil || status != http.StatusOK || body != keyAuth {
		_ = token.Close()
		if err == nil {
			err = fmt.Errorf("got status %d, body %q", status, body)
		}
		return "", &acme.ChallengeError{Domain: domain, Reason: "token not served correctly", Err: err}
	}

	return keyAuth, nil
}

// CleanupChallenge removes the token file PrepareChallenge wrote.
// Idempotent and best-effort: a missing file is not an error, and any
// other failure is swallowed since cleanup runs on every exit path,
// including ones that already failed.
func (p *FileProvider) CleanupChallenge(domain string, ch acme.Challenge) {
	path := filepath.Join(p.wellKnownDir(domain), ch.Token)
	_ = os.Remove(path)
}
