// acmehttp01issue is a one-shot command-line client that registers an
// ACME account if needed, proves control of one or more domains via
// HTTP-01, and writes out the resulting certificate bundle.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/cmd"
	"github.com/cpu/acmehttp01/internal/challenge"
	"github.com/cpu/acmehttp01/internal/challenge/http01"
	acmeclient "github.com/cpu/acmehttp01/internal/client"
	"github.com/cpu/acmehttp01/internal/config"
	"github.com/cpu/acmehttp01/internal/dhparam"
	"github.com/cpu/acmehttp01/internal/keys"
	"github.com/cpu/acmehttp01/internal/logging"
	acmenet "github.com/cpu/acmehttp01/internal/net"
	"github.com/cpu/acmehttp01/internal/session"
	"github.com/cpu/acmehttp01/internal/storage"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	cmd.FailOnError(err, "loading configuration")

	log := logging.New("acmehttp01issue")

	account, err := storage.LoadOrCreateAccount(cfg.CertAccountDir, cfg.CertAccountContact, cfg.CertRSAKeyBits)
	cmd.FailOnError(err, "loading or creating account")

	httpClient, err := acmenet.New(acmenet.Config{})
	cmd.FailOnError(err, "building HTTP client")

	dir := acme.Directory{BaseURL: cfg.EffectiveCA()}
	protocolClient := acmeclient.New(httpClient, dir, account.PrivateKey, log)

	var provider challenge.Provider
	if cfg.UseTestChallengeResponder() {
		testProvider, err := http01.NewTestProvider(cfg.TestChallengeAddrs)
		cmd.FailOnError(err, "starting test challenge responder")
		defer testProvider.Shutdown()
		provider = testProvider
	} else {
		provider = http01.NewFileProvider(http01.FileConfig{
			WebRootDir:          cfg.WebRootDir,
			AppendDomain:        cfg.AppendDomain,
			AppendWellKnownPath: cfg.AppendWellKnownPath,
			FileMode:            os.FileMode(cfg.WebServerFilePerm),
		})
	}

	sess := session.New(session.Config{
		Client:    protocolClient,
		Provider:  provider,
		Log:       log,
		Agreement: cfg.Agreement,
	})

	go cmd.CatchSignals(func() {
		log.Info("aborting; any in-progress challenge token files are left on disk")
	})

	cmd.FailOnError(sess.Init(account), "registering account")
	cmd.FailOnError(sess.Authorize(cfg.Domains), fmt.Sprintf("authorizing %s", strings.Join(cfg.Domains, ",")))

	bundle, err := sess.Finalize(cfg.Domains, cfg.CertRSAKeyBits, keys.CSRConfig{DN: cfg.DistinguishedName()})
	cmd.FailOnError(err, "finalizing certificate")

	if cfg.DHParamFile != "" {
		bundle.DHParams, err = loadOrGenerateDHParams(cfg)
		cmd.FailOnError(err, "resolving DH parameters")
	}

	outDir := filepath.Join(cfg.CertDir, cfg.Domains[0])
	cmd.FailOnError(os.MkdirAll(outDir, 0700), "creating output directory")
	cmd.FailOnError(os.WriteFile(filepath.Join(outDir, "leaf.pem"), bundle.Leaf, 0644), "writing leaf certificate")
	cmd.FailOnError(os.WriteFile(filepath.Join(outDir, "chain.pem"), bundle.Chain, 0644), "writing issuer chain")
	cmd.FailOnError(os.WriteFile(filepath.Join(outDir, "key.pem"), bundle.Key, 0600), "writing private key")
	if len(bundle.DHParams) > 0 {
		cmd.FailOnError(os.WriteFile(filepath.Join(outDir, "dhparam.pem"), bundle.DHParams, 0644), "writing DH parameters")
	}

	log.Info("certificate issued", "domains", cfg.Domains, "dir", outDir)
}

// loadOrGenerateDHParams resolves cfg.DHParamFile (absolute, or relative
// to cfg.CertAccountDir) and loads it, generating and persisting a fresh
// 2048-bit parameter set if the file does not yet exist.
func loadOrGenerateDHParams(cfg *config.Config) ([]byte, error) {
	path := cfg.DHParamFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.CertAccountDir, path)
	}

	params, err := dhparam.Load(path)
	if err == nil {
		return params, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	params, err = dhparam.Generate(2048)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, params, 0644); err != nil {
		return nil, err
	}
	return params, nil
}
