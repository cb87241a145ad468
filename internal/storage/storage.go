// Package storage persists and restores the account key pair, the
// only state that needs to survive between runs: an account key file
// exists iff the account was registered in this run or a prior one.
package storage

import (
	"os"
	"path/filepath"

	"github.com/cpu/acmehttp01/acme"
	"github.com/cpu/acmehttp01/internal/keys"
)

const accountKeyFile = "private.key"

// LoadOrCreateAccount restores the account key from
// <accountDir>/private.key if it exists, otherwise generates a fresh
// RSA key of rsaBits and persists it there, creating accountDir with
// owner-only permissions if absent.
func LoadOrCreateAccount(accountDir string, contact []string, rsaBits int) (*acme.Account, error) {
	path := filepath.Join(accountDir, accountKeyFile)

	if data, err := os.ReadFile(path); err == nil {
		account, err := acme.AccountFromPEM(contact, data)
		if err != nil {
			return nil, &acme.CryptoError{Op: "loading account key from " + path, Err: err}
		}
		return account, nil
	} else if !os.IsNotExist(err) {
		return nil, &acme.CryptoError{Op: "reading account key from " + path, Err: err}
	}

	if err := os.MkdirAll(accountDir, 0700); err != nil {
		return nil, &acme.ConfigurationError{Reason: "cannot create certAccountDir " + accountDir + ": " + err.Error()}
	}

	key, err := keys.GenerateRSAKey(rsaBits)
	if err != nil {
		return nil, &acme.CryptoError{Op: "generating account key", Err: err}
	}
	account := &acme.Account{PrivateKey: key, Contact: contact}

	if err := os.WriteFile(path, account.KeyPEM(), 0600); err != nil {
		return nil, &acme.CryptoError{Op: "persisting account key to " + path, Err: err}
	}
	return account, nil
}
