package acme

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Account holds the RSA key pair and contact list used to authenticate
// every signed request in a session. Accounts are immutable once
// created: a fresh Account is only built when no private key file
// exists yet for the configured account directory (see internal/storage).
type Account struct {
	PrivateKey *rsa.PrivateKey
	Contact    []string
}

// String returns a human-readable identifier for the account, derived
// from its contact list, for logging.
func (a Account) String() string {
	if len(a.Contact) == 0 {
		return "<account>"
	}
	return a.Contact[0]
}

// KeyPEM PEM-encodes the account's private key.
func (a Account) KeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(a.PrivateKey),
	})
}

// AccountFromPEM reconstructs an Account's private key from a PEM block
// produced by KeyPEM.
func AccountFromPEM(contact []string, der []byte) (*Account, error) {
	block, _ := pem.Decode(der)
	if block == nil {
		return nil, fmt.Errorf("acme: no PEM block found in account key data")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("acme: parsing account private key: %w", err)
	}
	return &Account{PrivateKey: key, Contact: contact}, nil
}
