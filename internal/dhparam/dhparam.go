// Package dhparam loads or generates Diffie-Hellman parameters for an
// optionally configured parameter file. The issuance engine never
// needs DH parameters itself; this exists for callers that want to
// feed a dhParamFile setting to a downstream TLS server.
package dhparam

import (
	"crypto/rand"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
)

// Load reads PEM-encoded DH parameters from path.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Generate produces fresh PEM-encoded DH parameters of the given bit
// size, for when dhParamFile is configured but the file does not yet
// exist. This picks a random prime candidate of the requested size and
// the generator 2; it is not a substitute for a vetted DH parameter
// generator in a production deployment.
func Generate(bits int) ([]byte, error) {
	p, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	g := big.NewInt(2)

	der, err := asn1.Marshal(dhParamsASN1{P: p, G: g})
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "DH PARAMETERS", Bytes: der}), nil
}

// dhParamsASN1 mirrors the ASN.1 DHParameter structure (RFC 2786 /
// PKCS#3): SEQUENCE { prime INTEGER, base INTEGER }.
type dhParamsASN1 struct {
	P *big.Int
	G *big.Int
}
