// Package acme provides the protocol types shared by the ACME client
// packages: directory endpoints, accounts, authorizations, challenges, and
// the final certificate bundle.
package acme

// Directory endpoint keys. These mirror the legacy ACME draft dialect:
// fixed, well-known resource paths rather than RFC 8555's
// self-describing directory object.
const (
	NewRegPath   = "/acme/new-reg"
	NewAuthzPath = "/acme/new-authz"
	NewCertPath  = "/acme/new-cert"

	// ReplayNonceHeader is the HTTP response header carrying the next
	// usable anti-replay nonce.
	ReplayNonceHeader = "Replay-Nonce"
	// LocationHeader carries the URL of a newly created resource.
	LocationHeader = "Location"
	// LinkHeader carries, among other things, issuer chain links with
	// rel="up".
	LinkHeader = "Link"
)

// ChallengeType identifies a kind of ACME challenge. Only HTTP-01 is
// implemented; DNS-01 and TLS-ALPN-01 are explicit non-goals.
type ChallengeType string

// HTTP01 is the only challenge type this client drives.
const HTTP01 ChallengeType = "http-01"

// Directory is the CA's base URL and the endpoint paths derived from it.
type Directory struct {
	BaseURL string
}

func (d Directory) url(path string) string {
	return d.BaseURL + path
}

// NewRegURL returns the CA's account-registration endpoint.
func (d Directory) NewRegURL() string { return d.url(NewRegPath) }

// NewAuthzURL returns the CA's authorization-creation endpoint.
func (d Directory) NewAuthzURL() string { return d.url(NewAuthzPath) }

// NewCertURL returns the CA's certificate-finalization endpoint.
func (d Directory) NewCertURL() string { return d.url(NewCertPath) }

// Identifier is the subject of an Authorization. In practice this is
// always a DNS identifier.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Problem is a CA diagnostic body, surfaced verbatim in errors so an
// operator can see exactly what the server complained about.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

// Challenge is a single proof-of-control task offered inside an
// Authorization.
type Challenge struct {
	Type   string   `json:"type"`
	URI    string   `json:"uri"`
	Token  string   `json:"token"`
	Status string   `json:"status"`
	Error  *Problem `json:"error,omitempty"`
}

// Authorization is the CA's record of progress proving control of one
// Identifier. Its ID is the URL captured from the new-authz response's
// Location header, not a field in the JSON body.
type Authorization struct {
	ID         string      `json:"-"`
	Status     string      `json:"status"`
	Identifier Identifier  `json:"identifier"`
	Challenges []Challenge `json:"challenges"`
}

// String returns the Authorization's URL.
func (a Authorization) String() string { return a.ID }

// CertificateBundle is the final output of a successful issuance: the
// signed leaf, its issuer chain, and the private key that was used to
// sign the CSR. DHParams is populated only when a dhParamFile was
// configured.
type CertificateBundle struct {
	Leaf     []byte
	Chain    []byte
	Key      []byte
	DHParams []byte
}
