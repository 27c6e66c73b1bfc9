// Package credential defines the contract between the sign-in orchestrator
// and the pluggable secret backends that supply login credentials.
//
// A backend hands back either a plain-text password or a binary PKCS#12
// certificate bundle; the orchestrator decides the sign-in flow from the
// observed type, not from what the caller configured.
//
// # Implementing a Backend
//
// A backend validates its configuration eagerly at construction time and
// returns a ConfigurationError naming the offending field. Fetch is the only
// call that touches the backend system; every failure there (store
// unreachable, secret absent, secret disabled, secret outside its validity
// window) surfaces as a CredentialRetrievalError. Backends never log the
// credential value.
//
// Backends that cannot rely on authoritative content-type metadata classify
// the raw bytes with the shared heuristic in internal/providers: a DER
// SEQUENCE tag after optional base64 decoding marks a certificate, anything
// else is a trimmed password.
package credential

import "context"

// Type distinguishes the two credential shapes a backend can return.
type Type string

const (
	// TypePassword marks a plain-text password credential.
	TypePassword Type = "password"

	// TypeCertificate marks a binary PKCS#12/PFX certificate bundle.
	TypeCertificate Type = "certificate"
)

// Kind identifies a credential backend variant. The factory in
// internal/providers maps each kind to a constructor; any other value is an
// UnsupportedProviderError.
type Kind string

const (
	KindKeyVault    Kind = "key-vault"
	KindLocalFile   Kind = "local-file"
	KindEnvironment Kind = "environment"
	KindCISecret    Kind = "ci-secret"
	KindAWSSecrets  Kind = "aws-secrets"
	KindGCPSecrets  Kind = "gcp-secrets"
)

// Kinds lists every supported backend kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindKeyVault,
		KindLocalFile,
		KindEnvironment,
		KindCISecret,
		KindAWSSecrets,
		KindGCPSecrets,
	}
}

// Result is a fetched credential. It lives for a single orchestration pass,
// is never persisted, and must not be logged in full.
type Result struct {
	// Type is the observed credential type.
	Type Type

	// Value holds plain UTF-8 text for passwords and the raw PKCS#12 blob
	// for certificates.
	Value []byte

	// Password optionally unlocks a PKCS#12 blob. Empty for password
	// credentials and for unprotected bundles.
	Password string

	// Source describes where the credential came from, for diagnostics.
	Source string
}

// Provider is implemented by every credential backend.
//
// Construction validates configuration; a constructed provider is ready to
// fetch. Providers hold whatever short-lived backend client handles they
// need and are built fresh per use; the factory never caches instances.
type Provider interface {
	// Name returns a stable identifier for diagnostics. It has no
	// behavioral effect.
	Name() string

	// Fetch retrieves the credential and classifies it. Implementations
	// honor context cancellation and return CredentialRetrievalError on
	// any backend failure.
	Fetch(ctx context.Context) (Result, error)
}
