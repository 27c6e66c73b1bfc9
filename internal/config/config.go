// Package config builds the immutable configuration for one sign-in pass.
//
// Everything the orchestrator and the credential backends need is resolved
// here, once, before any browser is launched. Neither of them reads ambient
// process state afterwards; the one exception is the environment backend,
// which reads exactly the variable this configuration names.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/pkg/credential"
)

// Defaults for AuthConfig fields left unset by the caller.
const (
	DefaultOutputDir          = ".auth"
	DefaultSessionTTLHours    = 24
	DefaultLoginEndpoint      = "login.microsoftonline.com"
	DefaultClientTokenTimeout = 30 * time.Second
)

// KeyVaultSettings configures the Azure Key Vault backend. With no service
// principal fields set, the default Azure credential chain is used.
type KeyVaultSettings struct {
	VaultURL     string `yaml:"vault_url"`
	SecretName   string `yaml:"secret_name"`
	TenantID     string `yaml:"tenant_id,omitempty"`
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
}

// LocalFileSettings configures the local-file backend.
type LocalFileSettings struct {
	Path string `yaml:"path"`
	// Password unlocks a passphrase-protected PKCS#12 bundle.
	Password string `yaml:"password,omitempty"`
}

// EnvironmentSettings configures the environment-variable backend.
type EnvironmentSettings struct {
	Variable string `yaml:"variable"`
}

// CISecretSettings configures the CI secret-store backend. The value is read
// from the runner environment variable named after the secret; with a token
// configured, the secret's existence is verified against the repository's
// Actions secrets first.
type CISecretSettings struct {
	Repository string `yaml:"repository"`
	SecretName string `yaml:"secret_name"`
	Token      string `yaml:"token,omitempty"`
}

// AWSSecretsSettings configures the AWS Secrets Manager backend. Endpoint
// and static credentials exist for LocalStack-style testing.
type AWSSecretsSettings struct {
	SecretName      string `yaml:"secret_name"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// GCPSecretsSettings configures the GCP Secret Manager backend.
type GCPSecretsSettings struct {
	ProjectID             string `yaml:"project_id"`
	SecretName            string `yaml:"secret_name"`
	ServiceAccountKeyPath string `yaml:"service_account_key_path,omitempty"`
}

// ProviderSettings is a variant record: exactly one member matching the
// configured provider kind is non-nil. The factory rejects a missing variant
// with a ConfigurationError; touching a variant other than the active one is
// a programming error.
type ProviderSettings struct {
	KeyVault    *KeyVaultSettings    `yaml:"key-vault,omitempty"`
	LocalFile   *LocalFileSettings   `yaml:"local-file,omitempty"`
	Environment *EnvironmentSettings `yaml:"environment,omitempty"`
	CISecret    *CISecretSettings    `yaml:"ci-secret,omitempty"`
	AWSSecrets  *AWSSecretsSettings  `yaml:"aws-secrets,omitempty"`
	GCPSecrets  *GCPSecretsSettings  `yaml:"gcp-secrets,omitempty"`
}

// AuthConfig is the complete, immutable configuration for one sign-in pass.
type AuthConfig struct {
	// Identity is the account to sign in; also the session cache key.
	Identity string `validate:"required,email"`

	// CredentialType is the expected credential shape. The observed type
	// from the backend wins on mismatch; this field only drives a warning.
	CredentialType credential.Type `validate:"required,oneof=password certificate"`

	// ProviderKind selects the credential backend.
	ProviderKind credential.Kind `validate:"required"`

	// Provider carries the active backend's settings.
	Provider ProviderSettings

	// TargetURL is the application URL the sign-in should land on.
	TargetURL string `validate:"required,url"`

	// OutputDir holds session snapshots and diagnostic screenshots.
	OutputDir string

	// SessionTTLHours bounds how long a persisted session is reused.
	SessionTTLHours int `validate:"gte=0"`

	// LoginEndpoint is the identity provider's sign-in hostname.
	LoginEndpoint string `validate:"hostname"`

	// Headless controls browser visibility.
	Headless bool

	// SkipTokenWait disables the client-side token readiness wait that
	// otherwise runs once the redirect completes.
	SkipTokenWait bool

	// ClientTokenTimeout bounds the token readiness wait.
	ClientTokenTimeout time.Duration

	// Debug enables verbose logging.
	Debug bool
}

// ApplyDefaults fills unset fields. Call before Validate.
func (c *AuthConfig) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = DefaultSessionTTLHours
	}
	if c.LoginEndpoint == "" {
		c.LoginEndpoint = DefaultLoginEndpoint
	}
	if c.ClientTokenTimeout == 0 {
		c.ClientTokenTimeout = DefaultClientTokenTimeout
	}
}

// SessionTTL returns the session TTL as a duration.
func (c *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Validate checks the configuration and reports the first offending field.
func (c *AuthConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if invalid, ok := err.(*validator.InvalidValidationError); ok {
			return invalid
		}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			return autherrors.ConfigurationError{
				Field:      fieldErr.Field(),
				Value:      fieldErr.Value(),
				Message:    fmt.Sprintf("failed %q validation", fieldErr.Tag()),
				Suggestion: suggestionFor(fieldErr.Field()),
			}
		}
	}

	kindKnown := false
	for _, k := range credential.Kinds() {
		if c.ProviderKind == k {
			kindKnown = true
			break
		}
	}
	if !kindKnown {
		return autherrors.UnsupportedProviderError{
			Kind:      string(c.ProviderKind),
			Supported: kindNames(),
		}
	}

	return nil
}

func suggestionFor(field string) string {
	switch field {
	case "Identity":
		return "Pass the account as a full email address, e.g. --email user@contoso.com"
	case "CredentialType":
		return "Use --type password or --type certificate"
	case "TargetURL":
		return "Pass the application URL including scheme, e.g. --url https://app.contoso.com"
	case "LoginEndpoint":
		return "Pass a bare hostname, e.g. login.microsoftonline.com"
	default:
		return ""
	}
}

func kindNames() []string {
	kinds := credential.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// File is the optional authops.yaml layout. It only carries provider
// settings; everything else comes from flags.
type File struct {
	Providers ProviderSettings `yaml:"providers"`
}

// LoadFile reads provider settings from a YAML file. A missing file is only
// an error when the path was explicitly requested.
func LoadFile(path string, explicit bool) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &File{}, nil
		}
		if os.IsNotExist(err) {
			return nil, autherrors.ConfigurationError{
				Field:      "config",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: "Create the file or drop the --config flag",
			}
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, autherrors.ConfigurationError{
			Field:      "config",
			Value:      path,
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}
	return &f, nil
}

// Merge overlays file-provided provider settings onto flag-provided ones.
// Flags win per variant.
func (p *ProviderSettings) Merge(from ProviderSettings) {
	if p.KeyVault == nil {
		p.KeyVault = from.KeyVault
	}
	if p.LocalFile == nil {
		p.LocalFile = from.LocalFile
	}
	if p.Environment == nil {
		p.Environment = from.Environment
	}
	if p.CISecret == nil {
		p.CISecret = from.CISecret
	}
	if p.AWSSecrets == nil {
		p.AWSSecrets = from.AWSSecrets
	}
	if p.GCPSecrets == nil {
		p.GCPSecrets = from.GCPSecrets
	}
}
