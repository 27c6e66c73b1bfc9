package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/pkg/credential"
)

// KeyVaultClientAPI is the slice of the Azure Key Vault secrets client this
// provider uses. Narrow on purpose so tests can inject a fake.
type KeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// KeyVaultProvider fetches a login credential from Azure Key Vault. It is
// the one backend with authoritative type metadata: a certificate content
// type on the secret is trusted outright, sniffing only happens without one.
type KeyVaultProvider struct {
	client   KeyVaultClientAPI
	logger   *logging.Logger
	settings config.KeyVaultSettings
}

// KeyVaultOption configures a KeyVaultProvider.
type KeyVaultOption func(*KeyVaultProvider)

// WithKeyVaultClient sets a custom Key Vault client (for testing).
func WithKeyVaultClient(client KeyVaultClientAPI) KeyVaultOption {
	return func(p *KeyVaultProvider) {
		p.client = client
	}
}

// NewKeyVaultProvider validates the settings eagerly and builds the Azure
// client. Validation failures name the offending field; nothing is deferred
// to fetch time.
func NewKeyVaultProvider(settings config.KeyVaultSettings, logger *logging.Logger, opts ...KeyVaultOption) (*KeyVaultProvider, error) {
	if settings.VaultURL == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "vault_url",
			Message:    "vault_url is required for the key-vault provider",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if u, err := url.Parse(settings.VaultURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "vault_url",
			Value:      settings.VaultURL,
			Message:    "invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}
	if settings.SecretName == "" {
		return nil, autherrors.ConfigurationError{
			Field:      "secret_name",
			Message:    "secret_name is required for the key-vault provider",
			Suggestion: "Name the Key Vault secret that holds the password or PFX bundle",
		}
	}

	p := &KeyVaultProvider{
		logger:   logger,
		settings: settings,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := newKeyVaultClient(settings)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

func newKeyVaultClient(settings config.KeyVaultSettings) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	if settings.ClientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(settings.TenantID, settings.ClientID, settings.ClientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(settings.VaultURL, cred, nil)
}

// Name returns the provider name
func (p *KeyVaultProvider) Name() string {
	return "key-vault"
}

// Fetch retrieves the secret and classifies it. A disabled secret or one
// outside its not-before/expires window is a retrieval failure, never a
// silent substitute.
func (p *KeyVaultProvider) Fetch(ctx context.Context) (credential.Result, error) {
	p.logger.Debug("Fetching Key Vault secret %s from %s", logging.Secret(p.settings.SecretName), p.settings.VaultURL)

	resp, err := p.client.GetSecret(ctx, p.settings.SecretName, "", nil)
	if err != nil {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("failed to access secret %q", p.settings.SecretName),
			Suggestion: keyVaultErrorSuggestion(err),
			Err:        err,
		}
	}

	if err := checkSecretAttributes(p.Name(), p.settings.SecretName, resp.Attributes); err != nil {
		return credential.Result{}, err
	}

	if resp.Value == nil {
		return credential.Result{}, autherrors.CredentialRetrievalError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("secret %q has no value", p.settings.SecretName),
		}
	}

	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}

	result := Classify([]byte(*resp.Value), contentType)
	result.Source = "key-vault:" + p.settings.SecretName
	return result, nil
}

func checkSecretAttributes(providerName, secretName string, attrs *azsecrets.SecretAttributes) error {
	if attrs == nil {
		return nil
	}

	now := time.Now()
	switch {
	case attrs.Enabled != nil && !*attrs.Enabled:
		return autherrors.CredentialRetrievalError{
			Provider:   providerName,
			Message:    fmt.Sprintf("secret %q is disabled", secretName),
			Suggestion: "Enable the secret in the Key Vault or point at an active one",
		}
	case attrs.NotBefore != nil && now.Before(*attrs.NotBefore):
		return autherrors.CredentialRetrievalError{
			Provider: providerName,
			Message:  fmt.Sprintf("secret %q is not valid before %s", secretName, attrs.NotBefore.Format(time.RFC3339)),
		}
	case attrs.Expires != nil && now.After(*attrs.Expires):
		return autherrors.CredentialRetrievalError{
			Provider:   providerName,
			Message:    fmt.Sprintf("secret %q expired at %s", secretName, attrs.Expires.Format(time.RFC3339)),
			Suggestion: "Rotate the secret or upload a fresh certificate bundle",
		}
	}

	return nil
}

// keyVaultErrorSuggestion provides helpful suggestions based on Azure errors
func keyVaultErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "access denied"):
		return "Check Key Vault access policies: 'Get' permission is required for secrets"
	case strings.Contains(errStr, "secretnotfound") || strings.Contains(errStr, "404"):
		return "Verify the secret name exists in the Key Vault. Secret names are case-sensitive"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "Check authentication: verify service principal settings or Azure CLI login"
	case strings.Contains(errStr, "vault not found") || strings.Contains(errStr, "keyvaulterror"):
		return "Check the vault URL format and that the Key Vault exists"
	case strings.Contains(errStr, "throttled") || strings.Contains(errStr, "429"):
		return "Request was throttled. Wait a moment and try again"
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct and the application is registered"
	default:
		return "Check Azure credentials, Key Vault URL, and access policies"
	}
}
