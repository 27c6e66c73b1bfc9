package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/authops/internal/errors"
)

func TestConfigurationErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigurationError{
		Field:      "vault_url",
		Value:      "not-a-url",
		Message:    "invalid vault_url format",
		Suggestion: "Use format: https://vault-name.vault.azure.net/",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "vault_url")
	assert.Contains(t, errMsg, "not-a-url")
	assert.Contains(t, errMsg, "invalid vault_url format")
	assert.Contains(t, errMsg, "https://vault-name.vault.azure.net/")
	assert.Contains(t, errMsg, "💡")
}

func TestCredentialRetrievalErrorFormatting(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("connection refused")
	err := errors.CredentialRetrievalError{
		Provider:   "key-vault",
		Message:    "failed to access secret \"app-login\"",
		Suggestion: "Check Azure credentials",
		Err:        underlying,
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "key-vault")
	assert.Contains(t, errMsg, "app-login")
	assert.Contains(t, errMsg, "connection refused")
	assert.Contains(t, errMsg, "Check Azure credentials")
	assert.True(t, stderrors.Is(err, underlying), "underlying error unwraps")
}

func TestUnsupportedProviderErrorListsKinds(t *testing.T) {
	t.Parallel()

	err := errors.UnsupportedProviderError{
		Kind:      "hashivault",
		Supported: []string{"key-vault", "local-file"},
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, `"hashivault"`)
	assert.Contains(t, errMsg, "key-vault, local-file")
}

func TestLoginPageMismatchErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.LoginPageMismatchError{
		Expected: "login.microsoftonline.com",
		Actual:   "https://phishing.example.net/login",
	}

	assert.Contains(t, err.Error(), "login.microsoftonline.com")
	assert.Contains(t, err.Error(), "phishing.example.net")
}

func TestCertificateAuthenticationErrorDetail(t *testing.T) {
	t.Parallel()

	withDetail := errors.CertificateAuthenticationError{
		Message: "identity provider reported certificate validation failure",
		Detail:  "AADSTS500011",
	}
	assert.Contains(t, withDetail.Error(), "AADSTS500011")

	withoutDetail := errors.CertificateAuthenticationError{Message: "rejected"}
	assert.NotContains(t, withoutDetail.Error(), "Details")
}

func TestStorageAccessErrorUnwraps(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("permission denied")
	err := errors.StorageAccessError{Path: "/tmp/state.json", Op: "stat", Err: underlying}

	assert.Contains(t, err.Error(), "/tmp/state.json")
	assert.Contains(t, err.Error(), "stat")
	assert.True(t, stderrors.Is(err, underlying))
}

func TestRedirectTimeoutErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.RedirectTimeoutError{
		Target:  "https://app.contoso.com",
		Current: "https://login.microsoftonline.com/common",
	}

	assert.Contains(t, err.Error(), "app.contoso.com")
	assert.Contains(t, err.Error(), "login.microsoftonline.com")
}
