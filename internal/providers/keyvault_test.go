package providers_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/logging"
	"github.com/systmms/authops/internal/providers"
	"github.com/systmms/authops/pkg/credential"
	"github.com/systmms/authops/tests/fakes"
)

func keyVaultSettings() config.KeyVaultSettings {
	return config.KeyVaultSettings{
		VaultURL:   "https://my-vault.vault.azure.net",
		SecretName: "app-login",
	}
}

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

func TestKeyVaultProviderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings config.KeyVaultSettings
		field    string
	}{
		{"missing vault_url", config.KeyVaultSettings{SecretName: "s"}, "vault_url"},
		{"malformed vault_url", config.KeyVaultSettings{VaultURL: "not a url", SecretName: "s"}, "vault_url"},
		{"missing secret_name", config.KeyVaultSettings{VaultURL: "https://v.vault.azure.net"}, "secret_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := providers.NewKeyVaultProvider(tt.settings, testLogger())
			require.Error(t, err)

			var cfgErr autherrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestKeyVaultProviderName(t *testing.T) {
	t.Parallel()

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fakes.NewFakeKeyVaultClient()))
	require.NoError(t, err)
	assert.Equal(t, "key-vault", p.Name())
}

func TestKeyVaultFetchPassword(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyVaultClient()
	fake.AddSecret("app-login", "hunter2\n", nil, nil)

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fake))
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credential.TypePassword, result.Type)
	assert.Equal(t, []byte("hunter2"), result.Value)
	assert.Equal(t, "key-vault:app-login", result.Source)
}

func TestKeyVaultFetchCertificateByContentType(t *testing.T) {
	t.Parallel()

	blob := derBlob(400)
	fake := fakes.NewFakeKeyVaultClient()
	fake.AddSecret("app-login", base64.StdEncoding.EncodeToString(blob),
		to.Ptr("application/x-pkcs12"), nil)

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fake))
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credential.TypeCertificate, result.Type)
	assert.Equal(t, blob, result.Value)
}

func TestKeyVaultFetchDisabledSecret(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyVaultClient()
	fake.AddSecret("app-login", "value", nil, &azsecrets.SecretAttributes{
		Enabled: to.Ptr(false),
	})

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fake))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "disabled")
}

func TestKeyVaultFetchExpiredSecret(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyVaultClient()
	fake.AddSecret("app-login", "value", nil, &azsecrets.SecretAttributes{
		Expires: to.Ptr(time.Now().Add(-time.Hour)),
	})

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fake))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "expired")
}

func TestKeyVaultFetchNotBeforeSecret(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyVaultClient()
	fake.AddSecret("app-login", "value", nil, &azsecrets.SecretAttributes{
		NotBefore: to.Ptr(time.Now().Add(time.Hour)),
	})

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fake))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "not valid before")
}

func TestKeyVaultFetchAbsentSecret(t *testing.T) {
	t.Parallel()

	p, err := providers.NewKeyVaultProvider(keyVaultSettings(), testLogger(),
		providers.WithKeyVaultClient(fakes.NewFakeKeyVaultClient()))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Suggestion, "case-sensitive")
}
