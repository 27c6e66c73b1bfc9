package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/providers"
	"github.com/systmms/authops/pkg/credential"
	"github.com/systmms/authops/tests/fakes"
)

func ciSettings() config.CISecretSettings {
	return config.CISecretSettings{
		Repository: "contoso/webapp-e2e",
		SecretName: "APP_LOGIN_PASSWORD",
	}
}

func TestCISecretProviderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings config.CISecretSettings
		field    string
	}{
		{"missing repository", config.CISecretSettings{SecretName: "S"}, "repository"},
		{"malformed repository", config.CISecretSettings{Repository: "just-a-name", SecretName: "S"}, "repository"},
		{"empty owner", config.CISecretSettings{Repository: "/repo", SecretName: "S"}, "repository"},
		{"missing secret_name", config.CISecretSettings{Repository: "contoso/webapp-e2e"}, "secret_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := providers.NewCISecretProvider(tt.settings, testLogger())
			var cfgErr autherrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestCISecretFetchFromRunnerEnv(t *testing.T) {
	t.Setenv("APP_LOGIN_PASSWORD", "hunter2")

	fake := fakes.NewFakeActionsClient()
	fake.AddSecret("contoso", "webapp-e2e", "APP_LOGIN_PASSWORD")

	p, err := providers.NewCISecretProvider(ciSettings(), testLogger(),
		providers.WithActionsClient(fake))
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credential.TypePassword, result.Type)
	assert.Equal(t, []byte("hunter2"), result.Value)
	assert.Equal(t, 1, fake.GetRepoSecretCalls, "existence is verified before the env read")
}

func TestCISecretFetchAbsentOnRepository(t *testing.T) {
	t.Setenv("APP_LOGIN_PASSWORD", "hunter2")

	p, err := providers.NewCISecretProvider(ciSettings(), testLogger(),
		providers.WithActionsClient(fakes.NewFakeActionsClient()))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "does not exist")
}

func TestCISecretFetchWithoutTokenSkipsVerification(t *testing.T) {
	t.Setenv("APP_LOGIN_PASSWORD", "hunter2")

	// No token and no injected client: the provider goes straight to the
	// runner environment.
	p, err := providers.NewCISecretProvider(ciSettings(), testLogger())
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), result.Value)
}

func TestCISecretFetchUnmappedVariable(t *testing.T) {
	t.Parallel()

	p, err := providers.NewCISecretProvider(config.CISecretSettings{
		Repository: "contoso/webapp-e2e",
		SecretName: "AUTHOPS_TEST_UNMAPPED_SECRET",
	}, testLogger())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Suggestion, "workflow")
}
