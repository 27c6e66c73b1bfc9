package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/pkg/credential"
)

func validConfig() *config.AuthConfig {
	cfg := &config.AuthConfig{
		Identity:       "user@contoso.com",
		CredentialType: credential.TypePassword,
		ProviderKind:   credential.KindEnvironment,
		TargetURL:      "https://app.contoso.com",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := &config.AuthConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, ".auth", cfg.OutputDir)
	assert.Equal(t, 24, cfg.SessionTTLHours)
	assert.Equal(t, "login.microsoftonline.com", cfg.LoginEndpoint)
	assert.Equal(t, 30*time.Second, cfg.ClientTokenTimeout)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &config.AuthConfig{
		OutputDir:       "/var/sessions",
		SessionTTLHours: 8,
		LoginEndpoint:   "login.contoso.gov",
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "/var/sessions", cfg.OutputDir)
	assert.Equal(t, 8, cfg.SessionTTLHours)
	assert.Equal(t, "login.contoso.gov", cfg.LoginEndpoint)
}

func TestSessionTTL(t *testing.T) {
	t.Parallel()

	cfg := &config.AuthConfig{SessionTTLHours: 24}
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.AuthConfig)
		field  string
	}{
		{"missing identity", func(c *config.AuthConfig) { c.Identity = "" }, "Identity"},
		{"non-email identity", func(c *config.AuthConfig) { c.Identity = "not-an-email" }, "Identity"},
		{"bad credential type", func(c *config.AuthConfig) { c.CredentialType = "token" }, "CredentialType"},
		{"missing target URL", func(c *config.AuthConfig) { c.TargetURL = "" }, "TargetURL"},
		{"malformed target URL", func(c *config.AuthConfig) { c.TargetURL = "not a url" }, "TargetURL"},
		{"negative TTL", func(c *config.AuthConfig) { c.SessionTTLHours = -1 }, "SessionTTLHours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr autherrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidateRejectsUnknownProviderKind(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ProviderKind = "hashivault"

	err := cfg.Validate()
	var unsupported autherrors.UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "hashivault", unsupported.Kind)
}

func TestLoadFileMissingDefaultIsFine(t *testing.T) {
	t.Parallel()

	file, err := config.LoadFile(filepath.Join(t.TempDir(), "authops.yaml"), false)
	require.NoError(t, err)
	assert.Nil(t, file.Providers.KeyVault)
}

func TestLoadFileMissingExplicitFails(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "authops.yaml"), true)
	var cfgErr autherrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "not found")
}

func TestLoadFileParsesProviders(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authops.yaml")
	content := `providers:
  key-vault:
    vault_url: https://kv.vault.azure.net
    secret_name: app-login
  environment:
    variable: APP_PASSWORD
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	file, err := config.LoadFile(path, true)
	require.NoError(t, err)
	require.NotNil(t, file.Providers.KeyVault)
	assert.Equal(t, "https://kv.vault.azure.net", file.Providers.KeyVault.VaultURL)
	require.NotNil(t, file.Providers.Environment)
	assert.Equal(t, "APP_PASSWORD", file.Providers.Environment.Variable)
	assert.Nil(t, file.Providers.AWSSecrets)
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [not: a map"), 0o600))

	_, err := config.LoadFile(path, true)
	var cfgErr autherrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "invalid YAML")
}

func TestMergeFlagsWin(t *testing.T) {
	t.Parallel()

	flags := config.ProviderSettings{
		KeyVault: &config.KeyVaultSettings{VaultURL: "https://flag.vault.azure.net", SecretName: "flag"},
	}
	fromFile := config.ProviderSettings{
		KeyVault:    &config.KeyVaultSettings{VaultURL: "https://file.vault.azure.net", SecretName: "file"},
		Environment: &config.EnvironmentSettings{Variable: "FROM_FILE"},
	}

	flags.Merge(fromFile)

	assert.Equal(t, "https://flag.vault.azure.net", flags.KeyVault.VaultURL, "flag variant wins")
	require.NotNil(t, flags.Environment, "file variant fills the gap")
	assert.Equal(t, "FROM_FILE", flags.Environment.Variable)
}
