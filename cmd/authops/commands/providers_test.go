package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/authops/internal/config"
	"github.com/systmms/authops/pkg/credential"
)

func TestProvidersCommand_ExecutesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewProvidersCommand(testGlobals(t))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
}

func TestProvidersCommand_Verbose(t *testing.T) {
	t.Parallel()

	cmd := NewProvidersCommand(testGlobals(t))
	cmd.SetArgs([]string{"--verbose"})
	require.NoError(t, cmd.Execute())
}

func TestKindDescriptionsCoverAllKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range credential.Kinds() {
		assert.NotEqual(t, "Unknown provider kind", kindDescription(kind), "kind %s", kind)
		assert.NotEmpty(t, kindDetails(kind), "kind %s", kind)
	}
}

func TestConfiguredKinds(t *testing.T) {
	t.Parallel()

	kinds := configuredKinds(config.ProviderSettings{
		Environment: &config.EnvironmentSettings{Variable: "X"},
		GCPSecrets:  &config.GCPSecretsSettings{ProjectID: "p", SecretName: "s"},
	})

	assert.Equal(t, []credential.Kind{credential.KindEnvironment, credential.KindGCPSecrets}, kinds)
}

func TestDoctorCommand_NoProvidersConfigured(t *testing.T) {
	t.Parallel()

	cmd := NewDoctorCommand(testGlobals(t))
	cmd.SetArgs([]string{"--output-dir", t.TempDir()})
	require.NoError(t, cmd.Execute())
}

func TestDoctorCommand_ReportsInvalidProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "authops.yaml")
	content := `providers:
  key-vault:
    secret_name: app-login
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	globals := testGlobals(t)
	globals.ConfigFile = configPath
	globals.ConfigExplicit = true

	cmd := NewDoctorCommand(globals)
	cmd.SetArgs([]string{"--output-dir", dir})
	err := cmd.Execute()
	require.Error(t, err, "a key-vault block without vault_url fails validation")
}

func TestDoctorCommand_HealthyProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "authops.yaml")
	content := `providers:
  environment:
    variable: APP_PASSWORD
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	globals := testGlobals(t)
	globals.ConfigFile = configPath
	globals.ConfigExplicit = true

	cmd := NewDoctorCommand(globals)
	cmd.SetArgs([]string{"--output-dir", dir})
	require.NoError(t, cmd.Execute())
}
