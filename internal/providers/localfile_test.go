package providers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/authops/internal/config"
	autherrors "github.com/systmms/authops/internal/errors"
	"github.com/systmms/authops/internal/providers"
	"github.com/systmms/authops/pkg/credential"
)

func TestLocalFileProviderValidation(t *testing.T) {
	t.Parallel()

	_, err := providers.NewLocalFileProvider(config.LocalFileSettings{}, testLogger())
	var cfgErr autherrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}

func TestLocalFileFetchPassword(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "password.txt")
	require.NoError(t, os.WriteFile(path, []byte("hunter2\n"), 0o600))

	p, err := providers.NewLocalFileProvider(config.LocalFileSettings{Path: path}, testLogger())
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credential.TypePassword, result.Type)
	assert.Equal(t, []byte("hunter2"), result.Value)
	assert.Equal(t, "local-file:"+path, result.Source)
}

func TestLocalFileFetchCertificate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "client.pfx")
	require.NoError(t, os.WriteFile(path, derBlob(600), 0o600))

	p, err := providers.NewLocalFileProvider(config.LocalFileSettings{
		Path:     path,
		Password: "import-pass",
	}, testLogger())
	require.NoError(t, err)

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credential.TypeCertificate, result.Type)
	assert.Equal(t, "import-pass", result.Password, "bundle password travels with the result")
}

func TestLocalFileFetchMissing(t *testing.T) {
	t.Parallel()

	p, err := providers.NewLocalFileProvider(config.LocalFileSettings{
		Path: filepath.Join(t.TempDir(), "absent.pfx"),
	}, testLogger())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "does not exist")
}

func TestLocalFileFetchEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	p, err := providers.NewLocalFileProvider(config.LocalFileSettings{Path: path}, testLogger())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	var retrievalErr autherrors.CredentialRetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Contains(t, retrievalErr.Message, "empty")
}
