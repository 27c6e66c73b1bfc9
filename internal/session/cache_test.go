package session_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/authops/internal/session"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity string
		want     string
	}{
		{"plain email survives", "user@contoso.com", "user@contoso.com"},
		{"slashes become underscores", "user/../../etc", "user_.._.._etc"},
		{"spaces become underscores", "first last@x.com", "first_last@x.com"},
		{"colons and backslashes", `DOMAIN\user:name`, "DOMAIN_user_name"},
		{"hyphens and dots survive", "first.last-x@contoso.co.uk", "first.last-x@contoso.co.uk"},
		{"unicode becomes underscores", "usér@contoso.com", "us_r@contoso.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, session.Sanitize(tt.identity))
		})
	}
}

func TestSanitizeOnlySafeCharacters(t *testing.T) {
	t.Parallel()

	safe := regexp.MustCompile(`^[A-Za-z0-9@.\-_]*$`)
	inputs := []string{
		"user@contoso.com",
		"../../../etc/passwd",
		"a b\tc\nd",
		`"; rm -rf / #`,
		"ключ@пример.рф",
	}
	for _, input := range inputs {
		assert.True(t, safe.MatchString(session.Sanitize(input)), "input %q", input)
	}
}

func TestPathForIsDeterministic(t *testing.T) {
	t.Parallel()

	cache := session.New("/tmp/sessions")
	first := cache.PathFor("user@contoso.com")
	second := cache.PathFor("user@contoso.com")

	assert.Equal(t, first, second)
	assert.Equal(t, filepath.Join("/tmp/sessions", "state-user@contoso.com.json"), first)
}

func TestIsValidMissingFile(t *testing.T) {
	t.Parallel()

	cache := session.New(t.TempDir())
	valid, err := cache.IsValid(cache.PathFor("nobody@contoso.com"), 24*time.Hour)

	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsValidFreshFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache := session.New(dir)
	path := cache.PathFor("user@contoso.com")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	// Aged one hour against a 24h TTL.
	aged := time.Now().Add(-1 * time.Hour)
	require.NoError(t, os.Chtimes(path, aged, aged))

	valid, err := cache.IsValid(path, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestIsValidExpiredFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache := session.New(dir)
	path := cache.PathFor("user@contoso.com")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	// Aged 25 hours against a 24h TTL: invalid regardless of content.
	aged := time.Now().Add(-25 * time.Hour)
	require.NoError(t, os.Chtimes(path, aged, aged))

	valid, err := cache.IsValid(path, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestEnsureDirCreatesBase(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "nested", "sessions")
	cache := session.New(base)
	require.NoError(t, cache.EnsureDir())

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
