// Package session decides where a persisted browser session lives and
// whether it is still fresh enough to reuse.
//
// The cache is deliberately minimal: a deterministic path per identity plus
// an age check against the file's modification time. A corrupt session file
// is indistinguishable from a missing one except for the age check; the
// browser driver owns the file's content.
package session

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	autherrors "github.com/systmms/authops/internal/errors"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9@.-]`)

// Sanitize maps an identity to a filesystem-safe token. Characters outside
// [A-Za-z0-9@.-] become '_', so a given identity always yields the same
// token and no separator or traversal characters survive.
func Sanitize(identity string) string {
	return unsafeChars.ReplaceAllString(identity, "_")
}

// Cache derives session snapshot paths under a base directory and answers
// validity queries. It never writes the snapshot itself.
type Cache struct {
	baseDir string
}

// New creates a cache rooted at baseDir.
func New(baseDir string) *Cache {
	return &Cache{baseDir: baseDir}
}

// PathFor returns the deterministic snapshot path for an identity.
func (c *Cache) PathFor(identity string) string {
	return filepath.Join(c.baseDir, "state-"+Sanitize(identity)+".json")
}

// IsValid reports whether the snapshot at path exists and is younger than
// ttl. A missing file is simply invalid; any other stat failure is a
// StorageAccessError because it may hide a usable session.
func (c *Cache) IsValid(path string, ttl time.Duration) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, autherrors.StorageAccessError{Path: path, Op: "stat", Err: err}
	}

	return time.Since(info.ModTime()) < ttl, nil
}

// EnsureDir creates the base directory if needed so the browser driver can
// export into it.
func (c *Cache) EnsureDir() error {
	if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
		return autherrors.StorageAccessError{Path: c.baseDir, Op: "mkdir", Err: err}
	}
	return nil
}
