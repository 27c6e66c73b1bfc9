// Package secure keeps fetched credentials in protected memory for the
// window between backend fetch and browser entry.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// CredentialBuffer holds a credential value in a memguard enclave. The
// enclave encrypts the bytes at rest in process memory and mlocks them
// against swapping; the plaintext only exists while Open's locked buffer is
// alive.
type CredentialBuffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// Seal copies the credential bytes into a protected enclave. The caller
// should zero its own copy afterwards.
func Seal(value []byte) *CredentialBuffer {
	return &CredentialBuffer{enclave: memguard.NewEnclave(value)}
}

// Open decrypts the credential into a locked buffer. The caller must call
// Destroy on the returned buffer as soon as the value has been used.
func (b *CredentialBuffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed || b.enclave == nil {
		return nil, errors.New("credential buffer already destroyed")
	}
	return b.enclave.Open()
}

// Destroy marks the buffer unusable. Idempotent; the encrypted enclave data
// is left for garbage collection (it is ciphertext without its key).
func (b *CredentialBuffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
