package secure

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const masterKeySize = 32

// KeyringOptions selects where the master key lives.
type KeyringOptions struct {
	ServiceName  string
	FileDir      string
	FilePassword string
	// Backends restricts the keyring backends; empty allows the platform defaults plus file.
	Backends []string
}

// OpenKeyring opens the OS keyring, falling back to an encrypted file.
func OpenKeyring(opts KeyringOptions) (keyring.Keyring, error) {
	allowed := []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
		keyring.PassBackend,
		keyring.FileBackend,
	}
	if len(opts.Backends) > 0 {
		allowed = allowed[:0]
		for _, b := range opts.Backends {
			allowed = append(allowed, keyring.BackendType(b))
		}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              opts.ServiceName,
		AllowedBackends:          allowed,
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(opts.FilePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// LoadOrCreateMasterKey returns the key stored under name, generating it on first use.
func LoadOrCreateMasterKey(ring keyring.Keyring, name string) ([]byte, error) {
	item, err := ring.Get(name)
	if err == nil {
		if len(item.Data) < masterKeySize {
			return nil, fmt.Errorf("master key %q is %d bytes, want %d", name, len(item.Data), masterKeySize)
		}
		return item.Data, nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting master key %q: %w", name, err)
	}

	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	err = ring.Set(keyring.Item{
		Key:         name,
		Data:        key,
		Label:       "agri-notify storage key",
		Description: "encrypts the notification history at rest",
	})
	if err != nil {
		return nil, fmt.Errorf("storing master key %q: %w", name, err)
	}
	return key, nil
}
