package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the credential in the operating system's native secret
// storage (macOS Keychain, Windows Credential Manager, Linux Secret
// Service).
type KeyringStore struct {
	service string
	user    string
}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore under the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("tokenstore: keyring service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("tokenstore: keyring user cannot be empty")
	}

	return &KeyringStore{service: service, user: user}, nil
}

// Load returns the credential from the system keyring.
func (k *KeyringStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	credential, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w (keyring %s/%s)", ErrNotFound, k.service, k.user)
		}
		return "", err
	}
	if credential == "" {
		return "", fmt.Errorf("%w (keyring %s/%s holds empty value)", ErrNotFound, k.service, k.user)
	}
	return credential, nil
}

// Save persists the credential to the system keyring. Saving an empty
// credential deletes the entry.
func (k *KeyringStore) Save(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if credential == "" {
		err := keyring.Delete(k.service, k.user)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return keyring.Set(k.service, k.user, credential)
}
