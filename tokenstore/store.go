package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound reports that the backend holds no credential. Callers treat it
// as "not yet authenticated" rather than a storage failure.
var ErrNotFound = errors.New("tokenstore: no stored credential")

// Store reads and writes one serialized credential in persistent storage.
type Store interface {
	// Load returns the stored credential. Returns ErrNotFound (possibly
	// wrapped) if nothing is stored.
	Load(ctx context.Context) (string, error)

	// Save persists the credential, replacing any previous value. Saving an
	// empty string clears the stored credential. Read-only backends return
	// an error.
	Save(ctx context.Context, credential string) error
}
