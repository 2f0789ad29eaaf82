package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore reads the credential from an environment variable. It is
// read-only: rotation has to happen in whatever manages the environment.
type EnvStore struct {
	key string
}

var _ Store = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given variable. The variable must
// exist in the current environment.
func NewEnvStore(key string) (*EnvStore, error) {
	if key == "" {
		return nil, fmt.Errorf("tokenstore: environment variable name cannot be empty")
	}
	if _, ok := os.LookupEnv(key); !ok {
		return nil, fmt.Errorf("tokenstore: environment variable %s not set", key)
	}

	return &EnvStore{key: key}, nil
}

// Load returns the credential from the environment variable.
func (e *EnvStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	credential := os.Getenv(e.key)
	if credential == "" {
		return "", fmt.Errorf("%w (%s is empty)", ErrNotFound, e.key)
	}
	return credential, nil
}

// Save always fails: environment variables are read-only from inside the
// process.
func (e *EnvStore) Save(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("tokenstore: environment variable storage is read-only")
}
