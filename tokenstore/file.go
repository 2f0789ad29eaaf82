package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the credential in a single file with owner-only
// permissions. Saves go through a temp file plus rename so a crash never
// leaves a truncated credential behind.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore at path, creating parent directories with
// 0700 permissions as needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenstore: file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("tokenstore: creating credential directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// Load returns the stored credential. A missing or empty file reports
// ErrNotFound; a file readable by other users is refused outright.
func (f *FileStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w (%s)", ErrNotFound, f.path)
		}
		return "", err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return "", fmt.Errorf("tokenstore: insecure permissions on %s: %04o", f.path, perm)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}

	credential := strings.TrimSpace(string(data))
	if credential == "" {
		return "", fmt.Errorf("%w (%s is empty)", ErrNotFound, f.path)
	}
	return credential, nil
}

// Save writes the credential atomically and sets 0600 permissions. An empty
// credential clears the file content, leaving the store in the not-found
// state.
func (f *FileStore) Save(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	defer func() { _ = tmp.Close() }()

	if _, err := tmp.WriteString(strings.TrimSpace(credential) + "\n"); err != nil {
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}
