package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

// compile-time check that *LocalStore implements AssetStore
var _ AssetStore = (*LocalStore)(nil)

// LocalStore keeps assets on the local filesystem under a single uploads
// directory, which the server also serves statically under /uploads/.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the uploads directory if needed and returns a
// store rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the reader's contents to a new file and returns its path.
//
// The stored name is an xid plus the extension of the client-supplied
// name. The client name itself is never used as a path component — it is
// attacker-controlled and could contain separators or "..".
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ext := filepath.Ext(name)
	// Keep only plausible image extensions; anything odd becomes opaque.
	if len(ext) > 5 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}

	path := filepath.Join(s.dir, xid.New().String()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storage: closing %s: %w", path, err)
	}

	return path, nil
}

// DeleteByPath removes a stored asset. Paths outside the uploads
// directory are refused — the recorded path is the only trusted input,
// but a misfilled database row must not be able to delete arbitrary files.
func (s *LocalStore) DeleteByPath(ctx context.Context, path string) error {
	cleaned := filepath.Clean(path)
	if !strings.HasPrefix(cleaned, filepath.Clean(s.dir)+string(filepath.Separator)) {
		return fmt.Errorf("storage: refusing to delete %s: outside upload dir", path)
	}
	if err := os.Remove(cleaned); err != nil {
		return fmt.Errorf("storage: deleting %s: %w", path, err)
	}
	return nil
}
