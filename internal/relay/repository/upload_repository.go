package repository

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// UploadStore definition stored upload blobs. Local disk by default, minio
// when an endpoint is configured.
type UploadStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type localUploadStore struct {
	dir string
}

// NewLocalUploadStore create the disk backed upload store
func NewLocalUploadStore(dir string) (UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &localUploadStore{dir: dir}, nil
}

// Save write the blob under dir, name is already server minted
func (s *localUploadStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}

// Open read a stored blob back
func (s *localUploadStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, name))
}
