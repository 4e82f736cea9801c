package repository

import (
	"context"
	"io"

	"secure_chat_relay/pkg/database"
)

type minioUploadStore struct {
	client *database.MinIOClient
}

// NewMinIOUploadStore create the object store backed upload store
func NewMinIOUploadStore(client *database.MinIOClient) UploadStore {
	return &minioUploadStore{client: client}
}

// Save put the blob as one object
func (s *minioUploadStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	return s.client.PutStream(ctx, name, r, size, contentType)
}

// Open stream the object back, caller closes
func (s *minioUploadStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.client.GetStream(ctx, name)
}
