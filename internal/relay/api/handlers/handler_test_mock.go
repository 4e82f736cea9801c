package handlers

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockUploadStore Mock UploadStore
type MockUploadStore struct {
	mock.Mock
}

// Save mock save blob
func (m *MockUploadStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, name, r, size, contentType)
	return args.Error(0)
}

// Open mock open blob by stored name
func (m *MockUploadStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	args := m.Called(ctx, name)
	if args.Get(0) != nil {
		return args.Get(0).(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}
