// Package mock holds testify mocks of the archive and result repository.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockArchive is a mock implementation of storage.Archive.
type MockArchive struct {
	mock.Mock
}

// Put mocks the Put method.
func (m *MockArchive) Put(ctx context.Context, key string, r io.Reader) error {
	args := m.Called(ctx, key, r)
	return args.Error(0)
}

// PutFile mocks the PutFile method.
func (m *MockArchive) PutFile(ctx context.Context, key, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Open mocks the Open method.
func (m *MockArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Exists mocks the Exists method.
func (m *MockArchive) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Remove mocks the Remove method.
func (m *MockArchive) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// URL returns "mock://" + key without recording a call.
func (m *MockArchive) URL(key string) string {
	return "mock://" + key
}

// ExpectPutFile sets up an expectation for PutFile of any local path.
func (m *MockArchive) ExpectPutFile(key string, err error) *mock.Call {
	return m.On("PutFile", mock.Anything, key, mock.Anything).Return(err)
}
