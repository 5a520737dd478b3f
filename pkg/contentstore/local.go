package contentstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/domain"
)

// LocalStore keeps blobs on disk, one file per hash.
type LocalStore struct {
	BasePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{BasePath: basePath}, nil
}

func (s *LocalStore) path(hash domain.CodeHash) string {
	return filepath.Join(s.BasePath, string(hash))
}

func (s *LocalStore) Store(ctx context.Context, code []byte) (domain.CodeHash, error) {
	h := codehash.HashOf(code)
	path := s.path(h)

	// Write to a temp file first, then atomic rename
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name()) // Clean up if we fail before rename

	if _, err := tmpFile.Write(code); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return "", err
	}
	return h, nil
}

func (s *LocalStore) Fetch(ctx context.Context, hash domain.CodeHash) ([]byte, error) {
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, hash domain.CodeHash) (bool, error) {
	_, err := os.Stat(s.path(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
