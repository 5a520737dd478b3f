package contentstore

import (
	"context"
	"errors"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrNotFound = errors.New("content not found")

// Store is a content-addressed blob store: code goes in, its hash is the key.
// The ledger only ever compares hashes; it never parses stored content.

type Store interface {
	Store(ctx context.Context, code []byte) (domain.CodeHash, error)
	Fetch(ctx context.Context, hash domain.CodeHash) ([]byte, error)
	Exists(ctx context.Context, hash domain.CodeHash) (bool, error)
}
