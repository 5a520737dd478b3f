package codehash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/weftworks/weft/pkg/domain"
)

var ErrCodeUnavailable = errors.New("deployed code not found")
var ErrCodeMismatch = errors.New("deployed code does not match registered hash")

// HashOf returns the content hash of a code blob.
func HashOf(code []byte) domain.CodeHash {
	sum := sha256.Sum256(code)
	return domain.CodeHash(hex.EncodeToString(sum[:]))
}

// Source yields the code currently deployed under a creator's name.
// It is always read live; the verifier never caches.
type Source interface {
	DeployedCode(ctx context.Context, creator domain.AccountID, name string) ([]byte, error)
}

// Verifier recomputes content hashes against the current deployed code.
// Registration proves the code exists; every later clone re-proves the
// creator has not swapped it since.

type Verifier struct {
	src Source
}

func NewVerifier(src Source) *Verifier {
	return &Verifier{src: src}
}

// Current hashes the code deployed right now under creator/name.
func (v *Verifier) Current(ctx context.Context, creator domain.AccountID, name string) (domain.CodeHash, error) {
	code, err := v.src.DeployedCode(ctx, creator, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %v", ErrCodeUnavailable, creator, name, err)
	}
	return HashOf(code), nil
}

// Verify recomputes the hash of the template's currently deployed code and
// compares it to the hash recorded at registration.
func (v *Verifier) Verify(ctx context.Context, tpl *domain.Template) (domain.CodeHash, error) {
	h, err := v.Current(ctx, tpl.Creator, tpl.Name)
	if err != nil {
		return "", err
	}
	if h != tpl.CodeHash {
		return "", fmt.Errorf("%w: template %d", ErrCodeMismatch, tpl.ID)
	}
	return h, nil
}
