package hasher

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and checks salted one-way password digests.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost factor. Costs outside
// the range bcrypt accepts fall back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest of the plaintext password.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash failed: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. The comparison is
// constant time with respect to the digest contents.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
