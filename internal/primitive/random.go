package primitive

import (
	"crypto/rand"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	return b, nil
}
