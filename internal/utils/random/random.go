package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// String returns a URL-safe random string carrying n bytes of entropy.
// Used for OAuth state values.
func String(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
