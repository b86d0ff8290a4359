package consultation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newInvitationToken returns a 256-bit random token, hex encoded.
func newInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("consultation: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
