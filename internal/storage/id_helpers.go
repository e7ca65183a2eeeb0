package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func generateID() string {
	var buffer [16]byte
	if _, err := rand.Read(buffer[:]); err == nil {
		return hex.EncodeToString(buffer[:])
	}
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// newPasskey returns the 32-hex-character tracker credential assigned to every
// account.
func newPasskey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newRSSToken returns an opaque token for personalised feed URLs.
func newRSSToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
