package storage

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	encoded, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(encoded, "pbkdf2$sha256$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if !verifyPassword(encoded, "hunter2hunter2") {
		t.Fatalf("expected password to verify")
	}
	if verifyPassword(encoded, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	first, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	second, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "plaintext", "pbkdf2$sha256$abc$salt$key", "pbkdf2$md5$1000$c2FsdA$a2V5"} {
		if verifyPassword(encoded, "anything") {
			t.Fatalf("expected malformed hash %q to fail verification", encoded)
		}
	}
}
