package store

import (
	"strings"
	"testing"
)

func TestRandomSecret_LengthAndAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		secret, err := randomSecret()
		if err != nil {
			t.Fatalf("randomSecret returned error: %v", err)
		}
		if len(secret) != secretLength {
			t.Fatalf("expected %d characters, got %d (%q)", secretLength, len(secret), secret)
		}
		for _, c := range secret {
			if !strings.ContainsRune(secretAlphabet, c) {
				t.Fatalf("secret %q contains %q outside the alphabet", secret, c)
			}
		}
		seen[secret] = true
	}
	if len(seen) < 50 {
		t.Fatalf("expected 50 distinct secrets, got %d", len(seen))
	}
}
