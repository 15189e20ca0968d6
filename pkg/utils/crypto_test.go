package utils

import (
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-operator")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !CheckPassword("s3cret-operator", hash) {
		t.Error("CheckPassword() rejected the correct password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword() accepted a wrong password")
	}
}

func TestGenerateActivationCode(t *testing.T) {
	code := GenerateActivationCode(3, 5)

	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 groups, got %q", code)
	}
	for _, p := range parts {
		if len(p) != 5 {
			t.Errorf("group %q has length %d, want 5", p, len(p))
		}
	}

	// ambiguous characters are excluded from the charset
	for _, forbidden := range []string{"0", "O", "1", "I"} {
		if strings.Contains(code, forbidden) {
			t.Errorf("code %q contains ambiguous character %q", code, forbidden)
		}
	}

	if GenerateActivationCode(3, 5) == code {
		t.Error("two generated codes are identical")
	}
}
