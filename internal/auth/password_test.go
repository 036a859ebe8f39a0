package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if hash == "pw1" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	if err := VerifyPassword("pw1", hash); err != nil {
		t.Errorf("VerifyPassword() with correct password: %v", err)
	}
	if err := VerifyPassword("pw2", hash); err == nil {
		t.Error("VerifyPassword() with wrong password should fail")
	}
}

func TestHashPassword_SaltIsPerCall(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password must differ (random salt)")
	}
}

func TestBurnVerification_NeverPanics(t *testing.T) {
	BurnVerification("")
	BurnVerification("anything")
}
