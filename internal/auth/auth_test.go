package auth

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the password")
	}
	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("check failed for correct password: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("check must fail for wrong password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	claims := Claims{Email: "user@example.com", FirstName: "Ada", LastName: "Lovelace"}
	token, err := GenerateToken("secret", claims, time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	parsed, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.Email != "user@example.com" || parsed.FirstName != "Ada" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("secret", Claims{Email: "user@example.com"}, time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("secret", Claims{Email: "user@example.com"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
