package internal

import (
	"strings"
	"testing"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if a == b {
		t.Fatal("two tokens collided")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("token %q is not base64url", a)
	}

	if _, err := NewToken(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	h1 := HashToken("secret")
	h2 := HashToken("secret")
	if h1 != h2 {
		t.Fatal("hash not deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 == HashToken("secret2") {
		t.Fatal("distinct tokens hashed equal")
	}
}

func TestNewOTP(t *testing.T) {
	code, err := NewOTP(6)
	if err != nil {
		t.Fatalf("NewOTP: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("length = %d, want 6", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit %q in code %q", r, code)
		}
	}

	for _, bad := range []int{3, 11, 0, -1} {
		if _, err := NewOTP(bad); err == nil {
			t.Fatalf("expected error for %d digits", bad)
		}
	}
}

func TestNewRecoveryCode(t *testing.T) {
	code, err := NewRecoveryCode()
	if err != nil {
		t.Fatalf("NewRecoveryCode: %v", err)
	}
	if code == "" {
		t.Fatal("empty recovery code")
	}
	for _, r := range code {
		ok := r == '-' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Fatalf("unexpected rune %q in %q", r, code)
		}
	}

	other, err := NewRecoveryCode()
	if err != nil {
		t.Fatalf("NewRecoveryCode: %v", err)
	}
	if code == other {
		t.Fatal("recovery codes collided")
	}
}
