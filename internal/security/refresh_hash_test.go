package security

import "testing"

const testPepper = "pepper-1234567890"

func TestHashRefreshTokenConsistentAndPeppered(t *testing.T) {
	a := HashRefreshToken("token-1", testPepper)
	if a != HashRefreshToken("token-1", testPepper) {
		t.Fatal("hash must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
	if a == HashRefreshToken("token-2", testPepper) {
		t.Fatal("different tokens must hash differently")
	}
	if a == HashRefreshToken("token-1", "other-pepper-123") {
		t.Fatal("pepper must change the digest")
	}
}

func TestRefreshTokenHashEqual(t *testing.T) {
	stored := HashRefreshToken("good", testPepper)
	if !RefreshTokenHashEqual("good", stored, testPepper) {
		t.Fatal("expected match")
	}
	if RefreshTokenHashEqual("bad", stored, testPepper) {
		t.Fatal("expected mismatch")
	}
	if RefreshTokenHashEqual("good", "a"+stored, testPepper) {
		t.Fatal("expected mismatch on length difference")
	}
	if RefreshTokenHashEqual("", "", testPepper) {
		t.Fatal("empty inputs must not match")
	}
}

func TestNewResetCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewResetCode()
		if err != nil {
			t.Fatalf("NewResetCode: %v", err)
		}
		if len(code) != ResetCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}
