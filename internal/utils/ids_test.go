package utils

import "testing"

func TestGenerateUUID_ProducesDistinctValues(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if a == b {
		t.Fatal("two calls produced the same UUID")
	}
	if len(a) != 36 {
		t.Fatalf("len(UUID) = %d, want 36", len(a))
	}
}

func TestGenerateSecureToken_Produces32HexCharsWithAtLeast128Bits(t *testing.T) {
	tok := GenerateSecureToken()
	if len(tok) != 32 {
		t.Fatalf("len(token) = %d, want 32 (16 bytes hex-encoded)", len(tok))
	}
	for _, r := range tok {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("token %q contains non-hex character %q", tok, r)
		}
	}
}

func TestGenerateSecureToken_ProducesDistinctValues(t *testing.T) {
	if GenerateSecureToken() == GenerateSecureToken() {
		t.Fatal("two calls produced the same token")
	}
}

func TestRandomInt_StaysWithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := RandomInt(10)
		if n < 0 || n >= 10 {
			t.Fatalf("RandomInt(10) = %d, out of [0, 10)", n)
		}
	}
}

func TestRandomInt_NonPositiveMaxReturnsZero(t *testing.T) {
	if got := RandomInt(0); got != 0 {
		t.Fatalf("RandomInt(0) = %d, want 0", got)
	}
	if got := RandomInt(-5); got != 0 {
		t.Fatalf("RandomInt(-5) = %d, want 0", got)
	}
}
