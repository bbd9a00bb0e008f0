package security

import (
	"strings"
	"testing"
)

func TestHashSecretRoundTrip(t *testing.T) {
	if err := ConfigureBcrypt(4); err != nil {
		t.Fatalf("configure bcrypt: %v", err)
	}
	t.Cleanup(func() {
		if err := ConfigureBcrypt(DefaultBcryptCost); err != nil {
			t.Fatalf("restore bcrypt cost: %v", err)
		}
	})

	hash, err := HashSecret("hunter2-but-longer")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt encoded hash, got %q", hash)
	}

	if !VerifySecret("hunter2-but-longer", hash) {
		t.Fatalf("expected hash to verify")
	}
	if VerifySecret("wrong-secret", hash) {
		t.Fatalf("expected mismatch to fail verification")
	}
}

func TestHashSecretUniqueSalts(t *testing.T) {
	if err := ConfigureBcrypt(4); err != nil {
		t.Fatalf("configure bcrypt: %v", err)
	}
	t.Cleanup(func() { _ = ConfigureBcrypt(DefaultBcryptCost) })

	first, err := HashSecret("same-secret")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	second, err := HashSecret("same-secret")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salted hashes")
	}
}

func TestVerifySecretMalformedHash(t *testing.T) {
	if VerifySecret("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash must not verify")
	}
	if VerifySecret("", "") {
		t.Fatalf("empty inputs must not verify")
	}
}

func TestConfigureBcryptRejectsOutOfRange(t *testing.T) {
	if err := ConfigureBcrypt(2); err == nil {
		t.Fatalf("expected error for cost below minimum")
	}
	if err := ConfigureBcrypt(40); err == nil {
		t.Fatalf("expected error for cost above maximum")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected error for non-positive length")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(20)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("expected 40 hex chars for 20 bytes, got %d", len(token))
	}

	other, err := GenerateSecureToken(20)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == other {
		t.Fatalf("expected distinct tokens")
	}
}
