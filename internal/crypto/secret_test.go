package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("upstox-api-secret", "pass123")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	got, err := DecryptSecret(blob, "pass123")
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if got != "upstox-api-secret" {
		t.Errorf("secret = %q", got)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("s3cret", "right")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	if _, err := DecryptSecret(blob, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	blob, err := EncryptSecret("s3cret", "pass")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	var stored encryptedSecretJSON
	if err := json.Unmarshal(blob, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	stored.Ciphertext = strings.Repeat("A", len(stored.Ciphertext))
	tampered, _ := json.Marshal(stored)

	if _, err := DecryptSecret(tampered, "pass"); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestEncryptValidation(t *testing.T) {
	if _, err := EncryptSecret("", "pass"); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := EncryptSecret("secret", ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestLoadSecret(t *testing.T) {
	t.Run("raw wins", func(t *testing.T) {
		got, err := LoadSecret(SecretConfig{RawSecret: "raw"})
		if err != nil || got != "raw" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("from encrypted file", func(t *testing.T) {
		blob, err := EncryptSecret("filed", "pw")
		if err != nil {
			t.Fatalf("EncryptSecret: %v", err)
		}
		path := filepath.Join(t.TempDir(), "secret.json")
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}

		got, err := LoadSecret(SecretConfig{EncryptedSecretPath: path, SecretPassword: "pw"})
		if err != nil || got != "filed" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		if _, err := LoadSecret(SecretConfig{}); err == nil {
			t.Fatal("expected error")
		}
	})
}
