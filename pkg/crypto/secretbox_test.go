package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := NewSecretBox(testKey())
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}

	plaintext := []byte("smtp-password-123")
	token, err := box.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if token == string(plaintext) {
		t.Fatal("sealed token must not equal plaintext")
	}

	opened, err := box.Open(token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("opened %q, want %q", opened, plaintext)
	}
}

func TestSecretBox_SealIsRandomized(t *testing.T) {
	box, err := NewSecretBox(testKey())
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}

	a, err := box.Seal([]byte("same secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := box.Seal([]byte("same secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a == b {
		t.Error("two seals of the same plaintext must differ (fresh nonce)")
	}
}

func TestSecretBox_TamperedTokenFails(t *testing.T) {
	box, err := NewSecretBox(testKey())
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}

	token, err := box.Seal([]byte("webhook signing key"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := box.Open(tampered); !errors.Is(err, ErrSealedSecret) {
		t.Errorf("tampered token should fail with ErrSealedSecret, got %v", err)
	}
}

func TestSecretBox_WrongKeyFails(t *testing.T) {
	box, err := NewSecretBox(testKey())
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	other, err := NewSecretBox(bytes.Repeat([]byte{0x17}, 32))
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}

	token, err := box.Seal([]byte("chatbot token"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := other.Open(token); !errors.Is(err, ErrSealedSecret) {
		t.Errorf("rotated key should fail with ErrSealedSecret, got %v", err)
	}
}

func TestSecretBox_InvalidInputs(t *testing.T) {
	if _, err := NewSecretBox([]byte("short")); err == nil {
		t.Error("short key must be rejected")
	}

	box, err := NewSecretBox(testKey())
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	if _, err := box.Open("not-base64!!"); !errors.Is(err, ErrSealedSecret) {
		t.Errorf("garbage token should fail with ErrSealedSecret, got %v", err)
	}
	if _, err := box.Open(base64.StdEncoding.EncodeToString([]byte("tiny"))); !errors.Is(err, ErrSealedSecret) {
		t.Errorf("truncated token should fail with ErrSealedSecret, got %v", err)
	}
}
