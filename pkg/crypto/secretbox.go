// Package crypto seals and opens channel credentials stored at rest.
// Notification channel secrets (SMTP passwords, webhook signing keys,
// chat-bot tokens) are sealed before persistence and only opened when a
// delivery attempt needs to reconstruct the channel configuration.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedSecret 密文无法解封（密钥轮换或数据损坏）
var ErrSealedSecret = errors.New("crypto: cannot open sealed secret")

// SecretBox seals/opens secrets with XChaCha20-Poly1305.
type SecretBox struct {
	key []byte
}

// NewSecretBox creates a SecretBox from a 32-byte key.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &SecretBox{key: k}, nil
}

// Seal encrypts plaintext and returns a base64 token safe for storage.
func (b *SecretBox) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal. Returns ErrSealedSecret when the
// token cannot be opened with the current key.
func (b *SecretBox) Open(token string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrSealedSecret
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedSecret
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedSecret
	}

	return plaintext, nil
}
