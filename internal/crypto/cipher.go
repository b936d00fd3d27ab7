// Package crypto provides reversible field-level encryption for PII,
// one-way hashing for bearer tokens, and deterministic blind indexes for
// PII columns that must remain searchable.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecryptionFailed is returned for malformed or foreign ciphertext.
// Callers must treat it as data-unavailable, not as a fatal condition.
var ErrDecryptionFailed = errors.New("decryption failed")

// Placeholder replaces a field whose ciphertext cannot be decrypted, so one
// corrupt column does not block display of the rest of a record.
const Placeholder = "[unavailable]"

// Cipher performs authenticated field-level encryption of PII.
// Encryption is non-deterministic (fresh nonce per call), so encrypted
// columns can never serve as uniqueness or search keys; BlindIndex exists
// for that purpose.
type Cipher struct {
	aead     cipher.AEAD
	indexKey []byte
	tokenKey []byte
}

// NewCipher derives the AEAD key, the blind-index key and the token-hash key
// from a single 256-bit master key via HKDF, so the three uses can never
// share key material.
func NewCipher(masterKey []byte, salt string) (*Cipher, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	encKey, err := deriveKey(masterKey, salt, "pii-encryption")
	if err != nil {
		return nil, err
	}
	indexKey, err := deriveKey(masterKey, salt, "blind-index")
	if err != nil {
		return nil, err
	}
	tokenKey, err := deriveKey(masterKey, salt, "token-hash")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{
		aead:     aead,
		indexKey: indexKey,
		tokenKey: tokenKey,
	}, nil
}

func deriveKey(masterKey []byte, salt, info string) ([]byte, error) {
	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, masterKey, []byte(salt), []byte(info))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}

// Encrypt encrypts plaintext with AES-256-GCM and a fresh nonce, returning
// base64. GCM authenticates the ciphertext, so tampering is detected on
// decrypt.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed input, a wrong key or a tampered
// ciphertext all yield ErrDecryptionFailed.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// DecryptOrPlaceholder decrypts a stored field, degrading to the placeholder
// string when the ciphertext is corrupt. Legacy bad data in one column must
// not block the rest of the record.
func (c *Cipher) DecryptOrPlaceholder(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}
	plaintext, err := c.Decrypt(ciphertext)
	if err != nil {
		return Placeholder
	}
	return plaintext
}

// BlindIndex computes a deterministic keyed hash of a PII value for equality
// lookup and uniqueness constraints. It is stored alongside, never instead
// of, the encrypted value.
func (c *Cipher) BlindIndex(value string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashToken one-way hashes a bearer secret (reset token, invitation token,
// refresh token) for storage. Verification is by equality of hashes only.
func (c *Cipher) HashToken(token string) string {
	mac := hmac.New(sha256.New, c.tokenKey)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
