package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// secretVersion is the leading byte of every encrypted blob.
	secretVersion = 0x01

	// nonceSize is the AES-GCM nonce size
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32

	// hkdfInfo scopes derived keys to connector secrets.
	hkdfInfo = "sercha-dispatch connector secrets v1"
)

var (
	// ErrInvalidKeySize is returned when the encryption key is not 32 bytes.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

	// ErrEmptySecret is returned when no key material is configured.
	ErrEmptySecret = errors.New("encryption secret is empty")

	// ErrInvalidBlobSize is returned when the encrypted blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")

	// ErrDecryptionFailed is returned for a wrong key, a blob bound to another
	// row, or corrupted data.
	ErrDecryptionFailed = errors.New("failed to decrypt secret blob")
)

// SecretEncryptor seals connector secrets and OAuth tokens with AES-256-GCM.
// Blobs are bound to their row through the associated data, so a blob
// copied onto another (user, connector) row does not open.
//
// Format: version(1) || nonce(12) || ciphertext(N)
type SecretEncryptor struct {
	gcm cipher.AEAD
}

// NewSecretEncryptor creates an encryptor with a raw 32-byte key.
func NewSecretEncryptor(key []byte) (*SecretEncryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &SecretEncryptor{gcm: gcm}, nil
}

// DeriveSecretEncryptor derives the AES key from an operator-supplied secret
// of any length with HKDF-SHA256.
func DeriveSecretEncryptor(secret string) (*SecretEncryptor, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return NewSecretEncryptor(key)
}

// Seal JSON-encodes value and encrypts it, bound to aad.
func (e *SecretEncryptor) Seal(value any, aad string) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+e.gcm.Overhead())
	blob[0] = secretVersion
	copy(blob[1:], nonce)
	return e.gcm.Seal(blob, nonce, plaintext, []byte(aad)), nil
}

// Open decrypts a blob sealed with the same aad into value.
func (e *SecretEncryptor) Open(blob []byte, aad string, value any) error {
	if len(blob) < 1+nonceSize+e.gcm.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != secretVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	plaintext, err := e.gcm.Open(nil, nonce, blob[1+nonceSize:], []byte(aad))
	if err != nil {
		return ErrDecryptionFailed
	}

	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshal decrypted value: %w", err)
	}
	return nil
}

// rowAAD binds a secret blob to one user connector row and column.
func rowAAD(userID, connectorID, column string) string {
	return userID + "\x00" + connectorID + "\x00" + column
}
