// Package secrets provides credential generation and sealing for the
// secret provisioning capability. This is part of the Functional Core -
// no I/O beyond the system entropy source.
//
// Generated credentials are sealed at rest using AES-256-GCM. The sealing
// key should be derived from a platform master secret.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrKeyTooShort is returned when the sealing key is too short.
	ErrKeyTooShort = errors.New("sealing key must be at least 32 bytes")

	// ErrInvalidCiphertext is returned when unsealing fails due to invalid ciphertext.
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short")

	// ErrUnsealFailed is returned when unsealing fails (wrong key or corrupted data).
	ErrUnsealFailed = errors.New("unseal failed: authentication tag mismatch")
)

// =============================================================================
// Key Derivation
// =============================================================================

// DeriveKey derives a 32-byte AES-256 key from a passphrase using SHA-256.
// This is a simple key derivation function. For production use, consider
// using a proper KDF like Argon2, scrypt, or PBKDF2.
//
// Note: This function is deterministic - same input always produces same output.
func DeriveKey(passphrase string) []byte {
	hash := sha256.Sum256([]byte(passphrase))
	return hash[:]
}

// =============================================================================
// AES-256-GCM Sealing
// =============================================================================

// Seal encrypts plaintext using AES-256-GCM with the provided key.
// The key must be exactly 32 bytes (256 bits). The nonce is prepended to
// the ciphertext and the whole blob is base64 encoded.
func Seal(plaintext string, key []byte) (string, error) {
	if len(key) < 32 {
		return "", ErrKeyTooShort
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a blob produced by Seal.
func Unseal(encoded string, key []byte) (string, error) {
	if len(key) < 32 {
		return "", ErrKeyTooShort
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrUnsealFailed
	}

	return string(plaintext), nil
}

// =============================================================================
// Credential Generation
// =============================================================================

// credentialAlphabet excludes look-alike characters (0/O, 1/l/I).
const credentialAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePassword returns a random password of the given length.
// Lengths under 16 are bumped to 16.
func GeneratePassword(length int) (string, error) {
	if length < 16 {
		length = 16
	}

	out := make([]byte, length)
	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	for i, b := range buf {
		out[i] = credentialAlphabet[int(b)%len(credentialAlphabet)]
	}
	return string(out), nil
}

// Credential is one generated, sealed secret for a service.
type Credential struct {
	Service string `json:"service"`
	Key     string `json:"key"`
	Sealed  string `json:"sealed"`
}

// ProvisionCredential generates a password for service/key and seals it.
// The plaintext never leaves this function.
func ProvisionCredential(service, key string, sealingKey []byte) (Credential, error) {
	plaintext, err := GeneratePassword(24)
	if err != nil {
		return Credential{}, err
	}

	sealed, err := Seal(plaintext, sealingKey)
	if err != nil {
		return Credential{}, err
	}

	return Credential{Service: service, Key: key, Sealed: sealed}, nil
}
