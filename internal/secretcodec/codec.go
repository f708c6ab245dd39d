// Package secretcodec holds the crypto primitives the onboarding flow uses for
// secrets at rest: password-derived AES-GCM keys, PIN hashing and card UID
// hashing.
//
// Ciphertexts are base64(nonce || sealed) so they can travel as plain strings
// through the record store and the backend API.
package secretcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/pbkdf2"

	dErrors "satnam/pkg/domain-errors"
)

const (
	// DefaultSaltSize is the salt length for keys and PIN hashes.
	DefaultSaltSize = 32

	keyIterations = 100_000
	keySize       = 32

	pinIterations = 100_000
	pinHashSize   = 64

	nonceSize = 12
)

// randReader is swapped in tests that need a failing entropy source.
var randReader io.Reader = rand.Reader

// ErrDecrypt is returned for every decryption failure. Wrong password and
// corrupted ciphertext are indistinguishable to the caller.
var ErrDecrypt = dErrors.New(dErrors.CodeSecurity, "unable to decrypt secret")

// GenerateSalt returns n random bytes; n <= 0 selects DefaultSaltSize.
func GenerateSalt(n int) ([]byte, error) {
	if n <= 0 {
		n = DefaultSaltSize
	}
	salt := make([]byte, n)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read random bytes")
	}
	return salt, nil
}

// DeriveKey derives an AES-256 key from password and salt with PBKDF2-SHA256.
// The caller owns the returned slice and should Wipe it when done.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, keyIterations, keySize, sha256.New)
}

// Encrypt seals plaintext under key and returns base64(nonce || ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialise cipher")
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read random bytes")
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any failure (bad encoding,
// truncated input, authentication tag mismatch) yields ErrDecrypt.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize {
		return nil, ErrDecrypt
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecrypt
	}
	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// Sealed is a password-encrypted secret together with the salt its key was
// derived from. Both halves are safe to persist.
type Sealed struct {
	Ciphertext string
	Salt       string
}

// SealWithPassword derives a fresh-salted key from password and encrypts
// plaintext under it.
func SealWithPassword(plaintext, password []byte) (Sealed, error) {
	salt, err := GenerateSalt(DefaultSaltSize)
	if err != nil {
		return Sealed{}, err
	}
	key := DeriveKey(password, salt)
	defer Wipe(key)

	ct, err := Encrypt(plaintext, key)
	if err != nil {
		return Sealed{}, err
	}
	return Sealed{Ciphertext: ct, Salt: hex.EncodeToString(salt)}, nil
}

// OpenWithPassword reverses SealWithPassword.
func OpenWithPassword(s Sealed, password []byte) ([]byte, error) {
	salt, err := hex.DecodeString(s.Salt)
	if err != nil || len(salt) == 0 {
		return nil, ErrDecrypt
	}
	key := DeriveKey(password, salt)
	defer Wipe(key)
	return Decrypt(s.Ciphertext, key)
}

// HashPin returns hex(PBKDF2-HMAC-SHA512(pin, salt, 100000, 64)).
func HashPin(pin, salt []byte) string {
	return hex.EncodeToString(pbkdf2.Key(pin, salt, pinIterations, pinHashSize, sha512.New))
}

// HashCardUID returns the hex SHA-256 digest of a raw card UID.
func HashCardUID(uid []byte) string {
	sum := sha256.Sum256(uid)
	return hex.EncodeToString(sum[:])
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
