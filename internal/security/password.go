package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/pbkdf2"

	"github.com/rmaeda/annotation-portal/internal/config"
)

const (
	pbkdf2Scheme     = "pbkdf2-sha256"
	pbkdf2Iterations = 120000
	saltLen          = 16
	keyLen           = 32
)

// ErrInvalidHash signals a malformed stored password hash.
var ErrInvalidHash = errors.New("invalid password hash format")

// HashPassword derives a key from the password with a fresh random salt.
// Format: pbkdf2-sha256$<iterations>$<salt_b64>$<key_b64>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("%s$%d$%s$%s",
		pbkdf2Scheme,
		pbkdf2Iterations,
		enc.EncodeToString(salt),
		enc.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key with the stored salt and iteration
// count and compares in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return false, ErrInvalidHash
	}
	if parts[0] != pbkdf2Scheme {
		return false, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidHash, parts[0])
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, fmt.Errorf("%w: bad iteration count", ErrInvalidHash)
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	want, err := enc.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// ValidatePassword checks the password against the configured policy and
// returns a human-readable reason when it fails.
func ValidatePassword(password string, policy config.PasswordPolicy) error {
	if len(password) < policy.MinLength {
		return fmt.Errorf("password must be at least %d characters", policy.MinLength)
	}
	if policy.RequireUpper && !strings.ContainsFunc(password, unicode.IsUpper) {
		return errors.New("password must contain an uppercase letter")
	}
	if policy.RequireDigit && !strings.ContainsFunc(password, unicode.IsDigit) {
		return errors.New("password must contain a number")
	}
	return nil
}
