// Package pin hashes and verifies the settings PIN with Argon2id.
package pin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MinLength is the shortest PIN accepted by Set.
const MinLength = 4

// Argon2id parameters
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

var (
	ErrTooShort      = fmt.Errorf("pin must be at least %d characters", MinLength)
	ErrInvalidFormat = errors.New("invalid pin hash format")
)

// Normalize trims surrounding whitespace, as typed PINs are compared trimmed.
func Normalize(p string) string { return strings.TrimSpace(p) }

// Hash returns the encoded Argon2id hash of the normalized PIN.
func Hash(p string) (string, error) {
	p = Normalize(p)
	if len([]rune(p)) < MinLength {
		return "", ErrTooShort
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(p), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether p matches the encoded hash.
func Verify(p, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidFormat
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidFormat, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: key: %v", ErrInvalidFormat, err)
	}
	if len(salt) == 0 || len(want) == 0 {
		return false, fmt.Errorf("%w: empty salt or key", ErrInvalidFormat)
	}

	got := argon2.IDKey([]byte(Normalize(p)), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Matches compares p against the stored hash, or against fallback when no
// hash has been stored yet.
func Matches(p, storedHash, fallback string) (bool, error) {
	if storedHash == "" {
		return subtle.ConstantTimeCompare([]byte(Normalize(p)), []byte(Normalize(fallback))) == 1, nil
	}
	return Verify(p, storedHash)
}
