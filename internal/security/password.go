package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for stored password hashes.
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// ErrInvalidHash is returned when an encoded hash cannot be parsed.
var ErrInvalidHash = errors.New("security: invalid password hash")

// HashPassword returns an encoded argon2id hash of password.
// Format: $argon2id$v=19$m=19456,t=2,p=1$salt$hash
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, errRead := rand.Read(salt); errRead != nil {
		return "", fmt.Errorf("security: generate salt: %w", errRead)
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword reports whether password matches encodedHash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}
	var version int
	if _, errScan := fmt.Sscanf(parts[2], "v=%d", &version); errScan != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}
	var memory, timeCost uint32
	var threads uint8
	if _, errScan := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); errScan != nil {
		return false, ErrInvalidHash
	}
	salt, errSalt := base64.RawStdEncoding.DecodeString(parts[4])
	if errSalt != nil {
		return false, ErrInvalidHash
	}
	hash, errHash := base64.RawStdEncoding.DecodeString(parts[5])
	if errHash != nil || len(hash) == 0 {
		return false, ErrInvalidHash
	}
	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// CheckPassword is VerifyPassword with parse failures treated as a mismatch.
func CheckPassword(password, encodedHash string) bool {
	ok, errVerify := VerifyPassword(password, encodedHash)
	return errVerify == nil && ok
}
