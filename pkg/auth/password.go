package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// HashPassword hashes a password with argon2id and a fresh random salt,
// returning a PHC-format string. Two hashes of the same password differ.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a plaintext password against a stored PHC-format
// argon2id digest. A malformed digest or mismatch returns false, never an
// error or a panic.
func VerifyPassword(password, encoded string) bool {
	var memory, iterations uint32
	var threads uint8
	var version int
	var b64Salt, b64Hash string

	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &memory, &iterations, &threads, &b64Hash)
	if err != nil || n != 5 {
		return false
	}

	// Last Sscanf verb captured "salt$hash"; split it.
	sep := -1
	for i := 0; i < len(b64Hash); i++ {
		if b64Hash[i] == '$' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return false
	}
	b64Salt, b64Hash = b64Hash[:sep], b64Hash[sep+1:]

	salt, err := base64.RawStdEncoding.DecodeString(b64Salt)
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(b64Hash)
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
