package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// otpDigits is the width of generated one-time codes.
const otpDigits = 6

var otpRange = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly distributed 6-digit decimal code,
// zero-padded so leading zeros survive ("000042").
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// FingerprintOTP returns the hex SHA-256 digest of a code. The digest is
// deterministic, so a stored fingerprint can be compared directly against
// the fingerprint of a submitted code; codes are short-lived one-shot
// secrets, so no salt is needed.
func FingerprintOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// OTPEqual compares two fingerprints in constant time.
func OTPEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
