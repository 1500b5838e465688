package utils // package utils provides hashing, salt and token helpers

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 for credential digests and token fingerprints
	"encoding/hex"  // hex encoding and decoding functions
)

// SaltBytes is the length of a credential salt before hex encoding.
const SaltBytes = 12

// Digest returns the lowercase hex SHA-256 of the salt bytes followed by
// the UTF-8 bytes of secret. The same inputs always give the same
// output. A saltHex that is not valid hex is treated as an empty salt;
// callers that store salts always produce valid hex through NewSaltHex.
func Digest(secret, saltHex string) string {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		salt = nil
	}
	combined := make([]byte, 0, len(salt)+len(secret))
	combined = append(combined, salt...)
	combined = append(combined, secret...)
	sum := sha256.Sum256(combined)
	return hex.EncodeToString(sum[:])
}

// NewSaltHex returns SaltBytes of cryptographically secure random data
// as a hex string (24 characters).
func NewSaltHex() (string, error) {
	return randomHex(SaltBytes)
}

// NewToken returns n random bytes as a hex string. It is used for
// session identifiers and per-process signing secrets.
func NewToken(n int) (string, error) {
	return randomHex(n)
}

// HashToken returns the SHA-256 of a raw token as hex. Session stores
// key entries by this value so a dump of the store does not hand out
// usable tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
