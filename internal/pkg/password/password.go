package password

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor applied to every new hash.
const Cost = 10

// Hash returns the bcrypt digest of the plaintext.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether the plaintext matches the digest. Malformed
// digests verify false rather than erroring; callers only ever need the
// boolean.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
