package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
)

var tokenFormat = regexp.MustCompile(`^[a-f0-9]{64}$`)

var ErrTokenFormat = errors.New("reset: malformed token")

// NewToken returns 256 random bits as 64 lowercase hex characters.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the form a token is stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ValidTokenFormat(token string) bool {
	return tokenFormat.MatchString(token)
}
