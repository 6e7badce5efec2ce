package utils

import (
	"errors"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/hash"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailEmpty       = errors.New("email cannot be empty")
	ErrEmailTooLong     = errors.New("email too long")
	ErrEmailMissingAt   = errors.New("missing @ symbol")
	ErrEmailLocalPart   = errors.New("invalid local part")
	ErrEmailDomain      = errors.New("invalid domain")
	ErrEmailTopLevel    = errors.New("invalid top-level domain")
	ErrEmailInvalidChar = errors.New("invalid character in email")
)

// HashCheck compares a password to a stored hash. Hashes carried over from
// the legacy bcrypt store ($2a$, $2b$, $2y$) are checked with bcrypt, all
// others with the configured algorithm and then the legacy one.
func HashCheck(password, hashStr, algo, legacyAlgo string) (bool, error) {
	if IsBcryptHash(hashStr) {
		err := bcrypt.CompareHashAndPassword([]byte(hashStr), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	ok, err := hash.Match(password, hashStr, algo)
	if ok || legacyAlgo == "" {
		return ok, err
	}
	return hash.Match(password, hashStr, legacyAlgo)
}

func IsBcryptHash(hashStr string) bool {
	return strings.HasPrefix(hashStr, "$2a$") || strings.HasPrefix(hashStr, "$2b$") || strings.HasPrefix(hashStr, "$2y$")
}

// GetClientIP returns the normalized c.IP(). Forwarding headers reach it
// only through the app's ProxyHeader, and only when the request came from
// one of the app's TrustedProxies.
func GetClientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if parsed := parseIP(ip); parsed != "" {
		return parsed
	}
	return ip
}

func parseIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return ""
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailParts splits a normalized address into its local part and the first
// label of its domain.
func EmailParts(email string) (local, domainLabel string) {
	email = NormalizeEmail(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email, ""
	}
	local = email[:at]
	domain := email[at+1:]
	if dot := strings.IndexByte(domain, '.'); dot > 0 {
		domain = domain[:dot]
	}
	return local, domain
}

// ValidateEmail checks format and constraints without regex or allocations.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailEmpty
	}
	if len(email) > 254 {
		return ErrEmailTooLong
	}

	inDomain := false
	localLen, labelLen, labels := 0, 0, 0

	for i := 0; i < len(email); i++ {
		c := email[i]

		if !inDomain {
			if c == '@' {
				if localLen == 0 || localLen > 64 || email[i-1] == '.' || email[0] == '.' {
					return ErrEmailLocalPart
				}
				inDomain = true
				continue
			}
			if !(isAlphaNum(c) || c == '.' || c == '_' || c == '%' || c == '+' || c == '-') {
				return ErrEmailInvalidChar
			}
			localLen++
			continue
		}

		if c == '.' {
			if labelLen == 0 || email[i-1] == '-' {
				return ErrEmailDomain
			}
			labels++
			labelLen = 0
			continue
		}
		if !(isAlphaNum(c) || c == '-') {
			return ErrEmailInvalidChar
		}
		if labelLen == 0 && c == '-' {
			return ErrEmailDomain
		}
		labelLen++
		if labelLen > 63 {
			return ErrEmailDomain
		}
	}

	if !inDomain {
		return ErrEmailMissingAt
	}
	if labelLen == 0 {
		return ErrEmailDomain
	}
	labels++
	if labels < 2 || labelLen < 2 {
		return ErrEmailTopLevel
	}
	return nil
}

func isAlphaNum(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9')
}
