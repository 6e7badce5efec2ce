package rules

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars = "0123456789"
	// a subset of PasswordSymbols that survives shells and URLs unescaped
	generatorSymbols = "!@#%^&*()-_=+[]{}:,.?"
)

const maxGenerateTries = 64

var ErrGenerate = errors.New("rules: could not generate a compliant password")

// GeneratePassword returns a random password that passes r. It takes one
// character from every required class, fills the rest from all classes,
// shuffles, and retries in the rare case the result trips a weak-pattern or
// dictionary check.
func (r *StrongPassword) GeneratePassword(length int) (string, error) {
	if length < r.minLength {
		length = r.minLength
	}
	if length > r.maxLength {
		length = r.maxLength
	}
	if length < 4 {
		length = 4
	}
	for try := 0; try < maxGenerateTries; try++ {
		candidate, err := generate(length)
		if err != nil {
			return "", err
		}
		if r.Validate("password", candidate).Passed {
			return candidate, nil
		}
	}
	return "", ErrGenerate
}

// GeneratePassword uses the default policy.
func GeneratePassword(length int) (string, error) {
	return NewStrongPassword().GeneratePassword(length)
}

func generate(length int) (string, error) {
	all := lowerChars + upperChars + digitChars + generatorSymbols
	out := make([]byte, 0, length)
	for _, class := range []string{lowerChars, upperChars, digitChars, generatorSymbols} {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(class string) (byte, error) {
	i, err := randInt(len(class))
	if err != nil {
		return 0, err
	}
	return class[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
