package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 50

	// DefaultBcryptCost is used when the configured cost is out of range.
	DefaultBcryptCost = 12

	// bcryptMaxInput is the number of bytes bcrypt actually consumes.
	bcryptMaxInput = 72
)

var ErrEmptyPassword = errors.New("password cannot be empty")

var commonPasswords = map[string]struct{}{
	"password":    {},
	"12345678":    {},
	"qwerty":      {},
	"admin":       {},
	"password123": {},
}

// PasswordPolicyError lists every rule a password violates, in check order.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// ValidatePassword checks a password against the registration policy and
// returns a *PasswordPolicyError describing all violations, or nil.
// Length is counted in characters, not bytes.
func ValidatePassword(password string) error {
	var violations []string

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		violations = append(violations, "password must be at least 8 characters")
	}
	if length > MaxPasswordLength {
		violations = append(violations, "password is too long (maximum 50 characters)")
	}
	if strings.HasPrefix(password, " ") || strings.HasSuffix(password, " ") {
		violations = append(violations, "password must not start or end with a space")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		violations = append(violations, "password is too common")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		violations = append(violations, "password must contain at least one letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}

	if len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	return nil
}

// Hasher hashes passwords with bcrypt and verifies both bcrypt and, when
// enabled, legacy unsalted SHA-256 hex digests.
type Hasher struct {
	cost         int
	legacySHA256 bool
}

func NewHasher(cost int, legacySHA256 bool) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost, legacySHA256: legacySHA256}
}

// Hash produces a bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch returns
// (false, nil); an unreadable hash returns an error.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	if h.legacySHA256 && isLegacySHA256(hash) {
		digest := LegacySHA256(password)
		return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(hash))) == 1, nil
	}

	return false, nil
}

// NeedsUpgrade reports whether hash should be replaced by a fresh bcrypt
// hash at the configured cost.
func (h *Hasher) NeedsUpgrade(hash string) bool {
	if !isBcrypt(hash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost < h.cost
}

// LegacySHA256 returns the unsalted hex digest format of imported accounts.
func LegacySHA256(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// bcryptInput pre-hashes passwords longer than bcrypt's 72 byte window so that
// no suffix is silently ignored. The pre-hash is deterministic.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

func isLegacySHA256(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
