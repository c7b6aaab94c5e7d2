package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{name: "valid", password: "secret123", want: nil},
		{name: "unicode letters count as letters", password: "пароль123", want: nil},
		{
			name:     "too short and no digit",
			password: "abc",
			want: []string{
				"password must be at least 8 characters",
				"password must contain at least one digit",
			},
		},
		{
			name:     "too long",
			password: strings.Repeat("a1", 26),
			want:     []string{"password is too long (maximum 50 characters)"},
		},
		{
			name:     "exactly fifty runes",
			password: strings.Repeat("ж1", 25),
			want:     nil,
		},
		{
			name:     "leading space",
			password: " secret123",
			want:     []string{"password must not start or end with a space"},
		},
		{
			name:     "blacklisted case-insensitively",
			password: "PASSWORD123",
			want:     []string{"password is too common"},
		},
		{
			name:     "blacklisted admin",
			password: "admin",
			want: []string{
				"password must be at least 8 characters",
				"password is too common",
				"password must contain at least one digit",
			},
		},
		{
			name:     "digits only",
			password: "12345678",
			want: []string{
				"password is too common",
				"password must contain at least one letter",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}

			var policy *PasswordPolicyError
			require.True(t, errors.As(err, &policy), "expected *PasswordPolicyError, got %v", err)
			assert.Equal(t, tt.want, policy.Violations)
			assert.Equal(t, strings.Join(tt.want, "; "), err.Error())
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, false)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	ok, err := h.Verify("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("secret124", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes must be salted")

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHasher_LongPasswords(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, false)
	// 50 runes of 2-byte characters exceed bcrypt's 72 byte window.
	base := strings.Repeat("ж", 40) + "123456789"
	hash, err := h.Hash(base + "a")
	require.NoError(t, err)

	ok, err := h.Verify(base+"a", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(base+"b", hash)
	require.NoError(t, err)
	assert.False(t, ok, "characters beyond 72 bytes must still matter")
}

func TestHasher_LegacySHA256(t *testing.T) {
	legacy := LegacySHA256("secret123")
	assert.Len(t, legacy, 64)

	t.Run("rejected when disabled", func(t *testing.T) {
		ok, err := NewHasher(bcrypt.MinCost, false).Verify("secret123", legacy)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("accepted when enabled", func(t *testing.T) {
		h := NewHasher(bcrypt.MinCost, true)
		ok, err := h.Verify("secret123", legacy)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = h.Verify("wrong123", legacy)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = h.Verify("secret123", strings.ToUpper(legacy))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestHasher_NeedsUpgrade(t *testing.T) {
	low := NewHasher(bcrypt.MinCost, true)
	high := NewHasher(bcrypt.MinCost+1, true)

	hash, err := low.Hash("secret123")
	require.NoError(t, err)

	assert.False(t, low.NeedsUpgrade(hash))
	assert.True(t, high.NeedsUpgrade(hash))
	assert.True(t, low.NeedsUpgrade(LegacySHA256("secret123")))
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0, false).cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(99, false).cost)
}
