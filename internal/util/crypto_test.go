package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		hash := HashToken("test-token")
		assert.Len(t, hash, 64)
	})

	t.Run("same input produces same hash", func(t *testing.T) {
		hash1 := HashToken("test-token")
		hash2 := HashToken("test-token")
		assert.Equal(t, hash1, hash2)
	})

	t.Run("different input produces different hash", func(t *testing.T) {
		hash1 := HashToken("token-1")
		hash2 := HashToken("token-2")
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("accepts matching password", func(t *testing.T) {
		assert.True(t, CheckPasswordHash("correct-horse", string(hash)))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("battery-staple", string(hash)))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
}

func TestIsValidPhoneNumber(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+55 (11) 99876-5432", true},
		{"+5511998765432", true},
		{"11 91234-5678", true},
		{"", false},
		{"abc", false},
		{"+55 (11) 9", false},
	}

	for _, tc := range tests {
		t.Run(tc.phone, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidPhoneNumber(tc.phone))
		})
	}
}

func TestIsValidEnum(t *testing.T) {
	valid := []string{"client", "agent", "ai"}

	t.Run("accepts listed value", func(t *testing.T) {
		assert.True(t, IsValidEnum("agent", valid))
	})

	t.Run("accepts empty value", func(t *testing.T) {
		assert.True(t, IsValidEnum("", valid))
	})

	t.Run("rejects unlisted value", func(t *testing.T) {
		assert.False(t, IsValidEnum("bot", valid))
	})
}
