package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rmaeda/annotation-portal/internal/config"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "pbkdf2-sha256$"))

	ok, err := VerifyPassword("Passw0rd", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPassword_SaltIsRandom(t *testing.T) {
	h1, err := HashPassword("Passw0rd")
	require.NoError(t, err)
	h2, err := HashPassword("Passw0rd")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	cases := []string{
		"not-a-hash",
		"pbkdf2-sha256$abc$salt$key",
		"bcrypt$10$x$y",
		"pbkdf2-sha256$120000$!!!$key",
	}
	for _, encoded := range cases {
		_, err := VerifyPassword("Passw0rd", encoded)
		require.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestVerifyPassword_EmptyInputs(t *testing.T) {
	ok, err := VerifyPassword("", "anything")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = VerifyPassword("password", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidatePassword(t *testing.T) {
	policy := config.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireDigit: true}

	require.NoError(t, ValidatePassword("Passw0rd", policy))

	err := ValidatePassword("Pw1", policy)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 8 characters")

	err = ValidatePassword("passw0rd", policy)
	require.Error(t, err)
	require.Contains(t, err.Error(), "uppercase")

	err = ValidatePassword("Password", policy)
	require.Error(t, err)
	require.Contains(t, err.Error(), "number")

	relaxed := config.PasswordPolicy{MinLength: 4}
	require.NoError(t, ValidatePassword("abcd", relaxed))
}
