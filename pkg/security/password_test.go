package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *PasswordHasher {
	return &PasswordHasher{Cost: bcrypt.MinCost}
}

func TestNew_UsesDefaultCost(t *testing.T) {
	assert.Equal(t, 10, New().Cost)
}

func TestGenerateFromPassword_NeverPlaintext(t *testing.T) {
	h := newTestHasher()

	for _, p := range []string{"secret1", "hunter22", "пароль-密码", " "} {
		hash, err := h.GenerateFromPassword(p)
		require.NoError(t, err)

		assert.NotEqual(t, p, hash)
		assert.True(t, strings.HasPrefix(hash, "$2"))
	}
}

func TestGenerateFromPassword_SaltedHashesDiffer(t *testing.T) {
	h := newTestHasher()

	a, err := h.GenerateFromPassword("same-password")
	require.NoError(t, err)
	b, err := h.GenerateFromPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenerateFromPassword_TooLong(t *testing.T) {
	_, err := newTestHasher().GenerateFromPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPasswd(t *testing.T) {
	h := newTestHasher()

	hash, err := h.GenerateFromPassword("secret1")
	require.NoError(t, err)

	ok, err := h.VerifyPasswd("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, wrong := range []string{"", "secret", "secret12", "SECRET1", "secret1 "} {
		ok, err := h.VerifyPasswd(wrong, hash)
		require.NoError(t, err)
		assert.False(t, ok, "password %q should not verify", wrong)
	}
}

func TestVerifyPasswd_GarbageHash(t *testing.T) {
	ok, err := newTestHasher().VerifyPasswd("secret1", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswd_TooLongIsMismatch(t *testing.T) {
	h := newTestHasher()

	hash, err := h.GenerateFromPassword(strings.Repeat("é", 36))
	require.NoError(t, err)

	ok, err := h.VerifyPasswd(strings.Repeat("é", 40), hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
