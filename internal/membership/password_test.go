package membership

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	again, err := hashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ per hash")

	ok, err := verifyPassword("pw", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("pW", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, h := range []string{
		"",
		"$2b$12$hashfakepw",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	} {
		ok, err := verifyPassword("pw", h)
		assert.Error(t, err, h)
		assert.False(t, ok, h)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	for _, pw := range []string{"a", "correct horse battery staple", "sênha-çom-acentos", strings.Repeat("x", 200)} {
		hash, err := hashPassword(pw)
		require.NoError(t, err)

		ok, err := verifyPassword(pw, hash)
		require.NoError(t, err)
		assert.True(t, ok, pw)

		ok, err = verifyPassword(pw+" ", hash)
		require.NoError(t, err)
		assert.False(t, ok, pw)
	}
}
