package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shop-auth"
)

func TestUserHasSessionToken(t *testing.T) {
	user := &auth.User{
		Tokens: []string{"token-a", "token-b"},
	}

	assert.True(t, user.HasSessionToken("token-a"))
	assert.True(t, user.HasSessionToken("token-b"))
	assert.False(t, user.HasSessionToken("token-c"))
	assert.False(t, user.HasSessionToken(""))

	var nilUser *auth.User
	assert.False(t, nilUser.HasSessionToken("token-a"))
}

func TestUserSetPassword(t *testing.T) {
	user := &auth.User{}

	err := user.SetPassword("pass123")
	require.NoError(t, err)
	require.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "pass123", user.PasswordHash)

	assert.NoError(t, auth.ComparePasswordAndHash("pass123", user.PasswordHash))

	t.Run("rejects out of bounds plaintext", func(t *testing.T) {
		u := &auth.User{}
		err := u.SetPassword("abc")
		assert.ErrorIs(t, err, auth.ErrPasswordLength)
		assert.Empty(t, u.PasswordHash)
	})
}

func TestUserEnsureRole(t *testing.T) {
	user := &auth.User{}
	user.EnsureRole()
	assert.Equal(t, auth.RoleUser, user.Role)

	admin := &auth.User{Role: auth.RoleAdmin}
	admin.EnsureRole()
	assert.Equal(t, auth.RoleAdmin, admin.Role)
}
