package auth_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shop-auth"
)

func TestTokenValidatorFunc(t *testing.T) {
	svc := newTestTokenService("test-signing-key")
	validator := auth.TokenValidatorFunc(svc.Validate)

	identity := TestIdentity{id: uuid.New().String(), role: "user"}
	token, err := svc.Generate(identity)
	require.NoError(t, err)

	claims, err := validator.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), claims.UserID())

	// the func adapter has no separate lenient path
	claims, err = validator.ValidateAllowExpired(token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), claims.UserID())

	var nilValidator auth.TokenValidatorFunc
	_, err = nilValidator.Validate(token)
	assert.Error(t, err)
}

func TestMultiTokenValidator(t *testing.T) {
	primary := newTestTokenService("primary-signing-key")
	secondary := newTestTokenService("secondary-signing-key")

	identity := TestIdentity{id: uuid.New().String(), role: "user"}

	primaryToken, err := primary.Generate(identity)
	require.NoError(t, err)
	secondaryToken, err := secondary.Generate(identity)
	require.NoError(t, err)

	t.Run("First validator wins", func(t *testing.T) {
		multi := auth.NewMultiTokenValidator(primary, secondary)

		claims, err := multi.Validate(primaryToken)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), claims.UserID())
	})

	t.Run("Falls through to the next key", func(t *testing.T) {
		multi := auth.NewMultiTokenValidator(primary, secondary)

		claims, err := multi.Validate(secondaryToken)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), claims.UserID())
	})

	t.Run("All validators reject", func(t *testing.T) {
		multi := auth.NewMultiTokenValidator(primary, secondary)

		claims, err := multi.Validate("garbage.token.value")
		assert.Nil(t, claims)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("Non-malformed errors stop the chain", func(t *testing.T) {
		sentinel := errors.New("revocation backend down")
		failing := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
			return nil, sentinel
		})

		multi := auth.NewMultiTokenValidator(failing, primary)

		_, err := multi.Validate(primaryToken)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("Nil validators are skipped", func(t *testing.T) {
		multi := auth.NewMultiTokenValidator(nil, primary)

		claims, err := multi.Validate(primaryToken)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), claims.UserID())
	})

	t.Run("Empty chain", func(t *testing.T) {
		multi := auth.NewMultiTokenValidator()

		_, err := multi.Validate(primaryToken)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})
}
