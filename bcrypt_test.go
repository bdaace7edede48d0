package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shop-auth"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePass1",
			wantErr:  false,
		},
		{
			name:     "Minimum length password",
			password: "abcd",
			wantErr:  false,
		},
		{
			name:     "Maximum length password",
			password: strings.Repeat("p", auth.PasswordMaxLength),
			wantErr:  false,
		},
		{
			name:     "Too short",
			password: "abc",
			wantErr:  true,
		},
		{
			name:     "Too long",
			password: strings.Repeat("p", auth.PasswordMaxLength+1),
			wantErr:  true,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrPasswordLength)
				assert.Empty(t, hash)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestHashPasswordLengthCheckedBeforeHashing(t *testing.T) {
	// Every bcrypt digest has the same shape regardless of input, so the
	// length rule only means something against the plaintext.
	hash, err := auth.HashPassword("longEnoughPassword")
	require.NoError(t, err)
	require.Greater(t, len(hash), auth.PasswordMaxLength)

	_, err = auth.HashPassword(strings.Repeat("x", 72))
	assert.ErrorIs(t, err, auth.ErrPasswordLength)
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPass123"
	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Wrong password",
			password: "wrongPass",
			hash:     hash,
			wantErr:  auth.ErrMismatchedHashAndPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("Invalid hash", func(t *testing.T) {
		err := auth.ComparePasswordAndHash(password, "invalidhash")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestSamePasswordProducesDistinctHashes(t *testing.T) {
	a, err := auth.HashPassword("pass123")
	require.NoError(t, err)
	b, err := auth.HashPassword("pass123")
	require.NoError(t, err)

	// bcrypt salts each digest
	assert.NotEqual(t, a, b)
	assert.NoError(t, auth.ComparePasswordAndHash("pass123", a))
	assert.NoError(t, auth.ComparePasswordAndHash("pass123", b))
}

func TestRandomPasswordHash(t *testing.T) {
	hash := auth.RandomPasswordHash()
	assert.NotEmpty(t, hash)

	// placeholder hashes should never match a real password attempt
	err := auth.ComparePasswordAndHash("pass123", hash)
	assert.Error(t, err)
}
