package utils_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/utils"
)

func TestNewAccessToken(t *testing.T) {
	const secret = "test-secret"

	access, err := utils.NewAccessToken(secret, 42, 15)
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), access.Exp, 2*time.Second)

	tok, err := jwt.Parse(access.Token, func(tk *jwt.Token) (interface{}, error) {
		require.IsType(t, &jwt.SigningMethodHMAC{}, tk.Method)
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims, ok := tok.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])

	t.Run("wrong secret fails verification", func(t *testing.T) {
		_, err := jwt.Parse(access.Token, func(*jwt.Token) (interface{}, error) {
			return []byte("other-secret"), nil
		})
		assert.Error(t, err)
	})
}

func TestNewRefreshToken(t *testing.T) {
	r1, err := utils.NewRefreshToken(7)
	require.NoError(t, err)
	r2, err := utils.NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, r1.Raw, 96)
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), r1.Exp, 2*time.Second)
}

func TestHashRefreshRaw(t *testing.T) {
	h := utils.HashRefreshRaw("some-token")
	assert.Len(t, h, 64) // hex sha256
	assert.Equal(t, h, utils.HashRefreshRaw("some-token"))
	assert.NotEqual(t, h, utils.HashRefreshRaw("other-token"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := utils.HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, utils.VerifyPassword(hash, "hunter2"))
	assert.False(t, utils.VerifyPassword(hash, "hunter3"))
}
