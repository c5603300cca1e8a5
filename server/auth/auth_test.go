package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAccessToken(42, "a@example.com", time.Now().Add(time.Hour), secret)
	require.NoError(t, err)

	userID, err := VerifyAccessToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, int32(42), userID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(42, "a@example.com", time.Now().Add(time.Hour), []byte("secret-a"))
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, []byte("secret-b"))
	require.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAccessToken(42, "a@example.com", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, secret)
	require.Error(t, err)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	_, err := VerifyAccessToken("not.a.token", []byte("test-secret"))
	require.Error(t, err)
}

func TestLoginCode(t *testing.T) {
	code, hash, err := GenerateLoginCode()
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.NotEqual(t, code, hash)

	require.True(t, VerifyLoginCode(code, hash))

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	require.False(t, VerifyLoginCode(wrong, hash))
}
