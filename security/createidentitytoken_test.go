package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	secret, err := DecodeSecret(base64.StdEncoding.EncodeToString([]byte("top-secret")))
	require.NoError(t, err)

	token, err := CreateIdentityToken(Identity{Name: "payroll", Role: "admin"}, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseIdentityToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "payroll", claims.Name)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "payroll", claims.Subject)
}

func TestParseIdentityTokenRejects(t *testing.T) {
	secret := []byte("top-secret")

	expired, err := CreateIdentityToken(Identity{Name: "payroll"}, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseIdentityToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := CreateIdentityToken(Identity{Name: "payroll"}, secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseIdentityToken(valid, []byte("other"))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = ParseIdentityToken(foreign, secret)
	assert.Error(t, err)
}

func TestDecodeSecret(t *testing.T) {
	_, err := DecodeSecret("")
	assert.Error(t, err)
	_, err = DecodeSecret("not base64!")
	assert.Error(t, err)
}
