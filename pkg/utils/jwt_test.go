package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, issuer string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, transfer.CustomClaims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	claims, err := ValidateToken("secret", signToken(t, "secret", tokenIssuer, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "postflow", claims.Issuer)
}

func TestValidateToken_Rejects(t *testing.T) {
	tests := map[string]string{
		"expired":      signToken(t, "secret", tokenIssuer, -time.Minute),
		"wrong key":    signToken(t, "other-secret", tokenIssuer, time.Minute),
		"wrong issuer": signToken(t, "secret", "someone-else", time.Minute),
		"not a jwt":    "abc.def",
	}
	for name, token := range tests {
		_, err := ValidateToken("secret", token)
		assert.Error(t, err, name)
	}
}
