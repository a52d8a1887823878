package authUtils

import (
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trinetra-be/models"
)

func TestGenerateAndSetToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	tokenString, err := GenerateAndSetToken("64b0c8c2a1b2c3d4e5f60718", models.RoleWorker)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("unit-test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "64b0c8c2a1b2c3d4e5f60718", claims["user_id"])
	assert.Equal(t, "worker", claims["role"])
	assert.NotNil(t, claims["exp"])
}

func TestGenerateAndSetTokenMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := GenerateAndSetToken("64b0c8c2a1b2c3d4e5f60718", models.RoleCitizen)
	assert.Error(t, err)
}
