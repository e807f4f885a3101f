package services_test

import (
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"orderd/internal/apperr"
	"orderd/internal/auth"
	"orderd/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_IssueToken(t *testing.T) {
	authService := services.NewAuthService(testJWTSecret, time.Hour)

	token, err := authService.IssueToken("user-123", auth.RoleCustomer)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "customer", claims["role"])
	assert.NotNil(t, claims["exp"])

	_, err = authService.IssueToken("", auth.RoleCustomer)
	assert.Error(t, err)

	_, err = authService.IssueToken("user-123", auth.Role("root"))
	assert.Error(t, err)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(testJWTSecret, time.Hour)

	token, err := authService.IssueToken("admin-1", auth.RoleAdmin)
	require.NoError(t, err)

	principal, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", principal.UserID)
	assert.True(t, principal.IsAdmin())

	t.Run("wrong secret", func(t *testing.T) {
		other := services.NewAuthService("another_secret", time.Hour)
		_, err := other.ValidateToken(token)
		assert.True(t, apperr.Is(err, apperr.AuthInvalid))
	})

	t.Run("expired", func(t *testing.T) {
		expired := services.NewAuthService(testJWTSecret, -time.Minute)
		stale, err := expired.IssueToken("user-1", auth.RoleCustomer)
		require.NoError(t, err)
		_, err = authService.ValidateToken(stale)
		assert.True(t, apperr.Is(err, apperr.AuthInvalid))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := authService.ValidateToken("not-a-token")
		assert.True(t, apperr.Is(err, apperr.AuthInvalid))
	})

	t.Run("missing role claim", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, err := raw.SignedString([]byte(testJWTSecret))
		require.NoError(t, err)
		_, err = authService.ValidateToken(signed)
		assert.True(t, apperr.Is(err, apperr.AuthInvalid))
	})
}
