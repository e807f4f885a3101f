package services

import (
	"fmt"
	"log"
	"time"

	"orderd/internal/apperr"
	"orderd/internal/auth"

	"github.com/dgrijalva/jwt-go"
)

// AuthService verifies bearer credentials and mints them for operators.
type AuthService struct {
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
	}
}

// IssueToken signs a credential carrying the subject and role.
func (s *AuthService) IssueToken(userID string, role auth.Role) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("subject is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("invalid role: %q", role)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the caller it identifies.
func (s *AuthService) ValidateToken(tokenString string) (auth.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return auth.Principal{}, apperr.Wrap(apperr.AuthInvalid, "Invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return auth.Principal{}, apperr.New(apperr.AuthInvalid, "Invalid token")
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !auth.Role(role).Valid() {
		return auth.Principal{}, apperr.New(apperr.AuthInvalid, "Invalid token")
	}
	return auth.Principal{UserID: userID, Role: auth.Role(role)}, nil
}
