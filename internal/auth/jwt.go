package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

const minSecretLength = 32

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CanEdit reports whether the holder may change galaxies.
func (c *Claims) CanEdit() bool {
	return c.Role == RoleEditor || c.Role == RoleAdmin
}

func checkSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("JWT secret is required but not set")
	}
	if len(secret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d characters long for security", minSecretLength)
	}
	return nil
}

// GenerateToken signs an HS256 token for subject with the given role.
func GenerateToken(secret, issuer, subject, role string, ttl time.Duration) (string, error) {
	if err := checkSecret(secret); err != nil {
		return "", fmt.Errorf("cannot generate JWT: %w", err)
	}
	if role != RoleEditor && role != RoleAdmin {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, issuer, tokenString string) (*Claims, error) {
	if err := checkSecret(secret); err != nil {
		return nil, fmt.Errorf("cannot validate JWT: %w", err)
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
