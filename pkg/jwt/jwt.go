package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidClaim = errors.New("invalid token claims")
)

// Roles carried in the role claim
const (
	RoleClient       = "client"
	RolePsychologist = "psychologist"
)

// UserClaims identifies the caller. Tokens are issued by the identity service;
// this API only verifies them.
type UserClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	// PsychologistID is set when the user owns a psychologist profile
	PsychologistID string `json:"psychologist_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the token subject
func (c *UserClaims) UserID() string {
	return c.Subject
}

// IsPsychologist reports whether the caller acts as a psychologist
func (c *UserClaims) IsPsychologist() bool {
	return c.Role == RolePsychologist && c.PsychologistID != ""
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, issuer string, ttlHours int) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Duration(ttlHours) * time.Hour,
	}
}

// GenerateToken signs a token for a user. Used by tests and local tooling.
func (tm *TokenManager) GenerateToken(userID, name, role, psychologistID string) (string, error) {
	now := time.Now()

	claims := UserClaims{
		Name:           name,
		Role:           role,
		PsychologistID: psychologistID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tm.issuer,
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT token and returns the claims
func (tm *TokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidClaim
	}

	switch claims.Role {
	case RoleClient, RolePsychologist:
	default:
		return nil, ErrInvalidClaim
	}

	return claims, nil
}
