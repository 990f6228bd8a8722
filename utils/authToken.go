package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
)

const (
	AccessTokenExpiry  = 24 * time.Hour
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

var (
	ErrTokenExpired           = errors.New("token expired")
	ErrInsufficientPermission = errors.New("insufficient permissions")
)

// TokenClaims is the payload carried inside every token.
type TokenClaims struct {
	UserID uint      `json:"userId"`
	Role   string    `json:"role"`
	Expiry time.Time `json:"expiry"`
}

// TokenMaker issues and verifies PASETO v2 local tokens.
type TokenMaker struct {
	key []byte
	now func() time.Time
}

// NewTokenMaker builds a TokenMaker. The symmetric key must be 32 bytes.
func NewTokenMaker(symmetricKey string, now func() time.Time) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be 32 bytes long, got %d", len(symmetricKey))
	}
	if now == nil {
		now = time.Now
	}
	return &TokenMaker{key: []byte(symmetricKey), now: now}, nil
}

// GenerateTokens generates both the access token and refresh token for the given user.
func (m *TokenMaker) GenerateTokens(userID uint, role string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.generate(userID, role, AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = m.generate(userID, role, RefreshTokenExpiry)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateAccessToken generates only the access token for a user.
func (m *TokenMaker) GenerateAccessToken(userID uint, role string) (string, error) {
	return m.generate(userID, role, AccessTokenExpiry)
}

func (m *TokenMaker) generate(userID uint, role string, expiry time.Duration) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		Expiry: m.now().Add(expiry),
	}
	token, err := paseto.NewV2().Encrypt(m.key, claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ValidateToken decrypts the token, checks expiry and, when roles are given,
// requires the token role to be one of them.
func (m *TokenMaker) ValidateToken(tokenString string, requiredRoles ...string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(tokenString, m.key, &claims, nil); err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	if m.now().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}

	if len(requiredRoles) == 0 {
		return &claims, nil
	}
	for _, role := range requiredRoles {
		if claims.Role == role {
			return &claims, nil
		}
	}
	return nil, ErrInsufficientPermission
}
