package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/pkg/crypto"
)

const issuer = "wlan-sim"

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// JWTManager manages JWT tokens
type JWTManager struct {
	config *config.JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.JWTConfig) *JWTManager {
	return &JWTManager{
		config: cfg,
	}
}

// Claims represents JWT claims
type Claims struct {
	jwt.RegisteredClaims
	Username  string    `json:"username"`
	SessionID uuid.UUID `json:"session_id"`
}

// GenerateTokenPair generates access and refresh tokens for an operator
func (m *JWTManager) GenerateTokenPair(username string) (string, string, error) {
	now := time.Now()
	session := uuid.New()

	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Username:  username,
		SessionID: session,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		ID:        session.String(),
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	return accessTokenString, refreshTokenString, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(m.config.Secret), nil
}

// ValidateToken validates an access token
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, m.keyFunc, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken issues a new token pair from a refresh token
func (m *JWTManager) RefreshToken(refreshTokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(refreshTokenString, &jwt.RegisteredClaims{}, m.keyFunc, jwt.WithIssuer(issuer))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", "", fmt.Errorf("%w: refresh token", ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", "", fmt.Errorf("%w: refresh token without session", ErrInvalidToken)
	}

	return m.GenerateTokenPair(claims.Subject)
}

// Authenticator checks operator credentials against the configured bcrypt hash
type Authenticator struct {
	config *config.AuthConfig
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(cfg *config.AuthConfig) *Authenticator {
	return &Authenticator{config: cfg}
}

// Authenticate returns nil if username and password match
func (a *Authenticator) Authenticate(username, password string) error {
	if a.config.PasswordHash == "" || username != a.config.Username {
		return ErrInvalidCredentials
	}
	if !crypto.VerifyPassword(password, a.config.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}
