// Package auth issues and verifies operator session tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nucleon/receipts/internal/infrastructure/config"
)

const defaultSessionExpiration = 12 * time.Hour

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingOperator  = errors.New("missing operator in claims")
	ErrMissingSecret    = errors.New("session secret is required")
)

// Claims are the session token claims. The subject is the operator.
type Claims struct {
	jwt.RegisteredClaims
}

// Operator returns the operator the session belongs to
func (c *Claims) Operator() string {
	return c.Subject
}

// SessionService signs and verifies HS256 session tokens
type SessionService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	clock      func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(cfg config.SessionConfig) (*SessionService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	expiration := cfg.Expiration
	if expiration <= 0 {
		expiration = defaultSessionExpiration
	}
	return &SessionService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
		clock:      time.Now,
	}, nil
}

// Generate signs a session token for operator and returns its expiry
func (s *SessionService) Generate(operator string) (string, time.Time, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", time.Time{}, ErrMissingOperator
	}

	now := s.clock()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate verifies a session token and returns its claims
func (s *SessionService) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Operator() == "" {
		return nil, ErrMissingOperator
	}
	return claims, nil
}

// Expiration returns the session lifetime
func (s *SessionService) Expiration() time.Duration {
	return s.expiration
}
