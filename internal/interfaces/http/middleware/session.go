package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/infrastructure/auth"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Session context keys
const (
	SessionClaimsKey   = "session_claims"
	SessionOperatorKey = "session_operator"
	AuthHeaderKey      = "Authorization"
	BearerPrefix       = "Bearer "
)

// SessionValidator verifies operator session tokens
type SessionValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// SessionConfig holds configuration for the session middleware
type SessionConfig struct {
	Validator SessionValidator
	// SkipPaths are paths that don't require a session
	SkipPaths []string
	Logger    *zap.Logger
}

// SessionAuth requires a valid bearer session token. The operator named in
// the token is stored on the gin context and in the request context.
func SessionAuth(cfg SessionConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := cfg.Validator.Validate(tokenString)
		if err != nil {
			abortInvalidSession(c, log, err)
			return
		}

		operator := claims.Operator()
		c.Set(SessionClaimsKey, claims)
		c.Set(SessionOperatorKey, operator)
		c.Request = c.Request.WithContext(logger.WithOperator(c.Request.Context(), operator))

		log.Debug("Session authenticated", zap.String("operator", operator))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("Session authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
}

func abortInvalidSession(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("Session authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeTokenInvalid, "Invalid session"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Session has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Session is not yet valid"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetOperator returns the operator authenticated by SessionAuth
func GetOperator(c *gin.Context) string {
	return c.GetString(SessionOperatorKey)
}

// GetSessionClaims returns the claims stored by SessionAuth
func GetSessionClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(SessionClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
