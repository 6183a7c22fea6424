package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/infrastructure/auth"
	"github.com/nucleon/receipts/internal/infrastructure/config"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func newSessionRouter(t *testing.T, validator SessionValidator) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)

	router := gin.New()
	router.Use(RequestID())
	router.Use(SessionAuth(SessionConfig{
		Validator: validator,
		SkipPaths: []string{"/health"},
		Logger:    zap.New(core),
	}))
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"operator":     GetOperator(c),
			"ctx_operator": logger.GetOperator(c.Request.Context()),
			"has_claims":   GetSessionClaims(c) != nil,
		})
	})
	return router, logs
}

func newSessions(t *testing.T, expiration time.Duration) *auth.SessionService {
	t.Helper()
	svc, err := auth.NewSessionService(config.SessionConfig{
		Secret:     testSecret,
		Issuer:     "receipts-test",
		Expiration: expiration,
	})
	require.NoError(t, err)
	return svc
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestSessionAuth_ValidToken(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	router, _ := newSessionRouter(t, sessions)

	token, _, err := sessions.Generate("front-desk")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "front-desk", body["operator"])
	assert.Equal(t, "front-desk", body["ctx_operator"])
	assert.Equal(t, true, body["has_claims"])
}

func TestSessionAuth_SkipPaths(t *testing.T) {
	router, _ := newSessionRouter(t, newSessions(t, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionAuth_Rejections(t *testing.T) {
	sessions := newSessions(t, time.Hour)
	otherSessions, err := auth.NewSessionService(config.SessionConfig{Secret: "another-secret-key-that-is-32-chars-long"})
	require.NoError(t, err)
	foreign, _, err := otherSessions.Generate("intruder")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty token", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"foreign signature", "Bearer " + foreign, dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, logs := newSessionRouter(t, sessions)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, tt.code, errInfo.Code)
			assert.Equal(t, w.Header().Get(RequestIDHeader), errInfo.RequestID)
			assert.Equal(t, 1, logs.FilterMessage("Session authentication failed").Len())
		})
	}
}

type expiredValidator struct{}

func (expiredValidator) Validate(string) (*auth.Claims, error) {
	return nil, auth.ErrExpiredToken
}

func TestSessionAuth_ExpiredToken(t *testing.T) {
	router, _ := newSessionRouter(t, expiredValidator{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, "Bearer whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenExpired, decodeError(t, w).Code)
}
