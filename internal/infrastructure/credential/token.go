package credential

import (
	"context"
	"errors"
	"time"
)

// ErrCredentialRefresh is returned when the token endpoint rejects or fails
// a refresh-token exchange.
var ErrCredentialRefresh = errors.New("credential refresh failed")

// Token is a short-lived access token.
// A zero Expiry means the endpoint did not report a lifetime.
type Token struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

// ValidAt reports whether the token is usable at now with skew to spare.
func (t Token) ValidAt(now time.Time, skew time.Duration) bool {
	if t.AccessToken == "" || t.Expiry.IsZero() {
		return false
	}
	return now.Add(skew).Before(t.Expiry)
}

// TokenProvider yields a bearer token for API calls.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenRefresher performs a single refresh-token exchange.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}
