package credential

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const defaultRefreshTimeout = 30 * time.Second

// RefresherConfig describes the OAuth2 token endpoint and client.
type RefresherConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Refresher exchanges a refresh token at the configured token URL.
// Client credentials are sent in the form body.
type Refresher struct {
	oauth  oauth2.Config
	client *http.Client
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithHTTPClient overrides the HTTP client used for the exchange.
func WithHTTPClient(c *http.Client) RefresherOption {
	return func(r *Refresher) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg RefresherConfig, opts ...RefresherOption) *Refresher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	r := &Refresher{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh performs one grant_type=refresh_token exchange.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	if refreshToken == "" {
		return Token{}, fmt.Errorf("%w: refresh token is empty", ErrCredentialRefresh)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	src := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrCredentialRefresh, err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: response carried no access token", ErrCredentialRefresh)
	}

	return Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}

// IsTransient reports whether a refresh failure is worth retrying:
// network errors and 5xx responses from the token endpoint.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

var _ TokenRefresher = (*Refresher)(nil)
