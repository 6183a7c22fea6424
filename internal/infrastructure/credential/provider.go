package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSkew            = time.Minute
	DefaultRefreshAttempts = 3
	DefaultRefreshBackoff  = 200 * time.Millisecond
	// DefaultRefreshTimeout bounds one shared refresh including retries
	DefaultRefreshTimeout = 30 * time.Second
)

// RefreshRecorder observes refresh attempts. Implemented by metrics.Metrics.
type RefreshRecorder interface {
	RecordCredentialRefresh(ok bool)
}

// DirectProvider refreshes on every call.
type DirectProvider struct {
	refresher    TokenRefresher
	refreshToken string
}

// NewDirectProvider creates a DirectProvider.
func NewDirectProvider(refresher TokenRefresher, refreshToken string) *DirectProvider {
	return &DirectProvider{refresher: refresher, refreshToken: refreshToken}
}

// AccessToken implements TokenProvider.
func (p *DirectProvider) AccessToken(ctx context.Context) (string, error) {
	tok, err := p.refresher.Refresh(ctx, p.refreshToken)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// CachingProvider serves a cached token until expiry minus skew.
// Concurrent misses share one refresh.
type CachingProvider struct {
	refresher    TokenRefresher
	refreshToken string
	cache        TokenCache
	key          string
	skew         time.Duration
	attempts     int
	backoff      time.Duration
	timeout      time.Duration
	clock        func() time.Time
	logger       *zap.Logger
	recorder     RefreshRecorder
	group        singleflight.Group
}

// CachingOption configures a CachingProvider.
type CachingOption func(*CachingProvider)

// WithCache sets the token cache. Defaults to an in-memory cache.
func WithCache(c TokenCache) CachingOption {
	return func(p *CachingProvider) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithSkew sets how long before expiry a token is considered stale.
func WithSkew(d time.Duration) CachingOption {
	return func(p *CachingProvider) {
		if d >= 0 {
			p.skew = d
		}
	}
}

// WithRetry sets the attempt count and base backoff for transient failures.
func WithRetry(attempts int, backoff time.Duration) CachingOption {
	return func(p *CachingProvider) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff >= 0 {
			p.backoff = backoff
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) CachingOption {
	return func(p *CachingProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CachingOption {
	return func(p *CachingProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the refresh recorder.
func WithRecorder(r RefreshRecorder) CachingOption {
	return func(p *CachingProvider) {
		p.recorder = r
	}
}

// WithCacheKey overrides the cache key. The default is derived from the
// refresh token so distinct accounts never share an entry.
func WithCacheKey(key string) CachingOption {
	return func(p *CachingProvider) {
		if key != "" {
			p.key = key
		}
	}
}

// NewCachingProvider creates a CachingProvider.
func NewCachingProvider(refresher TokenRefresher, refreshToken string, opts ...CachingOption) *CachingProvider {
	sum := sha256.Sum256([]byte(refreshToken))
	p := &CachingProvider{
		refresher:    refresher,
		refreshToken: refreshToken,
		cache:        NewMemoryTokenCache(),
		key:          "token:" + hex.EncodeToString(sum[:8]),
		skew:         DefaultSkew,
		attempts:     DefaultRefreshAttempts,
		backoff:      DefaultRefreshBackoff,
		timeout:      DefaultRefreshTimeout,
		clock:        time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AccessToken implements TokenProvider. A caller whose context ends
// stops waiting, but the shared refresh carries on for the other waiters.
func (p *CachingProvider) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := p.cached(ctx); ok {
		return tok.AccessToken, nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCredentialRefresh, err)
	}

	detached := context.WithoutCancel(ctx)
	ch := p.group.DoChan(p.key, func() (any, error) {
		ctx, cancel := context.WithTimeout(detached, p.timeout)
		defer cancel()

		if tok, ok := p.cached(ctx); ok {
			return tok, nil
		}
		tok, err := p.refreshWithRetry(ctx)
		if err != nil {
			return Token{}, err
		}
		if !tok.Expiry.IsZero() {
			if err := p.cache.Set(ctx, p.key, tok); err != nil {
				p.logger.Warn("token cache write failed", zap.Error(err))
			}
		}
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrCredentialRefresh, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(Token).AccessToken, nil
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (p *CachingProvider) Invalidate(ctx context.Context) error {
	if err := p.cache.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	return nil
}

func (p *CachingProvider) cached(ctx context.Context) (Token, bool) {
	tok, ok, err := p.cache.Get(ctx, p.key)
	if err != nil {
		p.logger.Warn("token cache read failed", zap.Error(err))
		return Token{}, false
	}
	if !ok || !tok.ValidAt(p.clock(), p.skew) {
		return Token{}, false
	}
	return tok, true
}

// refreshWithRetry retries transient failures with exponential backoff.
// Rejections by the token endpoint are returned at once.
func (p *CachingProvider) refreshWithRetry(ctx context.Context) (Token, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.backoff
	policy.RandomizationFactor = 0
	policy.Multiplier = 2

	attempt := 0
	tok, err := backoff.Retry(ctx, func() (Token, error) {
		attempt++
		tok, err := p.refresher.Refresh(ctx, p.refreshToken)
		p.record(err == nil)
		if err != nil && !IsTransient(err) {
			return Token{}, backoff.Permanent(err)
		}
		return tok, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(p.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("credential refresh failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err == nil {
		return tok, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if !errors.Is(err, ErrCredentialRefresh) {
		err = fmt.Errorf("%w: %w", ErrCredentialRefresh, err)
	}
	return Token{}, err
}

func (p *CachingProvider) record(ok bool) {
	if p.recorder != nil {
		p.recorder.RecordCredentialRefresh(ok)
	}
}

var (
	_ TokenProvider = (*DirectProvider)(nil)
	_ TokenProvider = (*CachingProvider)(nil)
)
