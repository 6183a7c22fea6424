// Package credential exchanges long-lived refresh tokens for short-lived
// access tokens used by the cloud storage backend.
//
// DirectProvider performs one exchange per call. CachingProvider keeps the
// token until shortly before it expires, collapses concurrent refreshes and
// retries transient failures. Tokens may be shared between processes through
// RedisTokenCache.
package credential
