package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func baseS3Config() *config.S3StorageConfig {
	return &config.S3StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
}

func TestNewS3Storage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Storage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := baseS3Config()
		cfg.Bucket = ""
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := baseS3Config()
		cfg.AccessKey = ""
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := baseS3Config()
		cfg.SecretKey = ""
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("presign expiration above seven days", func(t *testing.T) {
		cfg := baseS3Config()
		cfg.PresignExpiration = 8 * 24 * time.Hour
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "7 day limit")
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := baseS3Config()
		cfg.Endpoint = "localhost:9000"
		storage, err := NewS3Storage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", storage.Bucket())
		assert.Equal(t, defaultPresignExpiration, storage.presignExpiration)
		assert.Equal(t, "receipts", storage.prefix)
		assert.Equal(t, "s3", storage.Name())
	})
}

func TestS3StorageOptions(t *testing.T) {
	t.Run("WithS3Logger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		storage, err := NewS3Storage(baseS3Config(), WithS3Logger(logger))
		require.NoError(t, err)
		assert.Same(t, logger, storage.logger)
	})

	t.Run("WithPresignExpiration sets custom duration", func(t *testing.T) {
		storage, err := NewS3Storage(baseS3Config(), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, storage.presignExpiration)
	})
}

func TestS3Storage_ObjectKey(t *testing.T) {
	rec := createTestRecord(t, "Asha Verma")

	cfg := baseS3Config()
	cfg.Prefix = "/school/receipts/"
	storage, err := NewS3Storage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "school/receipts/2026/03/Asha Verma_Tuition_Fee_07.03.2026.pdf", storage.ObjectKey(rec))
}

type fakeS3 struct {
	mu     sync.Mutex
	method string
	path   string
	body   string
	ctype  string
	status int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := io.ReadAll(r.Body)
	f.method = r.Method
	f.path = r.URL.Path
	f.body = string(raw)
	f.ctype = r.Header.Get("Content-Type")

	if f.status != 0 {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(f.status)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
		return
	}
	w.Header().Set("ETag", `"abc123"`)
	w.WriteHeader(http.StatusOK)
}

func newS3Fixture(t *testing.T, f *fakeS3) *S3Storage {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg := baseS3Config()
	cfg.Endpoint = srv.URL
	cfg.UsePathStyle = true
	cfg.PresignExpiration = time.Hour
	storage, err := NewS3Storage(cfg)
	require.NoError(t, err)
	return storage
}

func TestS3Storage_Persist(t *testing.T) {
	f := &fakeS3{}
	storage := newS3Fixture(t, f)
	rec := createTestRecord(t, "Asha Verma")

	res := storage.Persist(context.Background(), receipt.NewDocument(testPDF), rec)
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.True(t, res.Uploaded())
	assert.Equal(t, "receipts/2026/03/Asha Verma_Tuition_Fee_07.03.2026.pdf", res.Location)

	f.mu.Lock()
	assert.Equal(t, http.MethodPut, f.method)
	assert.Equal(t, "/test-bucket/receipts/2026/03/Asha Verma_Tuition_Fee_07.03.2026.pdf", f.path)
	assert.Contains(t, f.body, "receipt body")
	assert.Equal(t, "application/pdf", f.ctype)
	f.mu.Unlock()

	link, err := url.Parse(res.Link)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.Path, "/test-bucket/receipts/2026/03/"))
	assert.Equal(t, "3600", link.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, link.Query().Get("X-Amz-Signature"))
}

func TestS3Storage_PersistFailure(t *testing.T) {
	storage := newS3Fixture(t, &fakeS3{status: http.StatusForbidden})

	res := storage.Persist(context.Background(), receipt.NewDocument(testPDF), createTestRecord(t, "Asha Verma"))
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, receipt.ErrUpload)
	assert.False(t, res.Fatal())
	assert.Empty(t, res.Link)
}

func TestS3Storage_EmptyDocument(t *testing.T) {
	storage, err := NewS3Storage(baseS3Config())
	require.NoError(t, err)

	res := storage.Persist(context.Background(), receipt.NewDocument(nil), createTestRecord(t, "Asha Verma"))
	assert.ErrorIs(t, res.Err, receipt.ErrUpload)
}
