package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"go.uber.org/zap"
)

// DefaultLocalBasePath is used when no base path is configured.
const DefaultLocalBasePath = "receipts"

// LocalStorage writes receipts below a base directory.
// Re-issuing the same receipt overwrites the previous file.
type LocalStorage struct {
	basePath string
	logger   *zap.Logger
}

// LocalOption configures LocalStorage
type LocalOption func(*LocalStorage)

// WithLocalLogger sets the logger
func WithLocalLogger(l *zap.Logger) LocalOption {
	return func(s *LocalStorage) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLocalStorage creates a LocalStorage rooted at basePath.
func NewLocalStorage(basePath string, opts ...LocalOption) *LocalStorage {
	if basePath == "" {
		basePath = DefaultLocalBasePath
	}
	s := &LocalStorage{basePath: basePath, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements receipt.StorageBackend
func (s *LocalStorage) Name() string { return "local" }

// BasePath returns the root directory
func (s *LocalStorage) BasePath() string { return s.basePath }

// Persist implements receipt.StorageBackend
func (s *LocalStorage) Persist(ctx context.Context, doc receipt.Document, rec *receipt.Record) receipt.StorageResult {
	if err := ctx.Err(); err != nil {
		return receipt.StorageFailed(fmt.Errorf("%w: %w", receipt.ErrLocalStorage, err))
	}
	if rec == nil {
		return receipt.StorageFailed(fmt.Errorf("%w: record is nil", receipt.ErrLocalStorage))
	}
	if doc.IsEmpty() {
		return receipt.StorageFailed(fmt.Errorf("%w: document is empty", receipt.ErrLocalStorage))
	}

	dest := filepath.Join(s.basePath, filepath.FromSlash(ObjectPath(rec)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return receipt.StorageFailed(fmt.Errorf("%w: create directory: %w", receipt.ErrLocalStorage, err))
	}
	if err := os.WriteFile(dest, doc.Bytes(), 0o644); err != nil {
		return receipt.StorageFailed(fmt.Errorf("%w: write %s: %w", receipt.ErrLocalStorage, dest, err))
	}

	s.logger.Debug("receipt stored",
		zap.String("receipt_number", rec.Number),
		zap.String("path", dest),
		zap.Int("bytes", doc.Len()),
	)
	return receipt.Stored(receipt.LocationPath, dest)
}

var _ receipt.StorageBackend = (*LocalStorage)(nil)
