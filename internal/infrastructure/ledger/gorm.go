package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormLedger stores receipts in the receipt_ledger table
type GormLedger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormLedger creates a ledger on db. Call Migrate before first use.
func NewGormLedger(db *gorm.DB, logger *zap.Logger) *GormLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormLedger{db: db, logger: logger}
}

// Migrate creates or updates the receipt_ledger table
func (l *GormLedger) Migrate(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&models.LedgerEntryModel{}); err != nil {
		return fmt.Errorf("migrate receipt_ledger: %w", err)
	}
	return nil
}

// Append inserts one row. A receipt number that is already present fails
// with ErrDuplicateNumber.
func (l *GormLedger) Append(ctx context.Context, rec *receipt.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", receipt.ErrLedgerWrite)
	}

	model := models.LedgerEntryModelFromDomain(rec, SchemaVersion)
	if err := l.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w: %s", receipt.ErrLedgerWrite, ErrDuplicateNumber, rec.Number)
		}
		return fmt.Errorf("%w: %w", receipt.ErrLedgerWrite, err)
	}

	l.logger.Debug("ledger row inserted",
		zap.String("receipt_number", rec.Number),
		zap.Uint("id", model.ID))
	return nil
}

// Records returns every row in insertion order
func (l *GormLedger) Records(ctx context.Context) ([]receipt.Record, error) {
	var rows []models.LedgerEntryModel
	if err := l.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list receipt_ledger: %w", err)
	}

	records := make([]receipt.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

var (
	_ receipt.Ledger       = (*GormLedger)(nil)
	_ receipt.LedgerReader = (*GormLedger)(nil)
)
