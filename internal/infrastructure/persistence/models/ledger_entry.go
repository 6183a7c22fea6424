// Package models holds the GORM persistence models.
package models

import (
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/shopspring/decimal"
)

// LedgerEntryModel is one row of the receipt ledger
type LedgerEntryModel struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"`
	ReceiptNumber string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	StudentName   string          `gorm:"type:varchar(200);not null;index"`
	Date          time.Time       `gorm:"type:date;not null;index"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FeeType       string          `gorm:"type:varchar(32);not null"`
	Month         string          `gorm:"type:varchar(16)"`
	SchemaVersion int             `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "receipt_ledger"
}

// ToDomain converts the model to a receipt record
func (m *LedgerEntryModel) ToDomain() receipt.Record {
	return receipt.Record{
		Number:      m.ReceiptNumber,
		StudentName: m.StudentName,
		Date:        m.Date,
		AmountPaid:  m.AmountPaid,
		FeeType:     receipt.FeeType(m.FeeType),
		Month:       receipt.Month(m.Month),
	}
}

// LedgerEntryModelFromDomain converts a receipt record to a model
func LedgerEntryModelFromDomain(rec *receipt.Record, schemaVersion int) *LedgerEntryModel {
	y, mo, d := rec.Date.Date()
	return &LedgerEntryModel{
		ReceiptNumber: rec.Number,
		StudentName:   rec.StudentName,
		Date:          time.Date(y, mo, d, 0, 0, 0, 0, time.UTC),
		AmountPaid:    rec.AmountPaid.Round(2),
		FeeType:       rec.FeeType.String(),
		Month:         rec.Month.String(),
		SchemaVersion: schemaVersion,
	}
}
