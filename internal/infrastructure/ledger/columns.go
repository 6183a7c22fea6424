package ledger

import (
	"errors"

	"github.com/nucleon/receipts/internal/domain/receipt"
)

// SchemaVersion is bumped whenever Columns changes
const SchemaVersion = 1

// Columns is the fixed ledger column order
var Columns = []string{"ReceiptNumber", "StudentName", "Date", "AmountPaid", "FeeType", "Month"}

var (
	// ErrSchemaMismatch is returned when an existing ledger has a different header
	ErrSchemaMismatch = errors.New("ledger header does not match schema")
	// ErrDuplicateNumber is returned when a receipt number is already recorded
	ErrDuplicateNumber = errors.New("receipt number already recorded")
)

// Row returns the ledger row for rec in Columns order
func Row(rec *receipt.Record) []string {
	return []string{
		rec.Number,
		rec.StudentName,
		rec.LedgerDate(),
		rec.AmountPaid.StringFixed(2),
		rec.FeeType.String(),
		rec.Month.String(),
	}
}
