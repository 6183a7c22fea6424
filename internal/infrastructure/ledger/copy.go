package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/nucleon/receipts/internal/domain/receipt"
)

// CopyStats summarizes a Copy run
type CopyStats struct {
	Read       int
	Copied     int
	Duplicates int
}

// Copy appends every record of src to dst in order. Records whose number
// dst already holds are counted and skipped, so a copy can be re-run.
func Copy(ctx context.Context, src receipt.LedgerReader, dst receipt.Ledger) (CopyStats, error) {
	var stats CopyStats

	records, err := src.Records(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source ledger: %w", err)
	}
	stats.Read = len(records)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := dst.Append(ctx, &records[i]); err != nil {
			if errors.Is(err, ErrDuplicateNumber) {
				stats.Duplicates++
				continue
			}
			return stats, fmt.Errorf("copy receipt %s: %w", records[i].Number, err)
		}
		stats.Copied++
	}
	return stats, nil
}
