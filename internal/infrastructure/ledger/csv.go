package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CSVLedger appends receipts to a CSV file. Appends from one process are
// serialised; running several writer processes against the same file is
// not supported.
type CSVLedger struct {
	path     string
	location *time.Location
	logger   *zap.Logger

	mu sync.Mutex
}

// CSVOption configures a CSVLedger
type CSVOption func(*CSVLedger)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) CSVOption {
	return func(l *CSVLedger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLocation sets the time zone used when reading dates back
func WithLocation(loc *time.Location) CSVOption {
	return func(l *CSVLedger) {
		if loc != nil {
			l.location = loc
		}
	}
}

// NewCSVLedger creates a ledger backed by the file at path
func NewCSVLedger(path string, opts ...CSVOption) *CSVLedger {
	l := &CSVLedger{
		path:     path,
		location: time.Local,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the ledger file path
func (l *CSVLedger) Path() string {
	return l.path
}

// Append writes one row, preceded by the header when the file is new or empty
func (l *CSVLedger) Append(ctx context.Context, rec *receipt.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", receipt.ErrLedgerWrite, err)
	}
	if rec == nil {
		return fmt.Errorf("%w: nil record", receipt.ErrLedgerWrite)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create directory %s: %w", receipt.ErrLedgerWrite, dir, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", receipt.ErrLedgerWrite, l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", receipt.ErrLedgerWrite, l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("%w: write header: %w", receipt.ErrLedgerWrite, err)
		}
	}
	if err := w.Write(Row(rec)); err != nil {
		return fmt.Errorf("%w: write row: %w", receipt.ErrLedgerWrite, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %w", receipt.ErrLedgerWrite, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", receipt.ErrLedgerWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", receipt.ErrLedgerWrite, err)
	}

	l.logger.Debug("ledger row appended",
		zap.String("receipt_number", rec.Number),
		zap.String("path", l.path))
	return nil
}

// Records reads every row back. A missing file is an empty ledger.
func (l *CSVLedger) Records(ctx context.Context) ([]receipt.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []receipt.Record{}, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []receipt.Record{}, nil
		}
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	if !slices.Equal(header, Columns) {
		return nil, fmt.Errorf("%w: got %v", ErrSchemaMismatch, header)
	}

	var records []receipt.Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		rec, err := l.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse ledger line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []receipt.Record{}
	}
	return records, nil
}

func (l *CSVLedger) parseRow(row []string) (receipt.Record, error) {
	date, err := time.ParseInLocation(receipt.DisplayDateLayout, row[2], l.location)
	if err != nil {
		return receipt.Record{}, fmt.Errorf("date %q: %w", row[2], err)
	}
	amount, err := decimal.NewFromString(row[3])
	if err != nil {
		return receipt.Record{}, fmt.Errorf("amount %q: %w", row[3], err)
	}
	return receipt.Record{
		Number:      row[0],
		StudentName: row[1],
		Date:        date,
		AmountPaid:  amount,
		FeeType:     receipt.FeeType(row[4]),
		Month:       receipt.Month(row[5]),
	}, nil
}

var (
	_ receipt.Ledger       = (*CSVLedger)(nil)
	_ receipt.LedgerReader = (*CSVLedger)(nil)
)
