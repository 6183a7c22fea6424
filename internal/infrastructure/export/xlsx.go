// Package export renders the receipt ledger as a spreadsheet.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/infrastructure/ledger"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the worksheet holding the ledger rows
const SheetName = "Ledger"

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var columnWidths = []float64{16, 28, 12, 14, 16, 12}

// Exporter writes ledger records to an XLSX workbook.
type Exporter struct {
	reader receipt.LedgerReader
	logger *zap.Logger
}

// NewExporter creates an Exporter over reader.
func NewExporter(reader receipt.LedgerReader, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{reader: reader, logger: logger}
}

// XLSX returns the workbook bytes and the number of data rows.
// Columns follow the ledger column order; amounts are numeric cells.
func (e *Exporter) XLSX(ctx context.Context) ([]byte, int, error) {
	start := time.Now()

	records, err := e.reader.Records(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, 0, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, 0, fmt.Errorf("create header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, 0, fmt.Errorf("create amount style: %w", err)
	}

	headers := make([]any, len(ledger.Columns))
	for i, c := range ledger.Columns {
		headers[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return nil, 0, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ledger.Columns))
	_ = f.SetCellStyle(SheetName, "A1", lastCol+"1", header)

	for i := range records {
		rec := &records[i]
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{
			rec.Number,
			rec.StudentName,
			rec.LedgerDate(),
			rec.AmountPaid.InexactFloat64(),
			rec.FeeType.String(),
			rec.Month.String(),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, 0, fmt.Errorf("write row %d: %w", row, err)
		}
	}
	if len(records) > 0 {
		last := fmt.Sprintf("D%d", len(records)+1)
		_ = f.SetCellStyle(SheetName, "D2", last, amount)
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, col, col, w)
	}
	_ = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("ledger exported",
		zap.Int("rows", len(records)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), len(records), nil
}
