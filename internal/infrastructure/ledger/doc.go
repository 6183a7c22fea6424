// Package ledger records issued receipts in an append-only transaction log.
//
// CSVLedger writes a comma separated file with a fixed header and is meant
// for a single writer process. GormLedger stores the same rows in the
// receipt_ledger table of a sqlite or postgres database and rejects
// duplicate receipt numbers.
package ledger
