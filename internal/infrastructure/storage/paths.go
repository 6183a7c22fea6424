// Package storage persists rendered receipts to the local filesystem, a
// cloud file API or an S3-compatible object store.
package storage

import (
	"fmt"
	"path"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"golang.org/x/text/unicode/norm"
)

// ObjectPath returns the slash-separated relative location of a receipt:
// <yyyy>/<mm>/<document name>. The name is NFC-normalized so the same
// student name always maps to the same object.
func ObjectPath(rec *receipt.Record) string {
	return path.Join(
		fmt.Sprintf("%04d", rec.Date.Year()),
		fmt.Sprintf("%02d", int(rec.Date.Month())),
		norm.NFC.String(rec.DocumentName()),
	)
}
