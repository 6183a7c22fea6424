package issuance

import (
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/shopspring/decimal"
)

// IssueRequest carries the payment details entered by the operator
type IssueRequest struct {
	StudentName string
	Amount      decimal.Decimal
	FeeType     string
	Month       string
	// Date defaults to today in the service location
	Date time.Time
}

// IssueResult is returned for every issue that got past validation and
// rendering, including those whose ledger write or storage failed.
type IssueResult struct {
	Record   *receipt.Record
	Document receipt.Document
	// Recorded is set once the ledger row is written
	Recorded bool
	// Storage is the zero value when the ledger write failed
	Storage receipt.StorageResult
	Backend string
}

// Uploaded reports whether a remote copy exists
func (r *IssueResult) Uploaded() bool {
	return r.Storage.Uploaded()
}

// Link returns the shareable link, empty when there is none
func (r *IssueResult) Link() string {
	if !r.Storage.OK() {
		return ""
	}
	return r.Storage.Link
}

// StorageMessage is the operator-facing storage outcome. Failure details
// are logged by the service, not repeated here.
func (r *IssueResult) StorageMessage() string {
	switch {
	case !r.Recorded:
		return "Receipt generated but not recorded; download it and report the ledger failure"
	case r.Storage.Fatal():
		return "Receipt generated and recorded but could not be saved; download it now"
	case !r.Storage.OK():
		return "Receipt generated but could not be uploaded"
	case r.Storage.Uploaded():
		return "Receipt uploaded to " + r.Storage.Location
	default:
		return "Receipt saved to " + r.Storage.Location
	}
}
