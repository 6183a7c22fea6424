package dto

import "github.com/shopspring/decimal"

// Response headers describing where an issued receipt was stored
const (
	HeaderReceiptNumber   = "X-Receipt-Number"
	HeaderStorageStatus   = "X-Storage-Status"
	HeaderStorageLocation = "X-Storage-Location"
	HeaderStorageMessage  = "X-Storage-Message"
	HeaderShareLink       = "X-Share-Link"
	// set when the PDF is served alongside a ledger or storage failure
	HeaderErrorCode    = "X-Error-Code"
	HeaderErrorMessage = "X-Error-Message"
)

// X-Storage-Status values
const (
	StorageStatusStored = "stored"
	StorageStatusFailed = "failed"
	// the ledger write failed so storage was never attempted
	StorageStatusSkipped = "skipped"
)

// IssueReceiptRequest is the body of POST /api/v1/receipts
type IssueReceiptRequest struct {
	StudentName string          `json:"student_name" binding:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	FeeType     string          `json:"fee_type" binding:"required,max=50"`
	Month       string          `json:"month" binding:"omitempty,max=20"`
	// Date is optional, dd/mm/yyyy
	Date string `json:"date" binding:"omitempty,datetime=02/01/2006"`
}
