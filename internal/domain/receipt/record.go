package receipt

import (
	"strings"
	"time"

	"github.com/nucleon/receipts/internal/domain/shared"
	"github.com/nucleon/receipts/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Date layouts used on documents, in file names and in the ledger
const (
	DisplayDateLayout  = "02/01/2006"
	FileNameDateLayout = "02.01.2006"
)

// Record is one issued fee transaction. It is created once at issuance,
// appended to the ledger, and never updated afterwards.
type Record struct {
	Number      string          `json:"receipt_number"`
	StudentName string          `json:"student_name"`
	Date        time.Time       `json:"date"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	FeeType     FeeType         `json:"fee_type"`
	Month       Month           `json:"month"`
}

// NewRecord validates the payment details and creates a Record.
// A month supplied with an admission fee is dropped.
func NewRecord(
	number string,
	studentName string,
	date time.Time,
	amount decimal.Decimal,
	feeType FeeType,
	month Month,
) (*Record, error) {
	if number == "" {
		return nil, shared.NewValidationError("receipt_number", "Receipt number cannot be empty")
	}
	if err := ValidatePayment(studentName, date, amount, feeType, month); err != nil {
		return nil, err
	}

	studentName = strings.TrimSpace(studentName)
	if !feeType.RequiresMonth() {
		month = ""
	}

	y, m, d := date.Date()
	return &Record{
		Number:      number,
		StudentName: studentName,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
		AmountPaid:  amount,
		FeeType:     feeType,
		Month:       month,
	}, nil
}

// ValidatePayment checks the payment details without assigning a number.
func ValidatePayment(studentName string, date time.Time, amount decimal.Decimal, feeType FeeType, month Month) error {
	studentName = strings.TrimSpace(studentName)

	if studentName == "" {
		return shared.NewValidationError("student_name", "Student name is required")
	}
	if strings.ContainsAny(studentName, `/\`) {
		return shared.NewValidationError("student_name", "Student name cannot contain path separators")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("amount", "Amount paid must be greater than zero")
	}
	if !valueobject.NewMoney(amount, "").FitsMinorUnits() {
		return shared.NewValidationError("amount", "Amount paid cannot have more than two decimal places")
	}
	if !feeType.IsValid() {
		return shared.NewValidationError("fee_type", "Fee type is not valid")
	}
	if date.IsZero() {
		return shared.NewValidationError("date", "Receipt date is required")
	}
	if feeType.RequiresMonth() && !month.IsValid() {
		return shared.NewValidationError("month", "A valid month is required for tuition fees")
	}
	return nil
}

// Amount returns the amount paid in currency
func (r *Record) Amount(currency valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(r.AmountPaid, currency)
}

// Description returns the line item text printed on the receipt
func (r *Record) Description() string {
	if r.FeeType == FeeTypeAdmission {
		return r.FeeType.String()
	}
	return "Tuition Fees: (" + r.Month.String() + ")"
}

// DisplayDate returns the date as dd/mm/yyyy
func (r *Record) DisplayDate() string {
	return r.Date.Format(DisplayDateLayout)
}

// LedgerDate returns the date in the format written to the ledger
func (r *Record) LedgerDate() string {
	return r.Date.Format(DisplayDateLayout)
}

// DocumentName returns <student>_<Fee_Type>_<dd.mm.yyyy>.pdf
func (r *Record) DocumentName() string {
	return r.StudentName + "_" + r.FeeType.Slug() + "_" + r.Date.Format(FileNameDateLayout) + ".pdf"
}
