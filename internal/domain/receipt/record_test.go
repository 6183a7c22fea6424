package receipt

import (
	"errors"
	"testing"
	"time"

	"github.com/nucleon/receipts/internal/domain/shared"
	"github.com/nucleon/receipts/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, time.March, 7, 14, 35, 10, 0, time.UTC)

func createTestRecord(t *testing.T, feeType FeeType, month Month) *Record {
	t.Helper()
	rec, err := NewRecord("2026030714350001", "Asha Verma", testDate, decimal.RequireFromString("1500"), feeType, month)
	require.NoError(t, err)
	return rec
}

func TestNewRecord(t *testing.T) {
	t.Run("creates tuition record", func(t *testing.T) {
		rec := createTestRecord(t, FeeTypeTuition, "March")
		assert.Equal(t, "2026030714350001", rec.Number)
		assert.Equal(t, "Asha Verma", rec.StudentName)
		assert.Equal(t, Month("March"), rec.Month)
		assert.Equal(t, time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC), rec.Date)
	})

	t.Run("drops month for admission fee", func(t *testing.T) {
		rec := createTestRecord(t, FeeTypeAdmission, "March")
		assert.Empty(t, rec.Month)
	})

	t.Run("trims student name", func(t *testing.T) {
		rec, err := NewRecord("1", "  Ravi  ", testDate, decimal.NewFromInt(1), FeeTypeAdmission, "")
		require.NoError(t, err)
		assert.Equal(t, "Ravi", rec.StudentName)
	})
}

func TestNewRecord_Validation(t *testing.T) {
	tests := []struct {
		name    string
		number  string
		student string
		date    time.Time
		amount  decimal.Decimal
		feeType FeeType
		month   Month
		field   string
	}{
		{"empty number", "", "Asha", testDate, decimal.NewFromInt(10), FeeTypeAdmission, "", "receipt_number"},
		{"empty student", "1", "", testDate, decimal.NewFromInt(10), FeeTypeAdmission, "", "student_name"},
		{"blank student", "1", "   ", testDate, decimal.NewFromInt(10), FeeTypeAdmission, "", "student_name"},
		{"student with slash", "1", "a/b", testDate, decimal.NewFromInt(10), FeeTypeAdmission, "", "student_name"},
		{"zero amount", "1", "Asha", testDate, decimal.Zero, FeeTypeAdmission, "", "amount"},
		{"negative amount", "1", "Asha", testDate, decimal.NewFromInt(-5), FeeTypeAdmission, "", "amount"},
		{"amount below one paisa", "1", "Asha", testDate, decimal.RequireFromString("0.004"), FeeTypeAdmission, "", "amount"},
		{"amount with three decimals", "1", "Asha", testDate, decimal.RequireFromString("10.005"), FeeTypeAdmission, "", "amount"},
		{"unknown fee type", "1", "Asha", testDate, decimal.NewFromInt(10), FeeType("Bus Fee"), "", "fee_type"},
		{"missing date", "1", "Asha", time.Time{}, decimal.NewFromInt(10), FeeTypeAdmission, "", "date"},
		{"tuition without month", "1", "Asha", testDate, decimal.NewFromInt(10), FeeTypeTuition, "", "month"},
		{"tuition with bad month", "1", "Asha", testDate, decimal.NewFromInt(10), FeeTypeTuition, "Smarch", "month"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewRecord(tt.number, tt.student, tt.date, tt.amount, tt.feeType, tt.month)
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, shared.ErrValidation))

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.field, domainErr.Field)
		})
	}
}

func TestNewRecord_TrailingZerosAllowed(t *testing.T) {
	rec, err := NewRecord("1", "Asha", testDate, decimal.RequireFromString("10.500"), FeeTypeAdmission, "")
	require.NoError(t, err)
	assert.Equal(t, "₹ 10.50", rec.Amount("").Format(""))
	assert.Equal(t, "10.50 USD", rec.Amount(valueobject.USD).String())
}

func TestRecord_Description(t *testing.T) {
	t.Run("admission uses fee type name", func(t *testing.T) {
		rec := createTestRecord(t, FeeTypeAdmission, "")
		assert.Equal(t, "Admission Fee", rec.Description())
	})

	for _, m := range AllMonths() {
		t.Run("tuition "+m.String(), func(t *testing.T) {
			rec := createTestRecord(t, FeeTypeTuition, m)
			assert.Equal(t, "Tuition Fees: ("+m.String()+")", rec.Description())
		})
	}
}

func TestRecord_Names(t *testing.T) {
	rec := createTestRecord(t, FeeTypeTuition, "March")
	assert.Equal(t, "07/03/2026", rec.DisplayDate())
	assert.Equal(t, "07/03/2026", rec.LedgerDate())
	assert.Equal(t, "Asha Verma_Tuition_Fee_07.03.2026.pdf", rec.DocumentName())

	adm := createTestRecord(t, FeeTypeAdmission, "")
	assert.Equal(t, "Asha Verma_Admission_Fee_07.03.2026.pdf", adm.DocumentName())
}

func TestValidatePayment(t *testing.T) {
	date := time.Date(2026, time.March, 7, 15, 4, 0, 0, time.UTC)

	assert.NoError(t, ValidatePayment(" Asha ", date, decimal.NewFromInt(10), FeeTypeAdmission, "not-a-month"))
	assert.NoError(t, ValidatePayment("Asha", date, decimal.NewFromInt(10), FeeTypeTuition, "March"))

	err := ValidatePayment("Asha", date, decimal.Zero, FeeTypeAdmission, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = ValidatePayment("Asha", date, decimal.NewFromInt(10), FeeTypeTuition, "")
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "month", de.Field)
}
