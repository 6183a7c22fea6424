package printing

import (
	"testing"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRecord(t *testing.T, feeType receipt.FeeType, month receipt.Month) *receipt.Record {
	t.Helper()
	rec, err := receipt.NewRecord(
		"2026101509300001",
		"Asha Verma",
		time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC),
		decimal.RequireFromString("1234.5"),
		feeType,
		month,
	)
	require.NoError(t, err)
	return rec
}

func testProfile() receipt.BrandingProfile {
	return receipt.BrandingProfile{
		OrganizationName: "Nucleon Kota",
		AddressLines:     []string{"Shantiniketan", "Bolpur"},
		FooterThanks:     "Thank you!",
		FooterURL:        "www.example.com",
		WatermarkText:    "Nucleon Kota",
		CurrencySymbol:   "₹",
	}
}

func elementsByName(els []Element) map[string][]Element {
	out := make(map[string][]Element)
	for _, el := range els {
		out[el.Name] = append(out[el.Name], el)
	}
	return out
}

func TestLayout_Positions(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeTuition, "October")
	els := elementsByName(Layout(rec, testProfile(), Letter))

	tests := []struct {
		name  string
		text  string
		style FontStyle
		size  float64
		x, y  float64
	}{
		{"title", "RECEIPT", StyleBold, 16, 230, 50},
		{"number", "Receipt #: 2026101509300001", StyleRegular, 12, 400, 80},
		{"from", "FROM", StyleBold, 12, 50, 120},
		{"organization", "Nucleon Kota", StyleRegular, 10, 50, 140},
		{"bill_to", "BILL TO - Asha Verma", StyleBold, 12, 50, 200},
		{"date_label", "DATE", StyleBold, 12, 50, 230},
		{"date", "15/10/2026", StyleRegular, 10, 50, 245},
		{"paid_label", "BALANCE PAID", StyleBold, 12, 400, 230},
		{"paid", "₹ 1234.50", StyleRegular, 15, 400, 245},
		{"description_label", "DESCRIPTION", StyleBold, 12, 50, 280},
		{"total_label", "TOTAL", StyleBold, 12, 450, 280},
		{"description", "Tuition Fees: (October)", StyleRegular, 10, 50, 300},
		{"total", "₹ 1234.50", StyleRegular, 10, 450, 300},
		{"footer_thanks", "Thank you!", StyleItalic, 10, 50, 720},
		{"footer_url", "www.example.com", StyleItalic, 10, 50, 735},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, els[tt.name], 1)
			el := els[tt.name][0]
			assert.Equal(t, tt.text, el.Text)
			assert.Equal(t, tt.style, el.Style)
			assert.Equal(t, tt.size, el.Size)
			assert.Equal(t, tt.x, el.X)
			assert.Equal(t, tt.y, el.Y)
			assert.Equal(t, 1.0, el.Alpha)
			assert.False(t, el.Centered)
		})
	}
}

func TestLayout_AddressLines(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	address := elementsByName(Layout(rec, testProfile(), Letter))["address"]

	require.Len(t, address, 2)
	assert.Equal(t, "Shantiniketan", address[0].Text)
	assert.Equal(t, 154.0, address[0].Y)
	assert.Equal(t, "Bolpur", address[1].Text)
	assert.Equal(t, 168.0, address[1].Y)
}

func TestLayout_Watermark(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	els := Layout(rec, testProfile(), Letter)

	wm := els[len(els)-1]
	assert.Equal(t, "watermark", wm.Name)
	assert.Equal(t, "Nucleon Kota", wm.Text)
	assert.Equal(t, 70.0, wm.Size)
	assert.Equal(t, 0.1, wm.Alpha)
	assert.Equal(t, 396.0, wm.Y)
	assert.True(t, wm.Centered)
}

func TestLayout_AdmissionDescription(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	els := elementsByName(Layout(rec, testProfile(), Letter))
	assert.Equal(t, "Admission Fee", els["description"][0].Text)
}

func TestLayout_OptionalFooter(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	profile := testProfile()
	profile.FooterThanks = ""
	profile.FooterURL = ""
	profile.AddressLines = nil

	els := elementsByName(Layout(rec, profile, Letter))
	assert.Empty(t, els["footer_thanks"])
	assert.Empty(t, els["footer_url"])
	assert.Empty(t, els["address"])
}

func TestLayout_CurrencySymbol(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	profile := testProfile()
	profile.CurrencySymbol = "Rs."

	els := elementsByName(Layout(rec, profile, Letter))
	assert.Equal(t, "Rs. 1234.50", els["paid"][0].Text)
	assert.Equal(t, "Rs. 1234.50", els["total"][0].Text)
}

func TestLayout_CurrencyWithoutSymbol(t *testing.T) {
	rec := createTestRecord(t, receipt.FeeTypeAdmission, "")
	profile := testProfile()
	profile.Currency = valueobject.GBP
	profile.CurrencySymbol = ""

	els := elementsByName(Layout(rec, profile, Letter))
	assert.Equal(t, "£ 1234.50", els["paid"][0].Text)
}
