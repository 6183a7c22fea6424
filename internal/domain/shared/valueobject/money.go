package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	INR Currency = "INR" // Indian Rupee (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = INR

// MinorUnitPlaces is the number of decimal places of every supported
// currency
const MinorUnitPlaces = 2

var currencySymbols = map[Currency]string{
	INR: "₹",
	USD: "$",
	EUR: "€",
	GBP: "£",
}

// ParseCurrency parses a supported ISO 4217 code, case-insensitively
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := currencySymbols[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// Symbol returns the display symbol for the currency, or the code itself
// when no symbol is known
func (c Currency) Symbol() string {
	if s, ok := currencySymbols[c]; ok {
		return s
	}
	return string(c)
}

// Money is a value object representing monetary amounts
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money. An empty currency means DefaultCurrency.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: amount, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// FitsMinorUnits reports whether the amount has no more decimal places
// than the currency's minor unit. 10.50 fits, 10.005 does not.
func (m Money) FitsMinorUnits() bool {
	return m.amount.Equal(m.amount.Round(MinorUnitPlaces))
}

// String returns the amount and code, e.g. "1234.50 INR"
func (m Money) String() string {
	return m.amount.StringFixed(MinorUnitPlaces) + " " + string(m.currency)
}

// Format renders the amount the way it is printed on receipts: symbol, a
// single space, and exactly two decimals, e.g. "₹ 1234.50". There are no
// thousands separators and the output does not depend on locale. An empty
// symbol means the currency's own symbol.
func (m Money) Format(symbol string) string {
	if symbol == "" {
		symbol = m.currency.Symbol()
	}
	return symbol + " " + m.amount.StringFixed(MinorUnitPlaces)
}
