package receipt

import (
	"sort"
	"strings"

	"github.com/nucleon/receipts/internal/domain/shared"
	"github.com/nucleon/receipts/internal/domain/shared/valueobject"
)

// DefaultCurrencyFallback is printed when the font has no glyph for the
// currency symbol
const DefaultCurrencyFallback = "Rs."

// FontSet points at UTF-8 TrueType fonts. When empty the renderer uses
// its embedded font.
type FontSet struct {
	Family  string `mapstructure:"family"`
	Regular string `mapstructure:"regular"`
	Bold    string `mapstructure:"bold"`
	Italic  string `mapstructure:"italic"`
}

// IsZero reports whether no font files are configured
func (f FontSet) IsZero() bool {
	return f.Regular == ""
}

// BrandingProfile is the organization identity printed on receipts.
// It is selected once per deployment.
type BrandingProfile struct {
	Name             string   `mapstructure:"name"`
	OrganizationName string   `mapstructure:"organization_name"`
	AddressLines     []string `mapstructure:"address_lines"`
	FooterThanks     string   `mapstructure:"footer_thanks"`
	FooterURL        string   `mapstructure:"footer_url"`
	WatermarkText    string   `mapstructure:"watermark_text"`
	LogoPath         string   `mapstructure:"logo_path"`
	// Currency is the ISO 4217 code amounts are in
	Currency         valueobject.Currency `mapstructure:"currency"`
	CurrencySymbol   string               `mapstructure:"currency_symbol"`
	CurrencyFallback string               `mapstructure:"currency_fallback"`
	Font             FontSet              `mapstructure:"font"`
}

// Validate checks that the profile can be printed
func (p BrandingProfile) Validate() error {
	if strings.TrimSpace(p.OrganizationName) == "" {
		return shared.NewValidationError("organization_name", "Branding profile requires an organization name")
	}
	if strings.TrimSpace(p.WatermarkText) == "" {
		return shared.NewValidationError("watermark_text", "Branding profile requires watermark text")
	}
	if p.Font.Regular == "" && (p.Font.Bold != "" || p.Font.Italic != "") {
		return shared.NewValidationError("font", "Bold or italic font given without a regular font")
	}
	if p.Currency != "" {
		if _, err := valueobject.ParseCurrency(string(p.Currency)); err != nil {
			return shared.NewValidationError("currency", "Currency must be one of INR, USD, EUR or GBP")
		}
	}
	return nil
}

// WithDefaults fills in the currency and its symbols when left empty
func (p BrandingProfile) WithDefaults() BrandingProfile {
	if p.Currency == "" {
		p.Currency = valueobject.DefaultCurrency
	}
	if c, err := valueobject.ParseCurrency(string(p.Currency)); err == nil {
		p.Currency = c
	}
	if p.CurrencySymbol == "" {
		p.CurrencySymbol = p.Currency.Symbol()
	}
	if p.CurrencyFallback == "" {
		p.CurrencyFallback = DefaultCurrencyFallback
	}
	return p
}

// HasLogo reports whether a logo is configured
func (p BrandingProfile) HasLogo() bool {
	return strings.TrimSpace(p.LogoPath) != ""
}

// Built-in profile keys
const (
	ProfileShantiniketan = "shantiniketan"
	ProfileKota          = "kota"
	ProfileKotaCloud     = "kota-cloud"
)

var builtinProfiles = map[string]BrandingProfile{
	ProfileShantiniketan: {
		Name:             ProfileShantiniketan,
		OrganizationName: "Nucleon Kota Shantiniketan",
		WatermarkText:    "Nucleon Kota",
	},
	ProfileKota: {
		Name:             ProfileKota,
		OrganizationName: "Nucleon Kota",
		AddressLines:     []string{"Shantiniketan", "Bolpur, West Bengal"},
		FooterThanks:     "Thank you for your payment!",
		FooterURL:        "www.nucleonkota.com",
		WatermarkText:    "Nucleon Kota",
		LogoPath:         "assets/logo.png",
	},
	ProfileKotaCloud: {
		Name:             ProfileKotaCloud,
		OrganizationName: "Nucleon Kota",
		AddressLines:     []string{"Shantiniketan", "Bolpur, West Bengal"},
		FooterThanks:     "Thank you for your payment!",
		FooterURL:        "www.nucleonkota.com",
		WatermarkText:    "Nucleon Kota",
	},
}

// BuiltinProfile returns a copy of a built-in profile by key
func BuiltinProfile(name string) (BrandingProfile, bool) {
	p, ok := builtinProfiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return BrandingProfile{}, false
	}
	p.AddressLines = append([]string(nil), p.AddressLines...)
	return p.WithDefaults(), true
}

// BuiltinProfileNames lists the built-in profile keys in sorted order
func BuiltinProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
