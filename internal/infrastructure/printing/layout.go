package printing

import (
	"github.com/nucleon/receipts/internal/domain/receipt"
)

// Page is a page size in points
type Page struct {
	Width  float64
	Height float64
}

// Letter is US Letter in points
var Letter = Page{Width: 612, Height: 792}

// FontStyle selects the regular, bold or italic face
type FontStyle string

const (
	StyleRegular FontStyle = ""
	StyleBold    FontStyle = "B"
	StyleItalic  FontStyle = "I"
)

// Element is one piece of text placed on the page. X and Y are measured
// from the top-left corner, Y being the text baseline.
type Element struct {
	Name  string
	Text  string
	Style FontStyle
	Size  float64
	X     float64
	Y     float64
	Alpha float64
	// Centered elements ignore X and are centered horizontally on the page
	Centered bool
}

// LogoBox is where the logo is drawn, in points from the top-left corner
type LogoBox struct {
	X, Y, W, H float64
}

// DefaultLogoBox is the fixed logo area in the header
var DefaultLogoBox = LogoBox{X: 50, Y: 20, W: 120, H: 60}

const (
	addressLineHeight = 14
	opaque            = 1.0
	watermarkAlpha    = 0.1
	watermarkSize     = 70
)

// Layout returns the receipt elements in drawing order. Amounts are in
// profile.Currency, printed with profile.CurrencySymbol as given.
func Layout(rec *receipt.Record, profile receipt.BrandingProfile, page Page) []Element {
	amount := rec.Amount(profile.Currency).Format(profile.CurrencySymbol)

	els := []Element{
		{Name: "title", Text: "RECEIPT", Style: StyleBold, Size: 16, X: 230, Y: 50},
		{Name: "number", Text: "Receipt #: " + rec.Number, Size: 12, X: 400, Y: 80},
		{Name: "from", Text: "FROM", Style: StyleBold, Size: 12, X: 50, Y: 120},
		{Name: "organization", Text: profile.OrganizationName, Size: 10, X: 50, Y: 140},
	}
	for i, line := range profile.AddressLines {
		els = append(els, Element{
			Name: "address",
			Text: line,
			Size: 10,
			X:    50,
			Y:    140 + float64(i+1)*addressLineHeight,
		})
	}

	els = append(els,
		Element{Name: "bill_to", Text: "BILL TO - " + rec.StudentName, Style: StyleBold, Size: 12, X: 50, Y: 200},
		Element{Name: "date_label", Text: "DATE", Style: StyleBold, Size: 12, X: 50, Y: 230},
		Element{Name: "date", Text: rec.DisplayDate(), Size: 10, X: 50, Y: 245},
		Element{Name: "paid_label", Text: "BALANCE PAID", Style: StyleBold, Size: 12, X: 400, Y: 230},
		Element{Name: "paid", Text: amount, Size: 15, X: 400, Y: 245},
		Element{Name: "description_label", Text: "DESCRIPTION", Style: StyleBold, Size: 12, X: 50, Y: 280},
		Element{Name: "total_label", Text: "TOTAL", Style: StyleBold, Size: 12, X: 450, Y: 280},
		Element{Name: "description", Text: rec.Description(), Size: 10, X: 50, Y: 300},
		Element{Name: "total", Text: amount, Size: 10, X: 450, Y: 300},
	)

	if profile.FooterThanks != "" {
		els = append(els, Element{Name: "footer_thanks", Text: profile.FooterThanks, Style: StyleItalic, Size: 10, X: 50, Y: 720})
	}
	if profile.FooterURL != "" {
		els = append(els, Element{Name: "footer_url", Text: profile.FooterURL, Style: StyleItalic, Size: 10, X: 50, Y: 735})
	}

	els = append(els, Element{
		Name:     "watermark",
		Text:     profile.WatermarkText,
		Size:     watermarkSize,
		Y:        page.Height / 2,
		Alpha:    watermarkAlpha,
		Centered: true,
	})

	for i := range els {
		if els[i].Alpha == 0 {
			els[i].Alpha = opaque
		}
	}
	return els
}
