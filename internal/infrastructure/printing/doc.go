// Package printing renders fee receipts to PDF.
//
// The page is described by Layout, a pure function that returns every
// positioned text element of the fixed single-page receipt. PDFRenderer
// draws that layout with gofpdf, adds the optional logo, and returns the
// finished document.
//
// Example usage:
//
//	renderer := printing.NewPDFRenderer(
//	    printing.WithLogger(logger),
//	)
//	doc, err := renderer.Render(ctx, rec, profile)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Rendered receipt: %d bytes\n", doc.Len())
package printing
