package printing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/nucleon/receipts/internal/domain/receipt"
	"go.uber.org/zap"
)

// Recorder counts degraded renders
type Recorder interface {
	RecordLogoFailure()
	// RecordMissingGlyphs counts a text element drawn with glyphs the
	// font does not have
	RecordMissingGlyphs()
}

type nopRecorder struct{}

func (nopRecorder) RecordLogoFailure()   {}
func (nopRecorder) RecordMissingGlyphs() {}

// PDFRenderer draws receipts with gofpdf
type PDFRenderer struct {
	page     Page
	logoBox  LogoBox
	logger   *zap.Logger
	recorder Recorder
	clock    func() time.Time
	compress bool
}

// Option configures a PDFRenderer
type Option func(*PDFRenderer)

// WithLogger sets the logger used for degraded renders
func WithLogger(logger *zap.Logger) Option {
	return func(r *PDFRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets where logo failures and missing glyphs are counted
func WithRecorder(rec Recorder) Option {
	return func(r *PDFRenderer) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithClock sets the time stamped into the document metadata
func WithClock(clock func() time.Time) Option {
	return func(r *PDFRenderer) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithCompression toggles stream compression. It is on by default.
func WithCompression(compress bool) Option {
	return func(r *PDFRenderer) {
		r.compress = compress
	}
}

// WithLogoBox overrides the logo area
func WithLogoBox(box LogoBox) Option {
	return func(r *PDFRenderer) {
		r.logoBox = box
	}
}

// NewPDFRenderer creates a renderer for US Letter receipts
func NewPDFRenderer(opts ...Option) *PDFRenderer {
	r := &PDFRenderer{
		page:     Letter,
		logoBox:  DefaultLogoBox,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		clock:    time.Now,
		compress: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the receipt and returns the PDF
func (r *PDFRenderer) Render(ctx context.Context, rec *receipt.Record, profile receipt.BrandingProfile) (receipt.Document, error) {
	if err := ctx.Err(); err != nil {
		return receipt.Document{}, NewRenderError(ErrCodeRenderFailed, "render cancelled", err)
	}
	if rec == nil {
		return receipt.Document{}, NewRenderError(ErrCodeInvalidRecord, "receipt record is nil", nil)
	}
	profile = profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return receipt.Document{}, NewRenderError(ErrCodeInvalidProfile, "invalid branding profile", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: r.page.Width, Ht: r.page.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.clock())
	pdf.SetTitle("Receipt "+rec.Number, true)
	pdf.SetCreator(profile.OrganizationName, true)

	faces, err := loadFontFaces(profile.Font)
	if err != nil {
		return receipt.Document{}, err
	}
	for _, style := range fontStyles {
		pdf.AddUTF8FontFromBytes(faces.family, string(style), faces.data[style])
	}
	if err := pdf.Error(); err != nil {
		return receipt.Document{}, NewRenderError(ErrCodeFontLoad, "failed to load fonts", err)
	}
	if !faces.covers(profile.CurrencySymbol) {
		profile.CurrencySymbol = profile.CurrencyFallback
	}

	pdf.AddPage()

	if profile.HasLogo() {
		r.drawLogo(pdf, profile.LogoPath, rec.Number)
	}

	for _, el := range Layout(rec, profile, r.page) {
		r.drawElement(pdf, faces, el, rec.Number)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return receipt.Document{}, NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}

	r.logger.Debug("receipt rendered",
		zap.String("receipt_number", rec.Number),
		zap.Int("size", buf.Len()))

	return receipt.NewDocument(buf.Bytes()), nil
}

// drawElement draws one text element. Characters the font cannot print
// come out as empty boxes; each such element is logged and counted.
func (r *PDFRenderer) drawElement(pdf *gofpdf.Fpdf, faces *fontFaces, el Element, number string) {
	if el.Text == "" {
		return
	}
	if missing := faces.missing(el.Style, el.Text); len(missing) > 0 {
		r.logger.Warn("glyphs missing from receipt font",
			zap.String("receipt_number", number),
			zap.String("element", el.Name),
			zap.String("font", faces.family),
			zap.String("missing", string(missing)))
		r.recorder.RecordMissingGlyphs()
	}
	pdf.SetFont(faces.family, string(el.Style), el.Size)
	text := el.Text

	x := el.X
	if el.Centered {
		x = (r.page.Width - pdf.GetStringWidth(text)) / 2
	}

	if el.Alpha < 1 {
		pdf.SetAlpha(el.Alpha, "Normal")
		pdf.Text(x, el.Y, text)
		pdf.SetAlpha(1, "Normal")
		return
	}
	pdf.Text(x, el.Y, text)
}

// drawLogo places the logo in the logo box. A logo that cannot be read or
// decoded is skipped with a warning; the receipt is still produced.
func (r *PDFRenderer) drawLogo(pdf *gofpdf.Fpdf, path, number string) {
	data, imageType, err := loadLogo(path)
	if err != nil {
		r.logger.Warn("logo skipped",
			zap.String("receipt_number", number),
			zap.String("logo_path", path),
			zap.Error(err))
		r.recorder.RecordLogoFailure()
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	info := pdf.RegisterImageOptionsReader(path, opts, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		pdf.ClearError()
		r.logger.Warn("logo skipped", zap.String("receipt_number", number), zap.String("logo_path", path))
		r.recorder.RecordLogoFailure()
		return
	}

	w, h := fitBox(info.Width(), info.Height(), r.logoBox.W, r.logoBox.H)
	pdf.ImageOptions(path, r.logoBox.X, r.logoBox.Y, w, h, false, opts, 0, "")
}

// loadLogo reads the image and registers it in a scratch document, so a
// broken image never touches the real one.
func loadLogo(path string) ([]byte, string, error) {
	imageType := imageTypeFor(path)
	if imageType == "" {
		return nil, "", fmt.Errorf("unsupported logo format %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read logo: %w", err)
	}

	scratch := gofpdf.New("P", "pt", "Letter", "")
	info := scratch.RegisterImageOptionsReader(path, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if err := scratch.Error(); err != nil {
		return nil, "", fmt.Errorf("decode logo: %w", err)
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return nil, "", fmt.Errorf("decode logo: empty image")
	}
	return data, imageType, nil
}

func imageTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	}
	return ""
}

// fitBox scales w x h to fit inside boxW x boxH keeping the aspect ratio
func fitBox(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := boxW / w
	if s := boxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

var _ receipt.Renderer = (*PDFRenderer)(nil)
