package printing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/unicode"
)

type countingRecorder struct {
	logos  int
	glyphs int
}

func (c *countingRecorder) RecordLogoFailure() {
	c.logos++
}

func (c *countingRecorder) RecordMissingGlyphs() {
	c.glyphs++
}

var pdfEscaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`)

// pdfText is s as it appears in an uncompressed content stream drawn with
// a UTF-8 font
func pdfText(t *testing.T, s string) string {
	t.Helper()
	enc, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().String(s)
	require.NoError(t, err)
	return pdfEscaper.Replace(enc)
}

func fixedClock() time.Time {
	return time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func newObservedRenderer(opts ...Option) (*PDFRenderer, *observer.ObservedLogs, *countingRecorder) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &countingRecorder{}
	all := append([]Option{
		WithLogger(zap.New(core)),
		WithRecorder(rec),
		WithClock(fixedClock),
		WithCompression(false),
	}, opts...)
	return NewPDFRenderer(all...), logs, rec
}

func TestPDFRenderer_Render(t *testing.T) {
	r, logs, counts := newObservedRenderer()
	rec := createTestRecord(t, receipt.FeeTypeTuition, "October")

	doc, err := r.Render(context.Background(), rec, testProfile())
	require.NoError(t, err)

	data := string(doc.Bytes())
	assert.True(t, strings.HasPrefix(data, "%PDF-"))
	assert.Contains(t, data, "/BaseFont /utf8"+DefaultFontFamily)
	assert.Contains(t, data, pdfText(t, "RECEIPT"))
	assert.Contains(t, data, pdfText(t, "Tuition Fees: (October)"))
	assert.Equal(t, 0, counts.logos)
	assert.Equal(t, 0, counts.glyphs)
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestPDFRenderer_RupeeSymbol(t *testing.T) {
	r, _, _ := newObservedRenderer()
	rec := createTestRecord(t, receipt.FeeTypeTuition, "October")

	doc, err := r.Render(context.Background(), rec, testProfile())
	require.NoError(t, err)
	assert.Contains(t, string(doc.Bytes()), pdfText(t, "₹ 1234.50"))
	assert.NotContains(t, string(doc.Bytes()), pdfText(t, "Rs. 1234.50"))
}

func TestPDFRenderer_CurrencyFallbackWhenFontLacksSymbol(t *testing.T) {
	r, logs, counts := newObservedRenderer()
	profile := testProfile()
	profile.CurrencySymbol = "৳"
	profile.CurrencyFallback = "Tk"

	doc, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "October"), profile)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Bytes()), pdfText(t, "Tk 1234.50"))
	assert.Equal(t, 0, counts.glyphs)
	assert.Equal(t, 0, logs.FilterMessage("glyphs missing from receipt font").Len())
}

func TestPDFRenderer_StudentNames(t *testing.T) {
	t.Run("latin and cyrillic names print without warnings", func(t *testing.T) {
		for _, name := range []string{"José Núñez", "Łukasz Żółć", "Анна Петрова"} {
			r, logs, counts := newObservedRenderer()
			rec, err := receipt.NewRecord("2026101509300001", name,
				time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC),
				decimal.NewFromInt(500), receipt.FeeTypeAdmission, "")
			require.NoError(t, err)

			doc, err := r.Render(context.Background(), rec, testProfile())
			require.NoError(t, err)
			assert.Contains(t, string(doc.Bytes()), pdfText(t, "BILL TO - "+name), name)
			assert.Equal(t, 0, counts.glyphs, name)
			assert.Equal(t, 0, logs.FilterMessage("glyphs missing from receipt font").Len(), name)
		}
	})

	t.Run("bengali name is kept and reported", func(t *testing.T) {
		r, logs, counts := newObservedRenderer()
		rec, err := receipt.NewRecord("2026101509300001", "রাহুল",
			time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC),
			decimal.NewFromInt(500), receipt.FeeTypeAdmission, "")
		require.NoError(t, err)

		doc, err := r.Render(context.Background(), rec, testProfile())
		require.NoError(t, err)

		// the name is written as text, not replaced with dots
		assert.Contains(t, string(doc.Bytes()), pdfText(t, "BILL TO - রাহুল"))
		assert.NotContains(t, string(doc.Bytes()), pdfText(t, "BILL TO - ....."))
		assert.Equal(t, 1, counts.glyphs)

		warnings := logs.FilterMessage("glyphs missing from receipt font").All()
		require.Len(t, warnings, 1)
		assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
		fields := warnings[0].ContextMap()
		assert.Equal(t, "bill_to", fields["element"])
		assert.Equal(t, "রাহুল", fields["missing"])
		assert.Equal(t, "2026101509300001", fields["receipt_number"])
	})
}

func TestPDFRenderer_Deterministic(t *testing.T) {
	r, _, _ := newObservedRenderer()
	rec := createTestRecord(t, receipt.FeeTypeTuition, "October")

	a, err := r.Render(context.Background(), rec, testProfile())
	require.NoError(t, err)
	b, err := r.Render(context.Background(), rec, testProfile())
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestPDFRenderer_Logo(t *testing.T) {
	t.Run("valid logo is drawn", func(t *testing.T) {
		r, logs, logos := newObservedRenderer()
		profile := testProfile()
		profile.LogoPath = writePNG(t, t.TempDir(), 40, 20)

		doc, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
		require.NoError(t, err)
		assert.Contains(t, string(doc.Bytes()), "/Subtype /Image")
		assert.Equal(t, 0, logos.logos)
		assert.Equal(t, 0, logs.FilterMessage("logo skipped").Len())
	})

	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.png")
			},
		},
		{
			name: "corrupt image",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "logo.png")
				require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))
				return path
			},
		},
		{
			name: "unsupported format",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "logo.bmp")
				require.NoError(t, os.WriteFile(path, []byte("BM"), 0644))
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" degrades with warning", func(t *testing.T) {
			r, logs, logos := newObservedRenderer()
			profile := testProfile()
			profile.LogoPath = tt.setup(t)

			doc, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF-")))
			assert.NotContains(t, string(doc.Bytes()), "/Subtype /Image")
			assert.Equal(t, 1, logos.logos)

			warnings := logs.FilterMessage("logo skipped").All()
			require.Len(t, warnings, 1)
			assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
			assert.Equal(t, profile.LogoPath, warnings[0].ContextMap()["logo_path"])
		})
	}
}

func TestPDFRenderer_Errors(t *testing.T) {
	r, _, _ := newObservedRenderer()

	t.Run("nil record", func(t *testing.T) {
		_, err := r.Render(context.Background(), nil, testProfile())
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeInvalidRecord, renderErr.Code)
	})

	t.Run("invalid profile", func(t *testing.T) {
		profile := testProfile()
		profile.OrganizationName = ""
		_, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeInvalidProfile, renderErr.Code)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Render(ctx, createTestRecord(t, receipt.FeeTypeTuition, "May"), testProfile())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing font file", func(t *testing.T) {
		profile := testProfile()
		profile.Font.Regular = filepath.Join(t.TempDir(), "missing.ttf")
		_, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeFontLoad, renderErr.Code)
	})

	t.Run("unparseable font file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.ttf")
		require.NoError(t, os.WriteFile(path, []byte("not a font"), 0644))
		profile := testProfile()
		profile.Font.Regular = path
		_, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeFontLoad, renderErr.Code)
	})
}

func TestPDFRenderer_ConfiguredFont(t *testing.T) {
	r, _, counts := newObservedRenderer()
	profile := testProfile()
	profile.Font = receipt.FontSet{Family: "Custom", Regular: filepath.Join("fonts", "DejaVuSansCondensed.ttf")}

	doc, err := r.Render(context.Background(), createTestRecord(t, receipt.FeeTypeTuition, "May"), profile)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Bytes()), "/BaseFont /utf8Custom")
	assert.Contains(t, string(doc.Bytes()), pdfText(t, "₹ 1234.50"))
	assert.Equal(t, 0, counts.glyphs)
}

func TestFitBox(t *testing.T) {
	tests := []struct {
		name       string
		w, h       float64
		wantW, wnH float64
	}{
		{"wide image fills width", 240, 60, 120, 30},
		{"tall image fills height", 30, 120, 15, 60},
		{"same aspect", 60, 30, 120, 60},
		{"degenerate", 0, 10, 120, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitBox(tt.w, tt.h, 120, 60)
			assert.InDelta(t, tt.wantW, w, 0.001)
			assert.InDelta(t, tt.wnH, h, 0.001)
		})
	}
}

func TestFontFaces_Coverage(t *testing.T) {
	faces, err := loadFontFaces(receipt.FontSet{})
	require.NoError(t, err)

	assert.True(t, faces.covers("₹"))
	assert.True(t, faces.covers("€ £ Rs."))
	assert.False(t, faces.covers("৳"))
	assert.Empty(t, faces.missing(StyleBold, "BILL TO - José"))
	assert.Equal(t, []rune("রাহুল"), faces.missing(StyleBold, "BILL TO - রাহুল"))
	// repeated characters are reported once
	assert.Equal(t, []rune("ক"), faces.missing(StyleRegular, "কক ক"))
}

func TestRenderError(t *testing.T) {
	t.Run("error without cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeRenderFailed, "render failed", nil)
		assert.Equal(t, "render failed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("error with cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeRenderFailed, "render failed", assert.AnError)
		assert.Contains(t, err.Error(), assert.AnError.Error())
		assert.Equal(t, assert.AnError, err.Unwrap())
	})
}
