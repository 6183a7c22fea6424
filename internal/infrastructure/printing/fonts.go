package printing

import (
	_ "embed"
	"os"
	"sync"
	"unicode"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"golang.org/x/image/font/sfnt"
)

// DefaultFontFamily is the family name of the embedded DejaVu Sans
// Condensed faces used when the profile configures no fonts.
const DefaultFontFamily = "DejaVuSansCondensed"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	dejaVuRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	dejaVuBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	dejaVuOblique []byte
)

var fontStyles = []FontStyle{StyleRegular, StyleBold, StyleItalic}

// fontFaces holds the TrueType data for one family and the parsed faces
// used to look up glyph coverage.
type fontFaces struct {
	family string
	data   map[FontStyle][]byte
	parsed map[FontStyle]*sfnt.Font
}

var defaultFaces = sync.OnceValues(func() (*fontFaces, error) {
	return newFontFaces(DefaultFontFamily, map[FontStyle][]byte{
		StyleRegular: dejaVuRegular,
		StyleBold:    dejaVuBold,
		StyleItalic:  dejaVuOblique,
	})
})

func newFontFaces(family string, data map[FontStyle][]byte) (*fontFaces, error) {
	f := &fontFaces{family: family, data: data, parsed: make(map[FontStyle]*sfnt.Font, len(data))}
	for style, b := range data {
		parsed, err := sfnt.Parse(b)
		if err != nil {
			return nil, err
		}
		f.parsed[style] = parsed
	}
	return f, nil
}

// loadFontFaces returns the embedded faces for an empty FontSet and reads
// the configured files otherwise. Bold and italic default to regular.
func loadFontFaces(fonts receipt.FontSet) (*fontFaces, error) {
	if fonts.IsZero() {
		faces, err := defaultFaces()
		if err != nil {
			return nil, NewRenderError(ErrCodeFontLoad, "failed to load embedded fonts", err)
		}
		return faces, nil
	}

	family := fonts.Family
	if family == "" {
		family = "receipt"
	}
	paths := map[FontStyle]string{
		StyleRegular: fonts.Regular,
		StyleBold:    fonts.Bold,
		StyleItalic:  fonts.Italic,
	}
	data := make(map[FontStyle][]byte, len(paths))
	for style, path := range paths {
		if path == "" {
			path = fonts.Regular
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewRenderError(ErrCodeFontLoad, "failed to read font "+path, err)
		}
		data[style] = b
	}

	faces, err := newFontFaces(family, data)
	if err != nil {
		return nil, NewRenderError(ErrCodeFontLoad, "failed to parse fonts", err)
	}
	return faces, nil
}

// missing returns the runes of s the face has no glyph for. Whitespace and
// control characters are never reported.
func (f *fontFaces) missing(style FontStyle, s string) []rune {
	face := f.parsed[style]
	if face == nil {
		face = f.parsed[StyleRegular]
	}
	var (
		buf  sfnt.Buffer
		out  []rune
		seen map[rune]bool
	)
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || seen[r] {
			continue
		}
		idx, err := face.GlyphIndex(&buf, r)
		if err == nil && idx != 0 {
			continue
		}
		if seen == nil {
			seen = make(map[rune]bool)
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// covers reports whether every face can print s
func (f *fontFaces) covers(s string) bool {
	for _, style := range fontStyles {
		if len(f.missing(style, s)) > 0 {
			return false
		}
	}
	return true
}
