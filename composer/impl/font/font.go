package font

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

var ErrUnsupportedFont = errors.New("unsupported font family")

// Family served from the fonts compiled into the binary. It covers Latin only, so
// Japanese glyphs render as boxes; production deployments configure a CJK family.
const EmbeddedFamily = "Go"

type FontProvider interface {
	// Returns the fonts of the given family. An empty family means the default one.
	FontByFamily(family string) (*FontsByWeight, error)
}

type FontsByWeight struct {
	Regular  *truetype.Font
	SemiBold *truetype.Font
	Bold     *truetype.Font
}

type fontProvider struct {
	basePath      string
	defaultFamily string
	families      map[string]*FontsByWeight
}

var (
	embeddedOnce  sync.Once
	embeddedFonts *FontsByWeight
	embeddedErr   error
)

// New loads every family from basePath/<Family>/<Family>-{Regular,SemiBold,Bold}.ttf.
// The first family becomes the default; with none, the embedded family is the default.
//
// Note: font files are renamed to their family name. E.g., LINE Seed JP ships as
// LINESeedJP/LINESeedJP-Regular.ttf (Ref: https://seed.line.me/index_jp.html).
func New(basePath string, families ...string) (FontProvider, error) {
	embedded, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded fonts: %w", err)
	}

	fp := &fontProvider{
		basePath:      basePath,
		defaultFamily: EmbeddedFamily,
		families:      map[string]*FontsByWeight{EmbeddedFamily: embedded},
	}
	for _, family := range families {
		fonts, err := fp.loadFontsByWeight(family)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s fonts: %w", family, err)
		}
		fp.families[family] = fonts
	}
	if len(families) > 0 {
		fp.defaultFamily = families[0]
	}
	return fp, nil
}

// Embedded returns a provider that only knows the embedded family.
func Embedded() (FontProvider, error) {
	return New("")
}

func (fp *fontProvider) FontByFamily(family string) (*FontsByWeight, error) {
	if family == "" {
		family = fp.defaultFamily
	}
	fonts, ok := fp.families[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFont, family)
	}
	return fonts, nil
}

func (fp *fontProvider) loadFontsByWeight(family string) (*FontsByWeight, error) {
	regular, err := parseFontFile(filepath.Join(fp.basePath, family, family+"-Regular.ttf"))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s regular font: %w", family, err)
	}

	bold, err := parseFontFile(filepath.Join(fp.basePath, family, family+"-Bold.ttf"))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s bold font: %w", family, err)
	}

	// Not every family ships a semi-bold cut.
	semiBold, err := parseFontFile(filepath.Join(fp.basePath, family, family+"-SemiBold.ttf"))
	if errors.Is(err, os.ErrNotExist) {
		semiBold = bold
	} else if err != nil {
		return nil, fmt.Errorf("failed to load %s semiBold font: %w", family, err)
	}

	return &FontsByWeight{
		Regular:  regular,
		SemiBold: semiBold,
		Bold:     bold,
	}, nil
}

func loadEmbedded() (*FontsByWeight, error) {
	embeddedOnce.Do(func() {
		fonts := &FontsByWeight{}
		if fonts.Regular, embeddedErr = truetype.Parse(goregular.TTF); embeddedErr != nil {
			return
		}
		if fonts.SemiBold, embeddedErr = truetype.Parse(gomedium.TTF); embeddedErr != nil {
			return
		}
		if fonts.Bold, embeddedErr = truetype.Parse(gobold.TTF); embeddedErr != nil {
			return
		}
		embeddedFonts = fonts
	})
	return embeddedFonts, embeddedErr
}

func parseFontFile(path string) (*truetype.Font, error) {
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return truetype.Parse(fontBytes)
}
