package render

import (
	"math"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/pkg/utils"
)

const (
	// Vertical slot per character relative to the font size.
	VERTICAL_SLOT_RATIO = 1.2
	// Longest headline set in tategaki.
	MAX_VERTICAL_CHARS = 12
	// Share of CJK characters a vertical headline must exceed.
	MIN_VERTICAL_CJK_RATIO = 0.70
	// Wider images are banners and stay horizontal.
	MAX_VERTICAL_ASPECT_RATIO = 1.5
)

// IsVerticalEligible reports whether a headline of length characters can be set in tategaki
// on an image of the given width/height ratio.
// E.g., ("新春セール", 1.0) -> true, ("SUMMER SALE", 1.0) -> false, ("新春セール", 1.91) -> false
func IsVerticalEligible(length int, text string, aspectRatio float64) bool {
	if length <= 0 || length > MAX_VERTICAL_CHARS || aspectRatio > MAX_VERTICAL_ASPECT_RATIO {
		return false
	}
	return CJKRatio(text) > MIN_VERTICAL_CJK_RATIO
}

// CJKRatio is the share of runes in text that are ideographs, kana or CJK compatibility characters.
func CJKRatio(text string) float64 {
	chars := []rune(text)
	if len(chars) == 0 {
		return 0
	}
	return float64(utils.Count(chars, isCJK)) / float64(len(chars))
}

func isCJK(char rune) bool {
	switch {
	case char >= 0x4E00 && char <= 0x9FFF: // CJK unified ideographs
		return true
	case char >= 0x3400 && char <= 0x4DBF: // Extension A
		return true
	case char >= 0x3040 && char <= 0x309F: // Hiragana
		return true
	case char >= 0x30A0 && char <= 0x30FF: // Katakana
		return true
	case char >= 0x31F0 && char <= 0x31FF: // Katakana phonetic extensions
		return true
	case char >= 0x3300 && char <= 0x33FF: // CJK compatibility
		return true
	case char >= 0xF900 && char <= 0xFAFF: // CJK compatibility ideographs
		return true
	case char >= 0xFE30 && char <= 0xFE4F: // CJK compatibility forms
		return true
	}
	return false
}

// RenderVertical draws text as a single tategaki column.
func (r *Renderer) RenderVertical(text string, fontSize float64, fontFamily string, color colorful.Color, treatment model.Treatment) (*Overlay, error) {
	return r.RenderVerticalLines([]string{text}, fontSize, fontFamily, color, treatment)
}

// RenderVerticalLines draws one column per line, first line rightmost. The overlay is unpositioned.
func (r *Renderer) RenderVerticalLines(lines []string, fontSize float64, fontFamily string, color colorful.Color, treatment model.Treatment) (*Overlay, error) {
	face, err := r.face(fontFamily, fontSize, true)
	if err != nil {
		return nil, err
	}

	columns := make([][]rune, 0, len(lines))
	longest := 0
	for _, line := range sanitizeLines(lines) {
		column := []rune(line)
		columns = append(columns, column)
		longest = max(longest, len(column))
	}

	slot := fontSize * VERTICAL_SLOT_RATIO
	width := int(math.Round(slot*float64(len(columns)))) + 2*PADDING
	height := int(math.Round(slot*float64(longest))) + 2*PADDING

	img := paint(width, height, face, treatment, color, func(dc *gg.Context, dx float64, dy float64) {
		for i, column := range columns {
			centerX := float64(width) - PADDING - slot*float64(i) - slot/2 + dx
			for j, char := range column {
				centerY := PADDING + slot*float64(j) + slot/2 + dy
				drawVerticalGlyph(dc, char, centerX, centerY, fontSize)
			}
		}
	})

	return &Overlay{Image: img}, nil
}

func drawVerticalGlyph(dc *gg.Context, char rune, centerX float64, centerY float64, fontSize float64) {
	switch {
	case IsRotatedInVertical(char):
		dc.Push()
		dc.RotateAbout(gg.Radians(90), centerX, centerY)
		dc.DrawStringAnchored(string(char), centerX, centerY, 0.5, BASELINE_ANCHOR)
		dc.Pop()
	// Ideographic comma and full stop sit in the upper right of their slot.
	case char == '、' || char == '。':
		dc.DrawStringAnchored(string(char), centerX+fontSize*0.5, centerY-fontSize*0.5, 0.5, BASELINE_ANCHOR)
	default:
		dc.DrawStringAnchored(string(char), centerX, centerY, 0.5, BASELINE_ANCHOR)
	}
}

// IsRotatedInVertical reports whether char is half-width Latin or an ASCII digit, which are
// turned 90° clockwise in a vertical column.
func IsRotatedInVertical(char rune) bool {
	return char < 0x80 && (unicode.IsLetter(char) || unicode.IsDigit(char))
}
