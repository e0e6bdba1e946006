package render

import (
	"fmt"
	"image"
	"math"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/visionex-project/adcomposite/composer/impl/contrast"
	"github.com/visionex-project/adcomposite/composer/impl/font"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	xfont "golang.org/x/image/font"
)

const (
	LINE_HEIGHT_RATIO = 1.4
	// Space between the text box edge and the overlay edge. Shadows and strokes draw into it.
	PADDING = 16
	// Backdrop corner radius.
	BACKDROP_RADIUS = 12
	// Alpha of the shadow copy before blurring.
	SHADOW_ALPHA = 0.6
	// Vertical anchor that puts CJK glyphs visually centered on a line.
	BASELINE_ANCHOR = 0.35

	// Horizontal room around the CTA label, both sides together.
	CTA_PADDING = 48
	// CTA pill height relative to its font size.
	CTA_HEIGHT_RATIO = 2.2
)

// Positioned raster produced by a renderer. Left/Top are image coordinates of the overlay's
// top-left pixel.
type Overlay struct {
	Image image.Image
	Left  int
	Top   int
}

func (o *Overlay) Width() int {
	return o.Image.Bounds().Dx()
}

func (o *Overlay) Height() int {
	return o.Image.Bounds().Dy()
}

// A text field ready to draw.
type TextElement struct {
	// E.g., "新春セール開催中！"
	Text       string
	Placement  model.TextPlacement
	FontSize   float64
	FontFamily string
	Color      colorful.Color
	Bold       bool
}

type Renderer struct {
	fonts font.FontProvider
}

func New(fonts font.FontProvider) *Renderer {
	return &Renderer{fonts: fonts}
}

// RenderText draws already broken lines inside the element's box. The overlay covers the box
// plus PADDING on every side.
func (r *Renderer) RenderText(element TextElement, treatment model.Treatment, lines []string) (*Overlay, error) {
	face, err := r.face(element.FontFamily, element.FontSize, element.Bold)
	if err != nil {
		return nil, err
	}

	lines = sanitizeLines(lines)
	lineHeight := element.FontSize * LINE_HEIGHT_RATIO
	boxWidth := float64(max(element.Placement.MaxWidth, 1))
	width := int(math.Round(boxWidth)) + 2*PADDING
	height := int(math.Round(lineHeight*float64(len(lines)))) + 2*PADDING

	x, ax := PADDING+0.0, 0.0
	switch element.Placement.Align {
	case model.AlignCenter:
		x, ax = PADDING+boxWidth/2, 0.5
	case model.AlignRight:
		x, ax = PADDING+boxWidth, 1
	}

	img := paint(width, height, face, treatment, element.Color, func(dc *gg.Context, dx float64, dy float64) {
		for i, line := range lines {
			middleOfLine := PADDING + lineHeight*float64(i) + lineHeight/2
			dc.DrawStringAnchored(
				line,
				x+dx,            /* =x */
				middleOfLine+dy, /* =y */
				ax,              /* =ax */
				BASELINE_ANCHOR, /* =ay */
			)
		}
	})

	return &Overlay{
		Image: img,
		Left:  element.Placement.X - PADDING,
		Top:   element.Placement.Y - PADDING,
	}, nil
}

// RenderCTA draws a pill button sized to the text. The overlay is unpositioned (Left, Top = 0).
func (r *Renderer) RenderCTA(text string, fontSize float64, fontFamily string, bgColor colorful.Color, textColor colorful.Color) (*Overlay, error) {
	face, err := r.face(fontFamily, fontSize, true)
	if err != nil {
		return nil, err
	}

	text = sanitize(text)
	width := int(math.Round(float64(len([]rune(text)))*fontSize)) + CTA_PADDING
	height := int(math.Round(fontSize * CTA_HEIGHT_RATIO))

	dc := gg.NewContext(width, height)
	dc.SetColor(bgColor)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), float64(height)/2)
	dc.Fill()

	dc.SetFontFace(face)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(text, float64(width)/2, float64(height)/2, 0.5, BASELINE_ANCHOR)

	return &Overlay{Image: dc.Image()}, nil
}

// PlaceInBox returns the left edge of an overlay of the given width aligned inside placement's box.
func PlaceInBox(overlayWidth int, placement model.TextPlacement) int {
	switch placement.Align {
	case model.AlignCenter:
		return placement.X + (placement.MaxWidth-overlayWidth)/2
	case model.AlignRight:
		return placement.X + placement.MaxWidth - overlayWidth
	default:
		return placement.X
	}
}

func (r *Renderer) face(family string, size float64, bold bool) (xfont.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	fonts, err := r.fonts.FontByFamily(family)
	if err != nil {
		return nil, fmt.Errorf("failed to get font: %w", err)
	}
	typeface := fonts.Regular
	if bold {
		typeface = fonts.Bold
	}
	return truetype.NewFace(typeface, &truetype.Options{Size: size}), nil
}

// Draws all glyphs with the current color, shifted by (dx, dy).
type glyphPainter func(dc *gg.Context, dx float64, dy float64)

// paint layers treatment and glyphs: backdrop, then shadow or stroke, then the fill.
func paint(width int, height int, face xfont.Face, treatment model.Treatment, fill colorful.Color, draw glyphPainter) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(face)
	lightText := contrast.RelativeLuminance(fill) >= contrast.WHITE_TEXT_LUMINANCE

	switch treatment.Kind {
	case model.TreatmentBackdrop:
		backdrop := contrast.White
		if lightText {
			backdrop = colorful.Color{}
		}
		dc.SetRGBA(backdrop.R, backdrop.G, backdrop.B, treatment.Opacity)
		dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), BACKDROP_RADIUS)
		dc.Fill()

	case model.TreatmentShadow:
		shadow := gg.NewContext(width, height)
		shadow.SetFontFace(face)
		if lightText {
			shadow.SetRGBA(0, 0, 0, SHADOW_ALPHA)
		} else {
			shadow.SetRGBA(1, 1, 1, SHADOW_ALPHA)
		}
		draw(shadow, treatment.ShadowOffset, treatment.ShadowOffset)
		// gg/imaging blur takes a gaussian sigma; CSS-style blur radius is about twice that.
		dc.DrawImage(imaging.Blur(shadow.Image(), treatment.ShadowBlur/2), 0, 0)

	case model.TreatmentStroke:
		outline := contrast.DarkText
		if treatment.StrokeTone == model.StrokeLight {
			outline = contrast.White
		}
		dc.SetColor(outline)
		radius := int(math.Round(treatment.StrokeWidth))
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if (dx != 0 || dy != 0) && dx*dx+dy*dy <= radius*radius {
					draw(dc, float64(dx), float64(dy))
				}
			}
		}
	}

	dc.SetColor(fill)
	draw(dc, 0, 0)
	return dc.Image()
}

func sanitizeLines(lines []string) []string {
	sanitized := make([]string, 0, len(lines))
	for _, line := range lines {
		sanitized = append(sanitized, sanitize(line))
	}
	return sanitized
}

// sanitize drops control characters, which have no glyphs.
func sanitize(text string) string {
	return strings.Map(func(char rune) rune {
		if unicode.IsControl(char) {
			return -1
		}
		return char
	}, text)
}
