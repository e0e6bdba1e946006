package model

// Horizontal anchor of the lines inside a text box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Writing direction of a layout alternative. Vertical means tategaki for the headline.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// Advisory brightness of a region as reported by a layout oracle.
type Brightness string

const (
	BrightnessLight Brightness = "light"
	BrightnessDark  Brightness = "dark"
	BrightnessMixed Brightness = "mixed"
)

// Dimensions of a decoded base image in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio is width divided by height.
func (d Dimensions) AspectRatio() float64 {
	if d.Height == 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

// Rect is an axis aligned pixel rectangle. E.g., {x: 40, y: 80, width: 400, height: 120}
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Placement of a text element. (X, Y) is the top-left corner of a box that is MaxWidth wide;
// Align positions each line inside that box.
type TextPlacement struct {
	X        int   `json:"x"`
	Y        int   `json:"y"`
	MaxWidth int   `json:"maxWidth"`
	Align    Align `json:"align"`
}

// A region hint from the oracle. Not authoritative: the contrast analyzer decides the treatment.
type ContrastZone struct {
	Region     Rect       `json:"region"`
	Brightness Brightness `json:"brightness"`
}

// Top-left corner of the logo overlay.
type LogoPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// One of the 3 candidate text/logo placement sets for a base image.
type LayoutAlternative struct {
	// E.g., "layout-1", "fallback-top-center"
	ID       string         `json:"id"`
	Headline TextPlacement  `json:"headline"`
	Tagline  *TextPlacement `json:"tagline,omitempty"`
	CTA      TextPlacement  `json:"cta"`
	// Identical across the 3 alternatives of an image.
	Logo          *LogoPosition  `json:"logo,omitempty"`
	Orientation   Orientation    `json:"orientation"`
	ContrastZones []ContrastZone `json:"contrastZones,omitempty"`
}

// Typeset lines of a single text field. Concatenating Lines yields the input text.
type LineBreakResult struct {
	Lines       []string    `json:"lines"`
	Orientation Orientation `json:"orientation"`
}

// Pixel statistics of an analyzed region, never persisted on its own.
type RegionStats struct {
	// Relative luminance of the mean color, 0..1.
	Luminance float64
	// Mean of the per-channel standard deviations in 0..255 units.
	Variance float64
}
