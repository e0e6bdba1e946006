package model

// Final state of one rendered text field.
type TextMetadata struct {
	// E.g., "新春セール開催中！"
	Text     string   `json:"text"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	FontSize float64  `json:"fontSize"`
	Lines    []string `json:"lines"`
	Align    Align    `json:"align,omitempty"`
}

// Brand palette as hex strings. E.g., {primary: "#0B3D91", accent: "#FF5A1F"}
type BrandColors struct {
	Primary    string `json:"primary,omitempty" yaml:"primary"`
	Accent     string `json:"accent,omitempty" yaml:"accent"`
	Background string `json:"background,omitempty" yaml:"background"`
	Text       string `json:"text,omitempty" yaml:"text"`
}

// Durable record of one rendered composite, handed to the persistence collaborator.
type LayoutMetadata struct {
	// Unique id of this composite. E.g., "5f0c7c4e-..."
	CompositeID string      `json:"compositeId"`
	LayoutID    string      `json:"layoutId"`
	BaseImageID string      `json:"baseImageId"`
	Orientation Orientation `json:"orientation"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`

	Headline TextMetadata  `json:"headline"`
	Tagline  *TextMetadata `json:"tagline,omitempty"`
	CTA      *TextMetadata `json:"cta,omitempty"`
	Logo     *LogoPosition `json:"logo,omitempty"`

	Treatment   Treatment   `json:"treatment"`
	TextColor   string      `json:"textColor"`
	// CTA pill background. E.g., "#e60033"
	CTAColor    string      `json:"ctaColor,omitempty"`
	FontFamily  string      `json:"fontFamily"`
	BrandColors BrandColors `json:"brandColors"`
	// Overlays that failed to render and were left out. E.g., ["cta"]
	OmittedOverlays []string `json:"omittedOverlays,omitempty"`
}

// One successfully rendered alternative.
type Composite struct {
	LayoutID string
	// PNG bytes.
	Image    []byte
	Metadata LayoutMetadata
}

// Everything produced for one base image: zero to 3 composites.
type CompositingResult struct {
	BaseImageID string
	Composites  []Composite
}
