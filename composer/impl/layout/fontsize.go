package layout

import (
	"math"

	"github.com/visionex-project/adcomposite/composer/impl/model"
)

const (
	// Headline size relative to the short side of the image.
	HEADLINE_SIZE_RATIO = 0.055
	MIN_HEADLINE_SIZE   = 28
	MAX_HEADLINE_SIZE   = 120
	// Tagline and CTA sizes relative to the headline size.
	TAGLINE_SIZE_RATIO = 0.5
	CTA_SIZE_RATIO     = 0.45
	MIN_BODY_SIZE      = 18
)

// Font sizes in pixels for the text fields of one image.
type Sizes struct {
	Headline float64
	Tagline  float64
	CTA      float64
}

// FontSizes derives the text sizes from the short side of the image.
// E.g., 1024x1024 -> {headline: 56, tagline: 28, cta: 25}
func FontSizes(dims model.Dimensions) Sizes {
	short := float64(min(dims.Width, dims.Height))
	headline := math.Round(math.Max(MIN_HEADLINE_SIZE, math.Min(MAX_HEADLINE_SIZE, short*HEADLINE_SIZE_RATIO)))
	return Sizes{
		Headline: headline,
		Tagline:  math.Max(MIN_BODY_SIZE, math.Round(headline*TAGLINE_SIZE_RATIO)),
		CTA:      math.Max(MIN_BODY_SIZE, math.Round(headline*CTA_SIZE_RATIO)),
	}
}
