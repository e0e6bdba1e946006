package layout

import (
	"math"

	"github.com/visionex-project/adcomposite/composer/impl/model"
)

const (
	// Coordinates are multiples of GRID.
	GRID = 20
	// Minimum distance between any placement and the image edges.
	EDGE_PADDING = 40
	// Minimum vertical gap between stacked elements.
	ELEMENT_GAP = 20
	// Narrowest allowed headline box.
	HEADLINE_MIN_WIDTH = 200
	// Narrowest allowed tagline or CTA box.
	MIN_WIDTH = 100
)

const (
	FALLBACK_TOP_CENTER    = "fallback-top-center"
	FALLBACK_TOP_LEFT      = "fallback-top-left-bottom-right"
	FALLBACK_RIGHT_ALIGNED = "fallback-right-aligned"
)

// Relative box used to build fallback placements. E.g., {x: 0.1, y: 0.08, width: 0.8}
type relativeBox struct {
	x, y, width float64
	align       model.Align
}

type fallbackTemplate struct {
	id       string
	headline relativeBox
	tagline  relativeBox
	cta      relativeBox
}

// Three layouts in different screen regions: centered top band, top-left headline with a
// bottom-right CTA, and a right-aligned stack.
var fallbackTemplates = []fallbackTemplate{
	{
		id:       FALLBACK_TOP_CENTER,
		headline: relativeBox{x: 0.10, y: 0.08, width: 0.80, align: model.AlignCenter},
		tagline:  relativeBox{x: 0.10, y: 0.25, width: 0.80, align: model.AlignCenter},
		cta:      relativeBox{x: 0.35, y: 0.75, width: 0.30, align: model.AlignCenter},
	},
	{
		id:       FALLBACK_TOP_LEFT,
		headline: relativeBox{x: 0.06, y: 0.08, width: 0.55, align: model.AlignLeft},
		tagline:  relativeBox{x: 0.06, y: 0.28, width: 0.55, align: model.AlignLeft},
		cta:      relativeBox{x: 0.60, y: 0.70, width: 0.25, align: model.AlignRight},
	},
	{
		id:       FALLBACK_RIGHT_ALIGNED,
		headline: relativeBox{x: 0.40, y: 0.30, width: 0.54, align: model.AlignRight},
		tagline:  relativeBox{x: 0.40, y: 0.50, width: 0.54, align: model.AlignRight},
		cta:      relativeBox{x: 0.60, y: 0.68, width: 0.34, align: model.AlignRight},
	},
}

// Fallback returns the three deterministic layouts for an image. It does not depend on any
// oracle and its output already satisfies the placement invariants.
func Fallback(dims model.Dimensions, hasTagline bool, logo *model.LogoPosition) []model.LayoutAlternative {
	alternatives := make([]model.LayoutAlternative, 0, len(fallbackTemplates))
	for _, template := range fallbackTemplates {
		alternative := model.LayoutAlternative{
			ID:          template.id,
			Headline:    template.headline.placement(dims, HEADLINE_MIN_WIDTH),
			CTA:         template.cta.placement(dims, MIN_WIDTH),
			Orientation: model.OrientationHorizontal,
		}
		if hasTagline {
			tagline := template.tagline.placement(dims, MIN_WIDTH)
			alternative.Tagline = &tagline
		}
		if logo != nil {
			position := *logo
			alternative.Logo = &position
		}
		alternatives = append(alternatives, alternative)
	}
	return alternatives
}

func (b relativeBox) placement(dims model.Dimensions, minWidth int) model.TextPlacement {
	return clampPlacement(model.TextPlacement{
		X:        int(math.Round(b.x * float64(dims.Width))),
		Y:        int(math.Round(b.y * float64(dims.Height))),
		MaxWidth: int(b.width * float64(dims.Width)),
		Align:    b.align,
	}, dims, minWidth)
}

// clampPlacement snaps the corner to the grid, keeps it EDGE_PADDING inside the image and fits
// the box width between minWidth and the room left before the right edge. When minWidth does
// not fit, the box moves left.
func clampPlacement(p model.TextPlacement, dims model.Dimensions, minWidth int) model.TextPlacement {
	p.X = clampCoordinate(snap(p.X), dims.Width)
	p.Y = clampCoordinate(snap(p.Y), dims.Height)

	room := dims.Width - p.X - EDGE_PADDING
	if room < minWidth {
		p.X = clampCoordinate(snapDown(dims.Width-EDGE_PADDING-minWidth), dims.Width)
		room = dims.Width - p.X - EDGE_PADDING
	}
	p.MaxWidth = max(1, min(max(p.MaxWidth, minWidth), room))

	switch p.Align {
	case model.AlignLeft, model.AlignCenter, model.AlignRight:
	default:
		p.Align = model.AlignLeft
	}
	return p
}

// clampCoordinate keeps v within [EDGE_PADDING, dim-EDGE_PADDING] on the grid.
func clampCoordinate(v int, dim int) int {
	upper := max(EDGE_PADDING, snapDown(dim-EDGE_PADDING))
	return max(EDGE_PADDING, min(v, upper))
}

func snap(v int) int {
	return int(math.Round(float64(v)/GRID)) * GRID
}

func snapDown(v int) int {
	return int(math.Floor(float64(v)/GRID)) * GRID
}

func snapUp(v float64) int {
	return int(math.Ceil(v/GRID)) * GRID
}
