package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/visionex-project/adcomposite/composer/impl/kinsoku"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/render"
)

// Validate repairs alternatives so every placement invariant holds, whatever produced them.
// The input is not modified. An alternative whose text stack does not fit between the edges is
// reported with ErrMalformedLayout; the returned alternatives are still the best-effort repair.
func Validate(alternatives []model.LayoutAlternative, request Request) ([]model.LayoutAlternative, error) {
	dims := request.Dimensions
	logo := LogoPosition(request)
	sizes := FontSizes(dims)
	headlineLength := len([]rune(request.HeadlineText))

	var fitErr error
	seenIds := map[string]bool{}
	validated := make([]model.LayoutAlternative, 0, len(alternatives))
	for i, original := range alternatives {
		alternative := model.LayoutAlternative{
			ID:          original.ID,
			Headline:    clampPlacement(original.Headline, dims, HEADLINE_MIN_WIDTH),
			CTA:         clampPlacement(original.CTA, dims, MIN_WIDTH),
			Orientation: original.Orientation,
		}

		if alternative.ID == "" || seenIds[alternative.ID] {
			alternative.ID = uniqueId(i, seenIds)
		}
		seenIds[alternative.ID] = true

		if alternative.Orientation != model.OrientationVertical ||
			!render.IsVerticalEligible(headlineLength, request.HeadlineText, dims.AspectRatio()) {
			alternative.Orientation = model.OrientationHorizontal
		}

		if request.HasTagline {
			tagline := synthesizedTagline(alternative, request, sizes)
			if original.Tagline != nil {
				tagline = *original.Tagline
			}
			tagline = clampPlacement(tagline, dims, MIN_WIDTH)
			alternative.Tagline = &tagline
		}

		if logo != nil {
			position := *logo
			alternative.Logo = &position
		}

		alternative.ContrastZones = clampZones(original.ContrastZones, dims)
		if err := resolveOverlaps(&alternative, request, sizes); err != nil && fitErr == nil {
			fitErr = fmt.Errorf("%w: alternative %s: %w", ErrMalformedLayout, alternative.ID, err)
		}
		validated = append(validated, alternative)
	}
	return validated, fitErr
}

// LogoPosition is the single logo position shared by all alternatives, snapped down onto the
// grid so the logo keeps at least EDGE_PADDING from the edges. Nil without a logo.
func LogoPosition(request Request) *model.LogoPosition {
	if !request.HasLogo {
		return nil
	}
	position := DefaultLogoPosition(request.Dimensions)
	if request.Logo != nil {
		position = *request.Logo
	}
	return &model.LogoPosition{
		X: max(EDGE_PADDING, snapDown(position.X)),
		Y: max(EDGE_PADDING, snapDown(position.Y)),
	}
}

// DefaultLogoPosition assumes a square logo scaled to 12% of the width, bottom-right.
func DefaultLogoPosition(dims model.Dimensions) model.LogoPosition {
	size := int(math.Round(0.12 * float64(dims.Width)))
	return model.LogoPosition{
		X: dims.Width - EDGE_PADDING - size,
		Y: dims.Height - EDGE_PADDING - size,
	}
}

func uniqueId(index int, seen map[string]bool) string {
	for n := index + 1; ; n++ {
		id := fmt.Sprintf("layout-%d", n)
		if !seen[id] {
			return id
		}
	}
}

func synthesizedTagline(alternative model.LayoutAlternative, request Request, sizes Sizes) model.TextPlacement {
	headlineHeight := estimateHeight(request.HeadlineText, alternative.Headline, sizes.Headline, alternative.Orientation)
	return model.TextPlacement{
		X:        alternative.Headline.X,
		Y:        snapUp(float64(alternative.Headline.Y) + headlineHeight + ELEMENT_GAP),
		MaxWidth: alternative.Headline.MaxWidth,
		Align:    alternative.Headline.Align,
	}
}

func clampZones(zones []model.ContrastZone, dims model.Dimensions) []model.ContrastZone {
	clamped := []model.ContrastZone{}
	for _, zone := range zones {
		region := zone.Region
		region.X = max(0, min(region.X, dims.Width-1))
		region.Y = max(0, min(region.Y, dims.Height-1))
		region.Width = max(1, min(region.Width, dims.Width-region.X))
		region.Height = max(1, min(region.Height, dims.Height-region.Y))

		brightness := zone.Brightness
		switch brightness {
		case model.BrightnessLight, model.BrightnessDark, model.BrightnessMixed:
		default:
			brightness = model.BrightnessMixed
		}
		clamped = append(clamped, model.ContrastZone{Region: region, Brightness: brightness})
	}
	return clamped
}

// stackedElement is a placement with its estimated rendered height.
type stackedElement struct {
	placement *model.TextPlacement
	height    float64
}

// resolveOverlaps walks the text elements top to bottom and pushes each one below the previous
// element's bottom plus ELEMENT_GAP. When that pushes the stack past the bottom edge, the whole
// stack moves up by the excess. A stack taller than the image cannot be repaired: the elements
// are clamped into the image and an error is returned.
func resolveOverlaps(alternative *model.LayoutAlternative, request Request, sizes Sizes) error {
	elements := []stackedElement{{
		placement: &alternative.Headline,
		height:    estimateHeight(request.HeadlineText, alternative.Headline, sizes.Headline, alternative.Orientation),
	}}
	if alternative.Tagline != nil {
		elements = append(elements, stackedElement{
			placement: alternative.Tagline,
			height:    estimateHeight(request.TaglineText, *alternative.Tagline, sizes.Tagline, model.OrientationHorizontal),
		})
	}
	elements = append(elements, stackedElement{
		placement: &alternative.CTA,
		height:    sizes.CTA * render.CTA_HEIGHT_RATIO,
	})

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].placement.Y < elements[j].placement.Y
	})

	for i := 1; i < len(elements); i++ {
		previous := elements[i-1]
		boundary := float64(previous.placement.Y) + previous.height + ELEMENT_GAP
		if current := elements[i].placement; float64(current.Y) < boundary {
			current.Y = snapUp(boundary)
		}
	}

	dim := request.Dimensions.Height
	// Lowest grid line an element may start on.
	bottom := clampCoordinate(dim, dim)
	excess := elements[len(elements)-1].placement.Y - bottom
	if excess <= 0 {
		return nil
	}
	shortfall := EDGE_PADDING - (elements[0].placement.Y - excess)
	for _, element := range elements {
		element.placement.Y = clampCoordinate(element.placement.Y-excess, dim)
	}
	if shortfall > 0 {
		return fmt.Errorf("text stack is %dpx taller than the image allows", shortfall)
	}
	return nil
}

// estimateHeight predicts the rendered height of text in placement from the same width model
// the line breaker uses. Empty text counts as one line.
func estimateHeight(text string, placement model.TextPlacement, fontSize float64, orientation model.Orientation) float64 {
	if orientation == model.OrientationVertical {
		return float64(max(1, len([]rune(text)))) * fontSize * render.VERTICAL_SLOT_RATIO
	}
	lines := math.Ceil(kinsoku.EstimateWidth(text, fontSize) / float64(max(1, placement.MaxWidth)))
	return math.Max(1, lines) * fontSize * render.LINE_HEIGHT_RATIO
}
