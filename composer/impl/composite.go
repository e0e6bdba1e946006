package impl

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log"
	"math"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/visionex-project/adcomposite/composer/impl/contrast"
	"github.com/visionex-project/adcomposite/composer/impl/layout"
	"github.com/visionex-project/adcomposite/composer/impl/logo"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/render"
	"github.com/visionex-project/adcomposite/pkg/utils"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Overlay names reported in LayoutMetadata.OmittedOverlays.
const (
	OVERLAY_TAGLINE = "tagline"
	OVERLAY_CTA     = "cta"
	OVERLAY_LOGO    = "logo"
)

// CompositeImages renders up to 3 composites per base image. Images that fail are logged and left
// out; only when every image fails is an error returned, wrapping the first image's cause.
func (c *Compositor) CompositeImages(ctx context.Context, baseImages []BaseImage, adCopy Copy, brand Brand) ([]model.CompositingResult, error) {
	if len(baseImages) == 0 {
		return []model.CompositingResult{}, nil
	}

	assets := c.prepareBrand(brand)

	results := make([]*model.CompositingResult, len(baseImages))
	errs := make([]error, len(baseImages))

	var group errgroup.Group
	if c.concurrency > 0 {
		group.SetLimit(c.concurrency)
	}
	for i, baseImage := range baseImages {
		i, baseImage := i, baseImage
		group.Go(func() error {
			result, err := c.compositeImage(ctx, baseImage, adCopy, assets)
			if err != nil {
				log.Printf("Failed to composite image %s: %v", baseImage.ID, err)
				errs[i] = err
				return nil
			}
			results[i] = result
			return nil
		})
	}
	group.Wait()

	succeeded := utils.Filter(results, func(result *model.CompositingResult) bool {
		return result != nil
	})
	if len(succeeded) == 0 {
		return nil, fmt.Errorf("%w (%d images): %w", ErrAllImagesFailed, len(baseImages), errs[0])
	}
	return utils.Map(succeeded, func(result *model.CompositingResult) model.CompositingResult {
		return *result
	}), nil
}

// Brand assets decoded once and shared read-only by every image.
type brandAssets struct {
	brand Brand
	logo  image.Image
	// Set when the brand has a logo that could not be decoded.
	logoFailed bool
	ctaColor   colorful.Color
}

func (c *Compositor) prepareBrand(brand Brand) brandAssets {
	assets := brandAssets{brand: brand, ctaColor: ctaColor(brand.Colors)}
	if len(brand.Logo) > 0 {
		logoImage, _, err := image.Decode(bytes.NewReader(brand.Logo))
		if err != nil {
			log.Printf("Failed to decode brand logo, compositing without it: %v", err)
			assets.logoFailed = true
		} else {
			assets.logo = logoImage
		}
	}
	return assets
}

// ctaColor picks the accent color, then the primary one, then DEFAULT_CTA_COLOR.
func ctaColor(colors model.BrandColors) colorful.Color {
	for _, hex := range []string{colors.Accent, colors.Primary} {
		if hex == "" {
			continue
		}
		if color, err := colorful.Hex(hex); err == nil {
			return color
		}
	}
	color, _ := colorful.Hex(DEFAULT_CTA_COLOR)
	return color
}

func (c *Compositor) compositeImage(ctx context.Context, baseImage BaseImage, adCopy Copy, assets brandAssets) (result *model.CompositingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %s: panic: %v", ErrImageFailure, baseImage.ID, r)
		}
	}()

	data, err := c.load(ctx, baseImage)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrImageFailure, baseImage.ID, err)
	}
	base, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w %s: failed to decode image: %w", ErrImageFailure, baseImage.ID, err)
	}
	dims := model.Dimensions{Width: base.Bounds().Dx(), Height: base.Bounds().Dy()}
	if baseImage.Width != 0 && (baseImage.Width != dims.Width || baseImage.Height != dims.Height) {
		log.Printf("Image %s declares %dx%d but decodes to %dx%d, using the decoded size",
			baseImage.ID, baseImage.Width, baseImage.Height, dims.Width, dims.Height)
	}

	tagline := ""
	if length := utf8.RuneCountInString(adCopy.BodyText); length > 0 && length <= MAX_TAGLINE_LENGTH {
		tagline = adCopy.BodyText
	}

	request := layout.Request{
		Image:        data,
		Dimensions:   dims,
		HasTagline:   tagline != "",
		HasLogo:      assets.logo != nil,
		HeadlineText: adCopy.Headline,
		TaglineText:  tagline,
	}
	if assets.logo != nil {
		placement := logo.PlaceImage(assets.logo, dims.Width, dims.Height, nil)
		request.Logo = &model.LogoPosition{X: placement.Left, Y: placement.Top}
	}
	alternatives := c.layouts.GetLayouts(ctx, request)

	type alternativeResult struct {
		index     int
		composite model.Composite
		err       error
	}
	resultChan := make(chan alternativeResult, len(alternatives))
	for i, alternative := range alternatives {
		go func(index int, alternative model.LayoutAlternative) {
			composite, err := c.renderAlternative(base, baseImage.ID, alternative, adCopy, tagline, assets)
			resultChan <- alternativeResult{index: index, composite: composite, err: err}
		}(i, alternative)
	}

	composites := make([]*model.Composite, len(alternatives))
	var firstErr error
	for range alternatives {
		result := <-resultChan
		if result.err != nil {
			log.Printf("Failed to render layout %s of image %s: %v", alternatives[result.index].ID, baseImage.ID, result.err)
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		composite := result.composite
		composites[result.index] = &composite
	}

	rendered := utils.Filter(composites, func(composite *model.Composite) bool {
		return composite != nil
	})
	if len(rendered) == 0 {
		return nil, fmt.Errorf("%w %s: %w: %v", ErrImageFailure, baseImage.ID, ErrNoAlternatives, firstErr)
	}
	return &model.CompositingResult{
		BaseImageID: baseImage.ID,
		Composites: utils.Map(rendered, func(composite *model.Composite) model.Composite {
			return *composite
		}),
	}, nil
}

func (c *Compositor) load(ctx context.Context, baseImage BaseImage) ([]byte, error) {
	if len(baseImage.Bytes) > 0 {
		return baseImage.Bytes, nil
	}
	if baseImage.URL == "" {
		return nil, fmt.Errorf("image has neither bytes nor a URL")
	}
	if c.fetcher == nil {
		return nil, fmt.Errorf("no fetcher for %s", baseImage.URL)
	}
	data, err := c.fetcher.Fetch(ctx, baseImage.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	return data, nil
}

// renderAlternative draws one layout alternative onto a copy of base. A failing headline fails the
// alternative; failing tagline, CTA or logo overlays are left out and listed in the metadata.
func (c *Compositor) renderAlternative(
	base image.Image,
	baseImageID string,
	alternative model.LayoutAlternative,
	adCopy Copy,
	tagline string,
	assets brandAssets,
) (composite model.Composite, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while rendering: %v", r)
		}
	}()

	dims := model.Dimensions{Width: base.Bounds().Dx(), Height: base.Bounds().Dy()}
	sizes := layout.FontSizes(dims)
	brand := assets.brand
	overlays := []*render.Overlay{}
	omitted := []string{}

	headline, treatment, textColor, err := c.renderHeadline(base, dims, alternative, adCopy.Headline, sizes.Headline, brand.FontFamily)
	if err != nil {
		return model.Composite{}, fmt.Errorf("failed to render headline: %w", err)
	}
	overlays = append(overlays, headline.overlay)

	metadata := model.LayoutMetadata{
		CompositeID: uuid.NewString(),
		LayoutID:    alternative.ID,
		BaseImageID: baseImageID,
		Orientation: alternative.Orientation,
		Width:       dims.Width,
		Height:      dims.Height,
		Headline:    headline.metadata,
		Treatment:   treatment,
		TextColor:   textColor.Hex(),
		FontFamily:  brand.FontFamily,
		BrandColors: brand.Colors,
	}

	if tagline != "" && alternative.Tagline != nil {
		overlay, taglineMetadata, err := c.renderTagline(base, *alternative.Tagline, tagline, sizes.Tagline, brand.FontFamily)
		if err != nil {
			log.Printf("Failed to render tagline of layout %s: %v", alternative.ID, err)
			omitted = append(omitted, OVERLAY_TAGLINE)
		} else {
			overlays = append(overlays, overlay)
			metadata.Tagline = taglineMetadata
		}
	}

	if adCopy.CTAText != "" {
		overlay, err := c.renderer.RenderCTA(adCopy.CTAText, sizes.CTA, brand.FontFamily, assets.ctaColor, contrast.White)
		if err != nil {
			log.Printf("Failed to render CTA of layout %s: %v", alternative.ID, err)
			omitted = append(omitted, OVERLAY_CTA)
		} else {
			overlay.Left = render.PlaceInBox(overlay.Width(), alternative.CTA)
			overlay.Top = alternative.CTA.Y
			overlays = append(overlays, overlay)
			metadata.CTA = &model.TextMetadata{
				Text:     adCopy.CTAText,
				X:        overlay.Left,
				Y:        overlay.Top,
				FontSize: sizes.CTA,
				Lines:    []string{adCopy.CTAText},
				Align:    alternative.CTA.Align,
			}
			metadata.CTAColor = assets.ctaColor.Hex()
		}
	}

	var logoPlacement *logo.Placement
	switch {
	case assets.logoFailed:
		omitted = append(omitted, OVERLAY_LOGO)
	case assets.logo != nil && alternative.Logo != nil:
		logoPlacement = logo.PlaceImage(assets.logo, dims.Width, dims.Height, alternative.Logo)
		metadata.Logo = &model.LogoPosition{X: logoPlacement.Left, Y: logoPlacement.Top}
	}
	if len(omitted) > 0 {
		metadata.OmittedOverlays = omitted
	}

	drawingContext := gg.NewContextForImage(base)
	for _, overlay := range overlays {
		drawingContext.DrawImage(overlay.Image, overlay.Left, overlay.Top)
	}
	if logoPlacement != nil {
		drawingContext.DrawImage(logoPlacement.Overlay, logoPlacement.Left, logoPlacement.Top)
	}

	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, drawingContext.Image()); err != nil {
		return model.Composite{}, fmt.Errorf("failed to encode composite: %w", err)
	}

	return model.Composite{
		LayoutID: alternative.ID,
		Image:    buffer.Bytes(),
		Metadata: metadata,
	}, nil
}

type renderedText struct {
	overlay  *render.Overlay
	metadata model.TextMetadata
}

// renderHeadline breaks and draws the headline in the alternative's orientation, choosing the
// treatment from the pixels under it.
func (c *Compositor) renderHeadline(
	base image.Image,
	dims model.Dimensions,
	alternative model.LayoutAlternative,
	text string,
	fontSize float64,
	fontFamily string,
) (renderedText, model.Treatment, colorful.Color, error) {
	placement := alternative.Headline

	if alternative.Orientation == model.OrientationVertical {
		columnLength := float64(dims.Height - placement.Y - layout.EDGE_PADDING)
		lines := c.lineBreaker.BreakText(text, columnLength, fontSize, model.OrientationVertical).Lines

		slot := fontSize * render.VERTICAL_SLOT_RATIO
		longest := 0
		for _, line := range lines {
			longest = max(longest, utf8.RuneCountInString(line))
		}
		width := int(math.Round(slot * float64(len(lines))))
		left := render.PlaceInBox(width, placement)
		treatment, textColor := analyze(base, model.Rect{
			X:      left,
			Y:      placement.Y,
			Width:  width,
			Height: int(math.Round(slot * float64(longest))),
		}, len(lines))

		overlay, err := c.renderer.RenderVerticalLines(lines, fontSize, fontFamily, textColor, treatment)
		if err != nil {
			return renderedText{}, model.Treatment{}, colorful.Color{}, err
		}
		overlay.Left = left - render.PADDING
		overlay.Top = placement.Y - render.PADDING
		return renderedText{
			overlay: overlay,
			metadata: model.TextMetadata{
				Text: text, X: left, Y: placement.Y, FontSize: fontSize, Lines: lines, Align: placement.Align,
			},
		}, treatment, textColor, nil
	}

	lines := c.lineBreaker.BreakText(text, float64(placement.MaxWidth), fontSize, model.OrientationHorizontal).Lines
	treatment, textColor := analyze(base, textRect(placement, fontSize, len(lines)), len(lines))
	overlay, err := c.renderer.RenderText(render.TextElement{
		Text:       text,
		Placement:  placement,
		FontSize:   fontSize,
		FontFamily: fontFamily,
		Color:      textColor,
		Bold:       true,
	}, treatment, lines)
	if err != nil {
		return renderedText{}, model.Treatment{}, colorful.Color{}, err
	}
	return renderedText{
		overlay: overlay,
		metadata: model.TextMetadata{
			Text: text, X: placement.X, Y: placement.Y, FontSize: fontSize, Lines: lines, Align: placement.Align,
		},
	}, treatment, textColor, nil
}

func (c *Compositor) renderTagline(base image.Image, placement model.TextPlacement, text string, fontSize float64, fontFamily string) (*render.Overlay, *model.TextMetadata, error) {
	lines := c.lineBreaker.BreakText(text, float64(placement.MaxWidth), fontSize, model.OrientationHorizontal).Lines
	treatment, textColor := analyze(base, textRect(placement, fontSize, len(lines)), len(lines))
	overlay, err := c.renderer.RenderText(render.TextElement{
		Text:       text,
		Placement:  placement,
		FontSize:   fontSize,
		FontFamily: fontFamily,
		Color:      textColor,
	}, treatment, lines)
	if err != nil {
		return nil, nil, err
	}
	return overlay, &model.TextMetadata{
		Text: text, X: placement.X, Y: placement.Y, FontSize: fontSize, Lines: lines, Align: placement.Align,
	}, nil
}

// textRect is the box horizontal text of the given line count occupies.
func textRect(placement model.TextPlacement, fontSize float64, lineCount int) model.Rect {
	return model.Rect{
		X:      placement.X,
		Y:      placement.Y,
		Width:  placement.MaxWidth,
		Height: int(math.Round(fontSize * render.LINE_HEIGHT_RATIO * float64(max(lineCount, 1)))),
	}
}

// analyze picks treatment and text color from the pixels under rect. Empty text gets the defaults.
func analyze(base image.Image, rect model.Rect, lineCount int) (model.Treatment, colorful.Color) {
	if lineCount == 0 {
		return contrast.Default()
	}
	stats := contrast.AnalyzeImage(base, rect)
	return contrast.SelectTreatment(stats.Luminance, stats.Variance), contrast.TextColor(stats.Luminance)
}
