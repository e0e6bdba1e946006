package oracle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	"github.com/visionex-project/adcomposite/composer/impl/contrast"
	"github.com/visionex-project/adcomposite/composer/impl/layout"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/render"
	"github.com/visionex-project/adcomposite/composer/impl/vision"
	_ "golang.org/x/image/webp"
)

// Regions darker or lighter than these read as dark or light; anything between is mixed.
const (
	DARK_ZONE_LUMINANCE  = 0.4
	LIGHT_ZONE_LUMINANCE = 0.6
)

// A text region relative to the image size. E.g., {x: 0.08, y: 0.06, width: 0.84, height: 0.30}
type candidateRegion struct {
	id                  string
	x, y, width, height float64
	align               model.Align
	// Tall regions can hold a tategaki headline.
	column bool
}

var candidateRegions = []candidateRegion{
	{id: "top-band", x: 0.08, y: 0.06, width: 0.84, height: 0.30, align: model.AlignCenter},
	{id: "bottom-band", x: 0.08, y: 0.62, width: 0.84, height: 0.32, align: model.AlignCenter},
	{id: "left-column", x: 0.06, y: 0.20, width: 0.42, height: 0.60, align: model.AlignLeft, column: true},
	{id: "right-column", x: 0.52, y: 0.20, width: 0.42, height: 0.60, align: model.AlignRight, column: true},
	{id: "middle-band", x: 0.08, y: 0.36, width: 0.84, height: 0.28, align: model.AlignCenter},
}

// SubjectOracle is a rules engine: it detects subjects with Cloud Vision and puts text in the
// 3 candidate regions they cover least, breaking ties by background busyness.
type SubjectOracle struct {
	client vision.Client
}

func NewSubjectOracle(client vision.Client) *SubjectOracle {
	return &SubjectOracle{client: client}
}

type scoredRegion struct {
	rect     model.Rect
	region   candidateRegion
	stats    model.RegionStats
	coverage float64
}

func (o *SubjectOracle) ProposeLayouts(ctx context.Context, request layout.OracleRequest) ([]model.LayoutAlternative, error) {
	img, _, err := image.Decode(bytes.NewReader(request.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	width, height := request.Width, request.Height
	if width <= 0 || height <= 0 {
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	subjects, err := vision.DetectSubjects(ctx, o.client, request.Image, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to localize objects: %w", err)
	}

	scored := make([]scoredRegion, 0, len(candidateRegions))
	for _, region := range candidateRegions {
		rect := model.Rect{
			X:      int(math.Round(region.x * float64(width))),
			Y:      int(math.Round(region.y * float64(height))),
			Width:  int(math.Round(region.width * float64(width))),
			Height: int(math.Round(region.height * float64(height))),
		}
		stats := contrast.AnalyzeImage(img, rect)
		scored = append(scored, scoredRegion{
			rect:     rect,
			region:   region,
			stats:    stats,
			coverage: subjectCoverage(rect, subjects) + stats.Variance/255*0.1,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].coverage < scored[j].coverage
	})

	aspectRatio := model.Dimensions{Width: width, Height: height}.AspectRatio()
	vertical := render.IsVerticalEligible(len([]rune(request.HeadlineText)), request.HeadlineText, aspectRatio)

	alternatives := make([]model.LayoutAlternative, 0, layout.ALTERNATIVES)
	for _, candidate := range scored[:layout.ALTERNATIVES] {
		alternatives = append(alternatives, toAlternative(candidate, request.HasTagline, vertical))
	}
	return alternatives, nil
}

// subjectCoverage is the score-weighted share of rect covered by subjects, capped at 1.
func subjectCoverage(rect model.Rect, subjects []vision.Subject) float64 {
	area := float64(rect.Width * rect.Height)
	if area <= 0 {
		return 1
	}
	covered := 0.0
	for _, subject := range subjects {
		overlapWidth := min(rect.X+rect.Width, subject.Right) - max(rect.X, subject.Left)
		overlapHeight := min(rect.Y+rect.Height, subject.Bottom) - max(rect.Y, subject.Top)
		if overlapWidth > 0 && overlapHeight > 0 {
			covered += float64(overlapWidth*overlapHeight) * float64(subject.Score)
		}
	}
	return min(1, covered/area)
}

func toAlternative(candidate scoredRegion, hasTagline bool, verticalEligible bool) model.LayoutAlternative {
	rect := candidate.rect
	align := candidate.region.align

	ctaWidth := rect.Width / 2
	ctaX := rect.X
	switch align {
	case model.AlignCenter:
		ctaX = rect.X + (rect.Width-ctaWidth)/2
	case model.AlignRight:
		ctaX = rect.X + rect.Width - ctaWidth
	}

	alternative := model.LayoutAlternative{
		ID:          "subject-" + candidate.region.id,
		Headline:    model.TextPlacement{X: rect.X, Y: rect.Y, MaxWidth: rect.Width, Align: align},
		CTA:         model.TextPlacement{X: ctaX, Y: rect.Y + rect.Height*4/5, MaxWidth: ctaWidth, Align: align},
		Orientation: model.OrientationHorizontal,
		ContrastZones: []model.ContrastZone{
			{Region: rect, Brightness: brightness(candidate.stats)},
		},
	}
	if hasTagline {
		alternative.Tagline = &model.TextPlacement{X: rect.X, Y: rect.Y + rect.Height*2/5, MaxWidth: rect.Width, Align: align}
	}
	if candidate.region.column && verticalEligible {
		alternative.Orientation = model.OrientationVertical
	}
	return alternative
}

func brightness(stats model.RegionStats) model.Brightness {
	switch {
	case stats.Variance > contrast.BUSY_VARIANCE:
		return model.BrightnessMixed
	case stats.Luminance > LIGHT_ZONE_LUMINANCE:
		return model.BrightnessLight
	case stats.Luminance < DARK_ZONE_LUMINANCE:
		return model.BrightnessDark
	default:
		return model.BrightnessMixed
	}
}
