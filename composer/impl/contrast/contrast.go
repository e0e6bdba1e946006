package contrast

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	_ "golang.org/x/image/webp"
)

const (
	// Above this mean channel standard deviation the region is too busy for outlines alone.
	BUSY_VARIANCE = 50.0
	// Below this the region is flat enough for a thin stroke.
	FLAT_VARIANCE = 25.0
	// Flat regions brighter than this get a dark stroke.
	LIGHT_LUMINANCE = 0.7
	// Flat regions darker than this get a light stroke.
	DARK_LUMINANCE = 0.3
	// Text on regions darker than this is white, otherwise dark.
	WHITE_TEXT_LUMINANCE = 0.5

	BACKDROP_OPACITY = 0.6
	STROKE_WIDTH     = 2.0
	SHADOW_OFFSET    = 2.0
	SHADOW_BLUR      = 4.0
)

var (
	White    = colorful.Color{R: 1, G: 1, B: 1}
	DarkText = colorful.Color{R: 0x1a / 255.0, G: 0x1a / 255.0, B: 0x1a / 255.0}
)

// Analyze decodes imageBytes and measures rect on it.
func Analyze(imageBytes []byte, rect model.Rect) (model.RegionStats, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return model.RegionStats{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return AnalyzeImage(img, rect), nil
}

// AnalyzeImage measures the mean color and per-channel spread of rect, clamped to the
// image bounds and kept at least 1x1.
func AnalyzeImage(img image.Image, rect model.Rect) model.RegionStats {
	region := Clamp(img.Bounds(), rect)

	var sum, sumSquares [3]float64
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			for i, v := range [3]uint32{r, g, b} {
				channel := float64(v >> 8)
				sum[i] += channel
				sumSquares[i] += channel * channel
			}
		}
	}

	count := float64(region.Dx() * region.Dy())
	var mean, stddev [3]float64
	for i := range sum {
		mean[i] = sum[i] / count
		stddev[i] = math.Sqrt(math.Max(0, sumSquares[i]/count-mean[i]*mean[i]))
	}

	meanColor := colorful.Color{R: mean[0] / 255, G: mean[1] / 255, B: mean[2] / 255}
	return model.RegionStats{
		Luminance: RelativeLuminance(meanColor),
		Variance:  (stddev[0] + stddev[1] + stddev[2]) / 3,
	}
}

// Clamp intersects rect with bounds. An empty intersection becomes the nearest 1x1 pixel.
func Clamp(bounds image.Rectangle, rect model.Rect) image.Rectangle {
	minX := clampInt(bounds.Min.X+rect.X, bounds.Min.X, bounds.Max.X-1)
	minY := clampInt(bounds.Min.Y+rect.Y, bounds.Min.Y, bounds.Max.Y-1)
	maxX := clampInt(bounds.Min.X+rect.X+rect.Width, minX+1, bounds.Max.X)
	maxY := clampInt(bounds.Min.Y+rect.Y+rect.Height, minY+1, bounds.Max.Y)
	return image.Rect(minX, minY, maxX, maxY)
}

// RelativeLuminance uses the WCAG weights on the channel values as given.
func RelativeLuminance(c colorful.Color) float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

// SelectTreatment picks how overlaid text stays legible on a region.
// E.g., variance 60 -> backdrop{0.6}, variance 10 & luminance 0.9 -> stroke{dark, 2}
func SelectTreatment(luminance float64, variance float64) model.Treatment {
	switch {
	case variance > BUSY_VARIANCE:
		return model.Backdrop(BACKDROP_OPACITY)
	case variance < FLAT_VARIANCE && luminance > LIGHT_LUMINANCE:
		return model.Stroke(model.StrokeDark, STROKE_WIDTH)
	case variance < FLAT_VARIANCE && luminance < DARK_LUMINANCE:
		return model.Stroke(model.StrokeLight, STROKE_WIDTH)
	default:
		return model.Shadow(SHADOW_OFFSET, SHADOW_BLUR)
	}
}

// TextColor is white on dark regions and near-black on light ones.
func TextColor(luminance float64) colorful.Color {
	if luminance < WHITE_TEXT_LUMINANCE {
		return White
	}
	return DarkText
}

// Default is used when a region could not be analyzed.
func Default() (model.Treatment, colorful.Color) {
	return model.Shadow(SHADOW_OFFSET, SHADOW_BLUR), White
}

func clampInt(v int, lo int, hi int) int {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
