package logo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	_ "golang.org/x/image/webp"
)

const (
	// Logo width relative to the base image width.
	WIDTH_RATIO = 0.12
	// Distance of the default placement from the right and bottom edges.
	EDGE_PADDING = 40
)

type Placement struct {
	Overlay *image.NRGBA
	Top     int
	Left    int
}

// Place decodes logoBytes and places it. See PlaceImage.
func Place(logoBytes []byte, imageWidth int, imageHeight int, position *model.LogoPosition) (*Placement, error) {
	logo, _, err := image.Decode(bytes.NewReader(logoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo: %w", err)
	}
	return PlaceImage(logo, imageWidth, imageHeight, position), nil
}

// PlaceImage scales logo to 12% of the image width and puts it at position, or bottom-right
// with EDGE_PADDING when position is nil.
func PlaceImage(logo image.Image, imageWidth int, imageHeight int, position *model.LogoPosition) *Placement {
	resized := imaging.Resize(logo, Width(imageWidth), 0, imaging.Lanczos)

	if position != nil {
		return &Placement{Overlay: resized, Top: position.Y, Left: position.X}
	}
	return &Placement{
		Overlay: resized,
		Top:     imageHeight - resized.Bounds().Dy() - EDGE_PADDING,
		Left:    imageWidth - resized.Bounds().Dx() - EDGE_PADDING,
	}
}

// Width of the scaled logo for an image of the given width, at least one pixel.
func Width(imageWidth int) int {
	return max(1, int(math.Round(WIDTH_RATIO*float64(imageWidth))))
}
