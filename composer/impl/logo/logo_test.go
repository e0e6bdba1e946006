package logo

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/visionex-project/adcomposite/composer/impl/model"
)

func pngBytes(t *testing.T, width int, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPlaceDefaultsToBottomRight(t *testing.T) {
	// 2:1 logo on a 1000x800 image: 120x60 after scaling.
	placement, err := Place(pngBytes(t, 400, 200), 1000, 800, nil)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	bounds := placement.Overlay.Bounds()
	if bounds.Dx() != 120 || bounds.Dy() != 60 {
		t.Errorf("size = %dx%d, want 120x60", bounds.Dx(), bounds.Dy())
	}
	if placement.Left != 1000-120-40 || placement.Top != 800-60-40 {
		t.Errorf("position = (%d, %d), want (840, 700)", placement.Left, placement.Top)
	}
}

func TestPlaceUsesGivenPosition(t *testing.T) {
	placement, err := Place(pngBytes(t, 100, 100), 1000, 1000, &model.LogoPosition{X: 60, Y: 80})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placement.Left != 60 || placement.Top != 80 {
		t.Errorf("position = (%d, %d), want (60, 80)", placement.Left, placement.Top)
	}
	if placement.Overlay.Bounds().Dx() != 120 {
		t.Errorf("width = %d", placement.Overlay.Bounds().Dx())
	}
}

func TestPlaceTallLogoUsesActualHeight(t *testing.T) {
	// 1:3 logo: 120x360 on a 1000x1000 image.
	placement, err := Place(pngBytes(t, 50, 150), 1000, 1000, nil)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placement.Top != 1000-360-40 {
		t.Errorf("top = %d, want 600", placement.Top)
	}
}

func TestPlaceRejectsGarbage(t *testing.T) {
	if _, err := Place([]byte("nope"), 100, 100, nil); err == nil {
		t.Error("Place accepted garbage")
	}
}

func TestWidth(t *testing.T) {
	tests := map[int]int{1024: 123, 1000: 120, 1: 1, 0: 1}
	for imageWidth, want := range tests {
		if got := Width(imageWidth); got != want {
			t.Errorf("Width(%d) = %d, want %d", imageWidth, got, want)
		}
	}
}
