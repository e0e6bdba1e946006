package layout

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/render"
	"golang.org/x/time/rate"
)

type staticOracle struct {
	alternatives []model.LayoutAlternative
	err          error
	calls        atomic.Int32
}

func (o *staticOracle) ProposeLayouts(ctx context.Context, request OracleRequest) ([]model.LayoutAlternative, error) {
	o.calls.Add(1)
	return o.alternatives, o.err
}

type panicOracle struct{}

func (panicOracle) ProposeLayouts(ctx context.Context, request OracleRequest) ([]model.LayoutAlternative, error) {
	panic("vision model exploded")
}

// stuckOracle ignores ctx and only returns once release is closed.
type stuckOracle struct {
	release chan struct{}
}

func (o stuckOracle) ProposeLayouts(ctx context.Context, request OracleRequest) ([]model.LayoutAlternative, error) {
	<-o.release
	return nil, errors.New("too late")
}

func checkInvariants(t *testing.T, alternatives []model.LayoutAlternative, request Request) {
	t.Helper()
	dims := request.Dimensions
	if len(alternatives) != 3 {
		t.Fatalf("got %d alternatives, want 3", len(alternatives))
	}

	checkCoordinate := func(name string, v int, dim int) {
		t.Helper()
		if v < EDGE_PADDING || v > dim-EDGE_PADDING || v%GRID != 0 {
			t.Errorf("%s = %d, want a multiple of %d in [%d, %d]", name, v, GRID, EDGE_PADDING, dim-EDGE_PADDING)
		}
	}
	checkPlacement := func(id string, name string, p model.TextPlacement, minWidth int) {
		t.Helper()
		checkCoordinate(id+" "+name+".x", p.X, dims.Width)
		checkCoordinate(id+" "+name+".y", p.Y, dims.Height)
		if p.MaxWidth < minWidth {
			t.Errorf("%s %s.maxWidth = %d, want >= %d", id, name, p.MaxWidth, minWidth)
		}
		if p.X+p.MaxWidth > dims.Width-EDGE_PADDING {
			t.Errorf("%s %s overflows the right edge: x %d + maxWidth %d", id, name, p.X, p.MaxWidth)
		}
		switch p.Align {
		case model.AlignLeft, model.AlignCenter, model.AlignRight:
		default:
			t.Errorf("%s %s.align = %q", id, name, p.Align)
		}
	}

	ids := map[string]bool{}
	for _, alternative := range alternatives {
		if alternative.ID == "" || ids[alternative.ID] {
			t.Errorf("id %q is empty or duplicated", alternative.ID)
		}
		ids[alternative.ID] = true

		checkPlacement(alternative.ID, "headline", alternative.Headline, HEADLINE_MIN_WIDTH)
		checkPlacement(alternative.ID, "cta", alternative.CTA, MIN_WIDTH)
		if request.HasTagline != (alternative.Tagline != nil) {
			t.Errorf("%s tagline = %v, hasTagline %v", alternative.ID, alternative.Tagline, request.HasTagline)
		}
		if alternative.Tagline != nil {
			checkPlacement(alternative.ID, "tagline", *alternative.Tagline, MIN_WIDTH)
		}

		if request.HasLogo != (alternative.Logo != nil) {
			t.Fatalf("%s logo = %v, hasLogo %v", alternative.ID, alternative.Logo, request.HasLogo)
		}
		if alternative.Logo != nil {
			checkCoordinate(alternative.ID+" logo.x", alternative.Logo.X, dims.Width)
			checkCoordinate(alternative.ID+" logo.y", alternative.Logo.Y, dims.Height)
			if *alternative.Logo != *alternatives[0].Logo {
				t.Errorf("%s logo %v differs from %v", alternative.ID, *alternative.Logo, *alternatives[0].Logo)
			}
		}

		switch alternative.Orientation {
		case model.OrientationHorizontal, model.OrientationVertical:
		default:
			t.Errorf("%s orientation = %q", alternative.ID, alternative.Orientation)
		}
	}
}

// checkStacked verifies that no text element starts above the previous element's estimated
// bottom plus ELEMENT_GAP.
func checkStacked(t *testing.T, alternatives []model.LayoutAlternative, request Request) {
	t.Helper()
	sizes := FontSizes(request.Dimensions)
	for _, alternative := range alternatives {
		type element struct {
			name   string
			y      int
			height float64
		}
		elements := []element{
			{"headline", alternative.Headline.Y, estimateHeight(request.HeadlineText, alternative.Headline, sizes.Headline, alternative.Orientation)},
			{"cta", alternative.CTA.Y, sizes.CTA * render.CTA_HEIGHT_RATIO},
		}
		if alternative.Tagline != nil {
			elements = append(elements, element{"tagline", alternative.Tagline.Y, estimateHeight(request.TaglineText, *alternative.Tagline, sizes.Tagline, model.OrientationHorizontal)})
		}
		sort.SliceStable(elements, func(i, j int) bool { return elements[i].y < elements[j].y })
		for i := 1; i < len(elements); i++ {
			previous := elements[i-1]
			if bottom := float64(previous.y) + previous.height + ELEMENT_GAP; float64(elements[i].y) < bottom {
				t.Errorf("%s %s at y %d overlaps %s ending at %.1f", alternative.ID, elements[i].name, elements[i].y, previous.name, bottom)
			}
		}
	}
}

func squareRequest() Request {
	return Request{
		Image:        []byte("png"),
		Dimensions:   model.Dimensions{Width: 1024, Height: 1024},
		HeadlineText: "新春セール開催中！今だけの特別価格でお買い求めいただけます",
	}
}

func TestGetLayoutsOracleThrows(t *testing.T) {
	request := squareRequest()
	engine := New(&staticOracle{err: errors.New("connection refused")}, time.Second)

	alternatives := engine.GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)

	wantIds := []string{FALLBACK_TOP_CENTER, FALLBACK_TOP_LEFT, FALLBACK_RIGHT_ALIGNED}
	for i, alternative := range alternatives {
		if alternative.ID != wantIds[i] {
			t.Errorf("alternative %d id = %q, want %q", i, alternative.ID, wantIds[i])
		}
	}
}

func TestGetLayoutsFallbackVariants(t *testing.T) {
	logoPosition := &model.LogoPosition{X: 861, Y: 903}
	tests := []struct {
		name    string
		request Request
	}{
		{"square with tagline and logo", Request{Dimensions: model.Dimensions{Width: 1024, Height: 1024}, HasTagline: true, HasLogo: true, HeadlineText: "夏のSALE"}},
		{"given logo position", Request{Dimensions: model.Dimensions{Width: 1024, Height: 1024}, HasLogo: true, Logo: logoPosition, HeadlineText: "夏"}},
		{"wide banner", Request{Dimensions: model.Dimensions{Width: 1920, Height: 1005}, HasTagline: true, HeadlineText: "新春セール"}},
		{"portrait story", Request{Dimensions: model.Dimensions{Width: 1080, Height: 1920}, HasTagline: true, HasLogo: true, HeadlineText: "今だけ"}},
		{"small square", Request{Dimensions: model.Dimensions{Width: 400, Height: 400}, HasTagline: true, HasLogo: true, HeadlineText: "新春セール開催中"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alternatives := New(nil, 0).GetLayouts(context.Background(), tt.request)
			checkInvariants(t, alternatives, tt.request)
			checkStacked(t, alternatives, tt.request)
		})
	}
}

func TestGetLayoutsRepairsOracleOutput(t *testing.T) {
	request := squareRequest()
	request.HasTagline = true
	request.HasLogo = true
	request.HeadlineText = "SUMMER SALE"

	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{
			ID:          "",
			Headline:    model.TextPlacement{X: -50, Y: 5000, MaxWidth: 10, Align: "diagonal"},
			CTA:         model.TextPlacement{X: 1010, Y: 1010, MaxWidth: 5000, Align: model.AlignRight},
			Logo:        &model.LogoPosition{X: 1, Y: 1},
			Orientation: model.OrientationVertical,
		},
		{
			ID:          "dup",
			Headline:    model.TextPlacement{X: 333, Y: 111, MaxWidth: 999, Align: model.AlignCenter},
			Tagline:     &model.TextPlacement{X: 7, Y: 13, MaxWidth: 50, Align: model.AlignLeft},
			CTA:         model.TextPlacement{X: 500, Y: 700, MaxWidth: 200, Align: model.AlignCenter},
			Orientation: "diagonal",
			ContrastZones: []model.ContrastZone{
				{Region: model.Rect{X: -10, Y: 900, Width: 5000, Height: 5000}, Brightness: "sparkly"},
			},
		},
		{
			ID:          "dup",
			Headline:    model.TextPlacement{X: 600, Y: 400, MaxWidth: 300, Align: model.AlignRight},
			CTA:         model.TextPlacement{X: 600, Y: 800, MaxWidth: 300, Align: model.AlignRight},
			Orientation: model.OrientationHorizontal,
		},
	}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)

	if alternatives[0].ID != "layout-1" || alternatives[1].ID != "dup" || alternatives[2].ID != "layout-3" {
		t.Errorf("ids = %q, %q, %q", alternatives[0].ID, alternatives[1].ID, alternatives[2].ID)
	}
	if alternatives[0].Orientation != model.OrientationHorizontal {
		t.Errorf("latin headline kept orientation %q", alternatives[0].Orientation)
	}
	if alternatives[0].Headline.Align != model.AlignLeft {
		t.Errorf("unknown align became %q", alternatives[0].Headline.Align)
	}
	if got := *alternatives[0].Logo; got != (model.LogoPosition{X: 860, Y: 860}) {
		t.Errorf("logo = %v, want oracle position ignored", got)
	}
	zones := alternatives[1].ContrastZones
	if len(zones) != 1 || zones[0].Brightness != model.BrightnessMixed || zones[0].Region.X != 0 || zones[0].Region.X+zones[0].Region.Width > 1024 {
		t.Errorf("zones = %+v", zones)
	}
	if oracle.alternatives[0].Headline.X != -50 {
		t.Error("Validate modified the oracle's alternatives")
	}
}

func TestGetLayoutsKeepsEligibleVertical(t *testing.T) {
	request := squareRequest()
	request.HeadlineText = "新春セール"
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{ID: "a", Headline: model.TextPlacement{X: 800, Y: 80, MaxWidth: 200}, CTA: model.TextPlacement{X: 100, Y: 800, MaxWidth: 200}, Orientation: model.OrientationVertical},
		{ID: "b", Headline: model.TextPlacement{X: 80, Y: 80, MaxWidth: 400}, CTA: model.TextPlacement{X: 100, Y: 800, MaxWidth: 200}, Orientation: model.OrientationHorizontal},
		{ID: "c", Headline: model.TextPlacement{X: 80, Y: 600, MaxWidth: 400}, CTA: model.TextPlacement{X: 600, Y: 800, MaxWidth: 200}, Orientation: model.OrientationHorizontal},
	}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
	if alternatives[0].Orientation != model.OrientationVertical {
		t.Errorf("orientation = %q, want vertical", alternatives[0].Orientation)
	}

	// The same alternative on a wide banner is demoted.
	request.Dimensions = model.Dimensions{Width: 1920, Height: 1005}
	alternatives = New(oracle, time.Second).GetLayouts(context.Background(), request)
	if alternatives[0].Orientation != model.OrientationHorizontal {
		t.Errorf("banner orientation = %q, want horizontal", alternatives[0].Orientation)
	}
}

func TestGetLayoutsResolvesOverlaps(t *testing.T) {
	request := squareRequest()
	request.HeadlineText = "新春セール"
	request.HasTagline = true
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{
			ID:       "stacked",
			Headline: model.TextPlacement{X: 100, Y: 100, MaxWidth: 600, Align: model.AlignLeft},
			Tagline:  &model.TextPlacement{X: 100, Y: 100, MaxWidth: 600, Align: model.AlignLeft},
			CTA:      model.TextPlacement{X: 100, Y: 120, MaxWidth: 300, Align: model.AlignLeft},
		},
		{ID: "b", Headline: model.TextPlacement{X: 80, Y: 500, MaxWidth: 400}, CTA: model.TextPlacement{X: 100, Y: 800, MaxWidth: 200}},
		{ID: "c", Headline: model.TextPlacement{X: 500, Y: 300, MaxWidth: 400}, CTA: model.TextPlacement{X: 600, Y: 800, MaxWidth: 200}},
	}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)

	stacked := alternatives[0]
	// Headline: one 56px line, 78.4px tall, so the tagline starts at 100 + 78.4 + 20 -> 200.
	if stacked.Headline.Y != 100 || stacked.Tagline.Y != 200 {
		t.Errorf("headline y = %d, tagline y = %d, want 100 and 200", stacked.Headline.Y, stacked.Tagline.Y)
	}
	// Tagline: one 28px line, 39.2px tall -> 259.2 -> 260.
	if stacked.CTA.Y != 260 {
		t.Errorf("cta y = %d, want 260", stacked.CTA.Y)
	}
}

func TestGetLayoutsShiftsStackAboveBottomEdge(t *testing.T) {
	request := squareRequest()
	request.HeadlineText = "新春セール"
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{
			ID:       "bottom",
			Headline: model.TextPlacement{X: 80, Y: 960, MaxWidth: 840, Align: model.AlignCenter},
			CTA:      model.TextPlacement{X: 400, Y: 970, MaxWidth: 300, Align: model.AlignCenter},
		},
		{ID: "b", Headline: model.TextPlacement{X: 80, Y: 500, MaxWidth: 400}, CTA: model.TextPlacement{X: 100, Y: 800, MaxWidth: 200}},
		{ID: "c", Headline: model.TextPlacement{X: 500, Y: 300, MaxWidth: 400}, CTA: model.TextPlacement{X: 600, Y: 800, MaxWidth: 200}},
	}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
	checkStacked(t, alternatives, request)

	bottom := alternatives[0]
	if bottom.ID != "bottom" {
		t.Fatalf("id = %q, want the oracle's alternative", bottom.ID)
	}
	// The CTA is pushed to 960 + 78.4 + 20 -> 1060, 80px below the last grid line, so both move up by 80.
	if bottom.Headline.Y != 880 || bottom.CTA.Y != 980 {
		t.Errorf("headline y = %d, cta y = %d, want 880 and 980", bottom.Headline.Y, bottom.CTA.Y)
	}
}

func TestGetLayoutsRejectsStackTallerThanImage(t *testing.T) {
	request := squareRequest()
	request.HasTagline = true
	request.TaglineText = "今だけの特別価格でお買い求めいただけます。送料無料でお届け"
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{
			ID:       "tall",
			Headline: model.TextPlacement{X: 40, Y: 40, MaxWidth: 200, Align: model.AlignLeft},
			Tagline:  &model.TextPlacement{X: 40, Y: 60, MaxWidth: 100, Align: model.AlignLeft},
			CTA:      model.TextPlacement{X: 40, Y: 80, MaxWidth: 200, Align: model.AlignLeft},
		},
		{ID: "b", Headline: model.TextPlacement{X: 80, Y: 500, MaxWidth: 400}, CTA: model.TextPlacement{X: 100, Y: 800, MaxWidth: 200}},
		{ID: "c", Headline: model.TextPlacement{X: 500, Y: 300, MaxWidth: 400}, CTA: model.TextPlacement{X: 600, Y: 800, MaxWidth: 200}},
	}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
	checkStacked(t, alternatives, request)
	if alternatives[0].ID != FALLBACK_TOP_CENTER {
		t.Errorf("id = %q, want fallback", alternatives[0].ID)
	}

	if _, err := Validate(oracle.alternatives, request); !errors.Is(err, ErrMalformedLayout) {
		t.Errorf("Validate error = %v, want ErrMalformedLayout", err)
	}
}

func TestGetLayoutsWrongCount(t *testing.T) {
	request := squareRequest()
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{
		{ID: "only-one", Headline: model.TextPlacement{X: 80, Y: 80, MaxWidth: 400}},
	}}
	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
	if alternatives[0].ID != FALLBACK_TOP_CENTER {
		t.Errorf("id = %q, want fallback", alternatives[0].ID)
	}
}

func TestGetLayoutsIdenticalAlternatives(t *testing.T) {
	request := squareRequest()
	same := model.LayoutAlternative{Headline: model.TextPlacement{X: 80, Y: 80, MaxWidth: 400}, CTA: model.TextPlacement{X: 80, Y: 800, MaxWidth: 200}}
	oracle := &staticOracle{alternatives: []model.LayoutAlternative{same, same, same}}

	alternatives := New(oracle, time.Second).GetLayouts(context.Background(), request)
	if alternatives[0].ID != FALLBACK_TOP_CENTER {
		t.Errorf("id = %q, want fallback", alternatives[0].ID)
	}
}

func TestGetLayoutsOraclePanics(t *testing.T) {
	request := squareRequest()
	alternatives := New(panicOracle{}, time.Second).GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
}

func TestGetLayoutsTimeout(t *testing.T) {
	request := squareRequest()
	oracle := stuckOracle{release: make(chan struct{})}
	defer close(oracle.release)

	start := time.Now()
	alternatives := New(oracle, 50*time.Millisecond).GetLayouts(context.Background(), request)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("GetLayouts took %v", elapsed)
	}
	checkInvariants(t, alternatives, request)
	if alternatives[0].ID != FALLBACK_TOP_CENTER {
		t.Errorf("id = %q, want fallback", alternatives[0].ID)
	}
}

func TestGetLayoutsRateLimited(t *testing.T) {
	request := squareRequest()
	oracle := &staticOracle{err: errors.New("unused")}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	engine := New(oracle, 100*time.Millisecond, WithLimiter(limiter))

	engine.GetLayouts(context.Background(), request)
	alternatives := engine.GetLayouts(context.Background(), request)
	checkInvariants(t, alternatives, request)
	if calls := oracle.calls.Load(); calls != 1 {
		t.Errorf("oracle called %d times, want 1", calls)
	}
}

func TestFallbackIsPure(t *testing.T) {
	dims := model.Dimensions{Width: 1024, Height: 1024}
	alternatives := Fallback(dims, false, nil)
	if len(alternatives) != 3 {
		t.Fatalf("got %d alternatives", len(alternatives))
	}
	want := model.TextPlacement{X: 100, Y: 80, MaxWidth: 819, Align: model.AlignCenter}
	if alternatives[0].Headline != want {
		t.Errorf("top-center headline = %+v, want %+v", alternatives[0].Headline, want)
	}
	for _, alternative := range alternatives {
		if alternative.Tagline != nil || alternative.Logo != nil {
			t.Errorf("%s has tagline or logo", alternative.ID)
		}
	}

	again := Fallback(dims, false, nil)
	for i := range alternatives {
		if alternatives[i].Headline != again[i].Headline || alternatives[i].CTA != again[i].CTA {
			t.Errorf("fallback %d is not deterministic", i)
		}
	}
}

func TestFontSizes(t *testing.T) {
	tests := []struct {
		dims model.Dimensions
		want Sizes
	}{
		{model.Dimensions{Width: 1024, Height: 1024}, Sizes{Headline: 56, Tagline: 28, CTA: 25}},
		{model.Dimensions{Width: 300, Height: 300}, Sizes{Headline: 28, Tagline: 18, CTA: 18}},
		{model.Dimensions{Width: 4000, Height: 3000}, Sizes{Headline: 120, Tagline: 60, CTA: 54}},
	}
	for _, tt := range tests {
		if got := FontSizes(tt.dims); got != tt.want {
			t.Errorf("FontSizes(%+v) = %+v, want %+v", tt.dims, got, tt.want)
		}
	}
}

func TestLogoPosition(t *testing.T) {
	request := Request{Dimensions: model.Dimensions{Width: 1024, Height: 1024}}
	if got := LogoPosition(request); got != nil {
		t.Errorf("LogoPosition without logo = %v", got)
	}
	request.HasLogo = true
	if got := LogoPosition(request); *got != (model.LogoPosition{X: 860, Y: 860}) {
		t.Errorf("default LogoPosition = %v", *got)
	}
	request.Logo = &model.LogoPosition{X: 861, Y: 903}
	if got := LogoPosition(request); *got != (model.LogoPosition{X: 860, Y: 900}) {
		t.Errorf("given LogoPosition = %v", *got)
	}
}
