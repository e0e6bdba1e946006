package impl

import (
	"context"
	"errors"

	"github.com/visionex-project/adcomposite/composer/impl/fetch"
	"github.com/visionex-project/adcomposite/composer/impl/kinsoku"
	"github.com/visionex-project/adcomposite/composer/impl/layout"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/render"
)

// Longest body text, in characters, that is still used as a tagline.
const MAX_TAGLINE_LENGTH = 30

// CTA background when the brand has neither an accent nor a primary color.
const DEFAULT_CTA_COLOR = "#e60033"

var (
	// Fetching or decoding a base image failed, or none of its alternatives rendered.
	ErrImageFailure = errors.New("image failed")
	// Every base image of the request failed.
	ErrAllImagesFailed = errors.New("all images failed")
	ErrNoAlternatives  = errors.New("no alternative rendered")
)

type BaseImage struct {
	// E.g., "img-1"
	ID string
	// Encoded image. When empty the image is fetched from URL.
	Bytes []byte
	// E.g., "https://cdn.example.com/hero.jpg"
	URL string
	// Declared size. The decoded size wins when they disagree.
	Width  int
	Height int
}

// Ad copy, already written.
type Copy struct {
	// E.g., "新春セール開催中！"
	Headline string
	// Used as the tagline when short enough.
	BodyText string
	// E.g., "今すぐチェック"
	CTAText string
}

type Brand struct {
	// Empty means the font provider's default family.
	FontFamily string
	Colors     model.BrandColors
	// Encoded logo image, optional.
	Logo []byte
}

// ResultSink persists compositing results. The compositor itself never stores anything.
type ResultSink interface {
	Save(ctx context.Context, result model.CompositingResult) error
}

type Compositor struct {
	layouts     *layout.Engine
	lineBreaker *kinsoku.LineBreaker
	renderer    *render.Renderer

	// Loads base images given by URL. May be nil when every image carries its bytes.
	fetcher fetch.Fetcher

	// Maximum number of base images processed at once. Zero or less means no limit.
	concurrency int
}

func New(
	layouts *layout.Engine,
	lineBreaker *kinsoku.LineBreaker,
	renderer *render.Renderer,
	fetcher fetch.Fetcher,
	concurrency int,
) *Compositor {
	return &Compositor{
		layouts:     layouts,
		lineBreaker: lineBreaker,
		renderer:    renderer,
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}
