package layout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/visionex-project/adcomposite/composer/impl/model"
	"golang.org/x/time/rate"
)

// Number of alternatives produced per image.
const ALTERNATIVES = 3

var (
	ErrMalformedLayout = errors.New("malformed layout")
	ErrNoOracle        = errors.New("no layout oracle configured")
)

// What the layout oracle is told about an image.
type OracleRequest struct {
	Image        []byte
	Width        int
	Height       int
	HasTagline   bool
	HasLogo      bool
	HeadlineText string
}

// Oracle proposes layout alternatives for an image. It must return exactly 3; nothing else it
// promises is trusted.
type Oracle interface {
	ProposeLayouts(ctx context.Context, request OracleRequest) ([]model.LayoutAlternative, error)
}

type Request struct {
	// Encoded base image, forwarded to the oracle.
	Image        []byte
	Dimensions   model.Dimensions
	HasTagline   bool
	HasLogo      bool
	HeadlineText string
	// Used for height estimates only.
	TaglineText string
	// Where the scaled logo goes when HasLogo. Nil means DefaultLogoPosition.
	Logo *model.LogoPosition
}

type Engine struct {
	oracle  Oracle
	timeout time.Duration
	limiter *rate.Limiter
}

type Option func(*Engine)

// WithLimiter paces oracle calls. Waiting for a token counts against the oracle timeout.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// New returns an engine asking oracle for layouts, giving up after timeout.
// A nil oracle means fallback layouts only; a zero timeout means no bound beyond ctx.
func New(oracle Oracle, timeout time.Duration, opts ...Option) *Engine {
	e := &Engine{oracle: oracle, timeout: timeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetLayouts returns exactly 3 validated alternatives. Oracle failures of any kind, including
// timeouts and panics, are logged and replaced by the fallback layouts.
func (e *Engine) GetLayouts(ctx context.Context, request Request) []model.LayoutAlternative {
	alternatives, err := e.propose(ctx, request)
	if err == nil {
		alternatives, err = Validate(alternatives, request)
	}
	if err == nil && !distinctRegions(alternatives) {
		err = fmt.Errorf("%w: alternatives share a headline region", ErrMalformedLayout)
	}
	if err == nil {
		return alternatives
	}

	if !errors.Is(err, ErrNoOracle) {
		log.Printf("Failed to get layouts from oracle, using fallback layouts: %v", err)
	}
	alternatives, err = Validate(Fallback(request.Dimensions, request.HasTagline, LogoPosition(request)), request)
	if err != nil {
		log.Printf("Failed to fit fallback layouts, keeping the closest fit: %v", err)
	}
	return alternatives
}

func (e *Engine) propose(ctx context.Context, request Request) ([]model.LayoutAlternative, error) {
	if e.oracle == nil {
		return nil, ErrNoOracle
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for oracle rate limit: %w", err)
		}
	}

	type oracleResult struct {
		alternatives []model.LayoutAlternative
		err          error
	}
	// Buffered: the sender never blocks once nobody is listening.
	resultChan := make(chan oracleResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- oracleResult{err: fmt.Errorf("oracle panicked: %v", r)}
			}
		}()
		alternatives, err := e.oracle.ProposeLayouts(ctx, OracleRequest{
			Image:        request.Image,
			Width:        request.Dimensions.Width,
			Height:       request.Dimensions.Height,
			HasTagline:   request.HasTagline,
			HasLogo:      request.HasLogo,
			HeadlineText: request.HeadlineText,
		})
		resultChan <- oracleResult{alternatives: alternatives, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("oracle did not answer: %w", ctx.Err())
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}
		if len(result.alternatives) != ALTERNATIVES {
			return nil, fmt.Errorf("%w: got %d alternatives, want %d", ErrMalformedLayout, len(result.alternatives), ALTERNATIVES)
		}
		return result.alternatives, nil
	}
}

func distinctRegions(alternatives []model.LayoutAlternative) bool {
	seen := map[model.TextPlacement]bool{}
	for _, alternative := range alternatives {
		key := alternative.Headline
		key.Align = ""
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}
