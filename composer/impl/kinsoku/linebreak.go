package kinsoku

import (
	"strings"
	"unicode/utf8"

	"github.com/visionex-project/adcomposite/composer/impl/model"
)

// Upper bound on kinsoku adjustment passes. Pathological input may keep a violation
// after the last pass; termination matters more.
const maxKinsokuPasses = 3

// LineBreaker typesets Japanese text into lines obeying kinsoku shori.
type LineBreaker struct {
	segmenter PhraseSegmenter
}

// New returns a LineBreaker using segmenter. A nil segmenter means HeuristicSegmenter.
func New(segmenter PhraseSegmenter) *LineBreaker {
	if segmenter == nil {
		segmenter = HeuristicSegmenter{}
	}
	return &LineBreaker{segmenter: segmenter}
}

// BreakText packs phrases of text into lines no wider than maxWidth (pixels at fontSize),
// then moves prohibited characters across line boundaries.
// For vertical text maxWidth is the column height and every character takes a full slot.
func (b *LineBreaker) BreakText(text string, maxWidth float64, fontSize float64, orientation model.Orientation) model.LineBreakResult {
	if orientation != model.OrientationVertical {
		orientation = model.OrientationHorizontal
	}
	result := model.LineBreakResult{Lines: []string{}, Orientation: orientation}
	if text == "" {
		return result
	}

	measure := charWidth
	if orientation == model.OrientationVertical {
		measure = func(rune, float64) float64 { return fontSize }
	}

	lines := pack(b.segment(text), maxWidth, fontSize, measure)
	result.Lines = applyKinsoku(lines)
	return result
}

func (b *LineBreaker) segment(text string) []string {
	phrases := b.segmenter.Segment(text)
	// A segmenter that loses text is not trusted.
	if strings.Join(phrases, "") != text {
		return HeuristicSegmenter{}.Segment(text)
	}
	return phrases
}

func pack(phrases []string, maxWidth float64, fontSize float64, measure func(rune, float64) float64) []string {
	lines := []string{}
	var current strings.Builder
	currentWidth := 0.0

	flush := func() {
		if current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
			currentWidth = 0
		}
	}

	for _, phrase := range phrases {
		width := 0.0
		for _, char := range phrase {
			width += measure(char, fontSize)
		}

		if currentWidth+width <= maxWidth {
			current.WriteString(phrase)
			currentWidth += width
			continue
		}
		if width <= maxWidth {
			flush()
			current.WriteString(phrase)
			currentWidth = width
			continue
		}

		// The phrase alone does not fit: pack it character by character. Bytes are copied
		// as they are so invalid UTF-8 survives.
		for offset := 0; offset < len(phrase); {
			char, size := utf8.DecodeRuneInString(phrase[offset:])
			charWidth := measure(char, fontSize)
			if currentWidth+charWidth > maxWidth {
				flush()
			}
			current.WriteString(phrase[offset : offset+size])
			currentWidth += charWidth
			offset += size
		}
	}
	flush()
	return lines
}

// applyKinsoku moves prohibited characters across line boundaries as byte substrings, at most
// maxKinsokuPasses times.
func applyKinsoku(lines []string) []string {
	for pass := 0; pass < maxKinsokuPasses; pass++ {
		changed := false
		for i := 0; i+1 < len(lines); {
			cur, next := lines[i], lines[i+1]

			if last, size := utf8.DecodeLastRuneInString(cur); size > 0 && IsLineEndProhibited(last) {
				cur, next = cur[:len(cur)-size], cur[len(cur)-size:]+next
				changed = true
			}
			if first, size := utf8.DecodeRuneInString(next); size > 0 && IsLineStartProhibited(first) {
				cur, next = cur+next[:size], next[size:]
				changed = true
			}

			lines[i], lines[i+1] = cur, next
			switch {
			case cur == "":
				lines = append(lines[:i], lines[i+1:]...)
			case next == "":
				lines = append(lines[:i+1], lines[i+2:]...)
			default:
				i++
			}
		}
		if !changed {
			break
		}
	}
	return lines
}
