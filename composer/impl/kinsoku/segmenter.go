package kinsoku

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// PhraseSegmenter splits text into phrases that should stay together on a line.
// Implementations must be lossless: joining the returned phrases yields text.
type PhraseSegmenter interface {
	Segment(text string) []string
}

// HeuristicSegmenter breaks on script transitions and punctuation.
// It knows no vocabulary, so particles following kanji stay with the next word
// rather than the previous one, but it needs no dictionary.
type HeuristicSegmenter struct{}

func (HeuristicSegmenter) Segment(text string) []string {
	if text == "" {
		return nil
	}

	phrases := []string{}
	start := 0
	var prev rune
	first := true
	for i, char := range text {
		if !first && isHeuristicBoundary(prev, char) {
			phrases = append(phrases, text[start:i])
			start = i
		}
		prev = char
		first = false
	}
	return append(phrases, text[start:])
}

func isHeuristicBoundary(prev rune, cur rune) bool {
	prevScript := scriptOf(prev)
	curScript := scriptOf(cur)

	switch {
	// Opening brackets start a phrase.
	case IsLineEndProhibited(cur):
		return !IsLineEndProhibited(prev)
	// Closing punctuation always sticks to what it closes.
	case IsLineStartProhibited(cur):
		return false
	case IsLineStartProhibited(prev):
		return true
	case prevScript == scriptSpace:
		return curScript != scriptSpace
	// Okurigana and particles end a phrase once the script changes.
	case prevScript == scriptHiragana:
		return curScript != scriptHiragana
	case curScript == scriptHiragana:
		return false
	}

	words := map[script]bool{scriptKanji: true, scriptKatakana: true, scriptLatin: true}
	return words[prevScript] && words[curScript] && prevScript != curScript
}

// KagomeSegmenter groups morphemes into bunsetsu-like phrases: a content word followed
// by its particles, auxiliaries, suffixes and trailing punctuation.
type KagomeSegmenter struct {
	tokenizer *tokenizer.Tokenizer
}

// NewKagomeSegmenter builds a tokenizer over the IPA dictionary.
func NewKagomeSegmenter() (*KagomeSegmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeSegmenter{tokenizer: t}, nil
}

func (s *KagomeSegmenter) Segment(text string) []string {
	if text == "" {
		return nil
	}
	if s == nil || s.tokenizer == nil {
		return s.fallbackSegment(text)
	}

	tokens := s.tokenizer.Tokenize(text)
	boundaries := []int{0}
	cursor := 0
	var prevPOS []string
	prevOpening := false
	for i, token := range tokens {
		if token.Surface == "" {
			continue
		}
		offset := strings.Index(text[cursor:], token.Surface)
		if offset < 0 {
			log.Printf("Failed to align token %q, using heuristic segmentation", token.Surface)
			return s.fallbackSegment(text)
		}
		start := cursor + offset
		cursor = start + len(token.Surface)

		pos := token.POS()
		if i > 0 && start > 0 && startsPhrase(pos, prevPOS, prevOpening, token.Surface) {
			boundaries = append(boundaries, start)
		}
		prevPOS = pos
		prevOpening = isOpening(token.Surface)
	}

	phrases := make([]string, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		if end > start {
			phrases = append(phrases, text[start:end])
		}
	}
	return phrases
}

func (s *KagomeSegmenter) fallbackSegment(text string) []string {
	return HeuristicSegmenter{}.Segment(text)
}

func startsPhrase(pos []string, prevPOS []string, prevOpening bool, surface string) bool {
	if isOpening(surface) {
		return true
	}
	if prevOpening || posAt(prevPOS, 0) == "接頭詞" {
		return false
	}

	switch posAt(pos, 0) {
	case "助詞", "助動詞":
		return false
	case "記号":
		return posAt(pos, 1) == "空白"
	case "名詞":
		sub := posAt(pos, 1)
		return sub != "接尾" && sub != "非自立"
	case "動詞", "形容詞":
		sub := posAt(pos, 1)
		return sub != "接尾" && sub != "非自立"
	}
	return true
}

func isOpening(surface string) bool {
	char, size := utf8.DecodeRuneInString(surface)
	return size > 0 && IsLineEndProhibited(char)
}

func posAt(pos []string, i int) string {
	if i < len(pos) {
		return pos[i]
	}
	return ""
}
