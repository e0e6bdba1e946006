package kinsoku

import "unicode"

// Characters that must not begin a line (行頭禁則文字).
var lineStartProhibited = runeSet(
	// Closing brackets.
	"）〕］｝〉》」』】〙〗〟’”｠»)]}",
	// Periods, commas, middle dots, colons.
	"、。，．・：；,.:;",
	// Question and exclamation marks.
	"？！‼⁇⁈⁉?!",
	// Small kana.
	"ぁぃぅぇぉっゃゅょゎゕゖァィゥェォッャュョヮヵヶㇰㇱㇲㇳㇴㇵㇶㇷㇸㇹㇺㇻㇼㇽㇾㇿ",
	// Iteration marks.
	"ヽヾゝゞ々〻",
	// Hyphens and wave dashes.
	"‐゠–〜～",
	// Percent and degree signs.
	"%％‰°℃′″",
)

// Characters that must not end a line (行末禁則文字).
var lineEndProhibited = runeSet(
	// Opening brackets.
	"（〔［｛〈《「『【〘〖〝‘“｟«([{",
	// Currency symbols.
	"￥＄￡￠¥$£€",
)

func runeSet(groups ...string) map[rune]struct{} {
	set := map[rune]struct{}{}
	for _, group := range groups {
		for _, char := range group {
			set[char] = struct{}{}
		}
	}
	return set
}

// IsLineStartProhibited reports whether char may not begin a line.
func IsLineStartProhibited(char rune) bool {
	_, ok := lineStartProhibited[char]
	return ok
}

// IsLineEndProhibited reports whether char may not end a line.
func IsLineEndProhibited(char rune) bool {
	_, ok := lineEndProhibited[char]
	return ok
}

// IsFullWidth reports whether char occupies a full em when typeset.
// CJK ideographs, kana, CJK punctuation and fullwidth forms are full width; everything else is half.
func IsFullWidth(char rune) bool {
	switch {
	case char >= 0x3000 && char <= 0x303F: // CJK symbols and punctuation
		return true
	case char >= 0x3040 && char <= 0x309F: // Hiragana
		return true
	case char >= 0x30A0 && char <= 0x30FF: // Katakana
		return true
	case char >= 0x31F0 && char <= 0x31FF: // Katakana phonetic extensions
		return true
	case char >= 0x3300 && char <= 0x33FF: // CJK compatibility
		return true
	case char >= 0x3400 && char <= 0x4DBF: // CJK unified ideographs extension A
		return true
	case char >= 0x4E00 && char <= 0x9FFF: // CJK unified ideographs
		return true
	case char >= 0xF900 && char <= 0xFAFF: // CJK compatibility ideographs
		return true
	case char >= 0xFF00 && char <= 0xFFEF: // Halfwidth and fullwidth forms
		return true
	}
	return false
}

// EstimateWidth returns the typeset width of text in pixels: fontSize per full-width
// character and half of it for everything else.
func EstimateWidth(text string, fontSize float64) float64 {
	width := 0.0
	for _, char := range text {
		width += charWidth(char, fontSize)
	}
	return width
}

func charWidth(char rune, fontSize float64) float64 {
	if IsFullWidth(char) {
		return fontSize
	}
	return fontSize / 2
}

// script is a coarse classification used by the heuristic segmenter.
type script int

const (
	scriptOther script = iota
	scriptHiragana
	scriptKatakana
	scriptKanji
	scriptLatin
	scriptSpace
)

func scriptOf(char rune) script {
	switch {
	case unicode.IsSpace(char):
		return scriptSpace
	case unicode.Is(unicode.Hiragana, char):
		return scriptHiragana
	// The prolonged sound mark belongs to the katakana word it extends.
	case unicode.Is(unicode.Katakana, char) || char == 'ー':
		return scriptKatakana
	case unicode.Is(unicode.Han, char) || char == '々' || char == '〆':
		return scriptKanji
	case char < 0x80 && (unicode.IsLetter(char) || unicode.IsDigit(char)):
		return scriptLatin
	case char >= 0xFF10 && char <= 0xFF5A: // fullwidth digits and letters
		return scriptLatin
	}
	return scriptOther
}
