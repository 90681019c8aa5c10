package extract

import (
	"regexp"
	"strings"
)

// The counterpart bot decorates replies heavily, but two glyphs are
// semantic unit markers and must survive normalization.
const (
	markerUnit = "\U0001F184" // 🆄
	markerCode = "\U0001F172" // 🅲
)

// Placeholders used while the decorative ranges are stripped. Plain ASCII
// so a second Normalize pass leaves them untouched.
const (
	placeholderUnit = "\x00unit\x00"
	placeholderCode = "\x00code\x00"
)

// decorative matches the Unicode ranges the counterpart bot draws its
// ornamentation from: emoticons, pictographs, transport symbols, flags,
// dingbats, misc symbols, and the wide enclosed-characters span (which
// also covers box drawing and both unit markers).
var decorative = regexp.MustCompile("[" +
	"\U0001F600-\U0001F64F" + // emoticons
	"\U0001F300-\U0001F5FF" + // symbols & pictographs
	"\U0001F680-\U0001F6FF" + // transport & map symbols
	"\U0001F1E0-\U0001F1FF" + // flags
	"\U0001F900-\U0001F9FF" + // supplemental symbols
	"\U0001FA00-\U0001FAFF" + // chess, extended-A
	"\U00002600-\U000026FF" + // misc symbols
	"\U00002700-\U000027BF" + // dingbats
	"\U000024C2-\U0001F251" + // enclosed characters, box drawing
	"]+")

// Normalize strips decorative glyphs from a raw reply body while keeping
// the two unit-marker glyphs. Pure and idempotent: calling it on its own
// output returns the same string.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}

	text := strings.ReplaceAll(raw, markerUnit, placeholderUnit)
	text = strings.ReplaceAll(text, markerCode, placeholderCode)

	text = decorative.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, placeholderUnit, markerUnit)
	return strings.ReplaceAll(text, placeholderCode, markerCode)
}
