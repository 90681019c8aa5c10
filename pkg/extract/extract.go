package extract

import (
	"strconv"
	"strings"
)

// Recognizer attempts to read one structured reply shape out of
// normalized text. It returns nil when the shape is not present.
// Recognizers are pure functions; they never touch the correlator,
// the transport, or storage.
type Recognizer func(text string) *Record

// recognizers are tried in priority order; a reply is assumed to carry
// at most one structured shape, so the first hit wins.
var recognizers = []Recognizer{
	func(text string) *Record {
		if topup := ParseTopup(text); topup != nil {
			return &Record{Topup: topup}
		}
		return nil
	},
	func(text string) *Record {
		if account := ParseAccountStatus(text); account != nil {
			return &Record{Account: account}
		}
		return nil
	},
	func(text string) *Record {
		if prices := ParsePriceList(text); prices != nil {
			return &Record{Prices: prices}
		}
		return nil
	},
}

// Parse runs the recognizer chain over normalized text and returns the
// first structured record found, or nil when no shape matched.
func Parse(text string) *Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, recognize := range recognizers {
		if record := recognize(text); record != nil {
			return record
		}
	}

	return nil
}

// parseFloat parses a label value as a float. A malformed value yields
// nil so the single field stays absent without failing the record.
func parseFloat(value string) *float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// fixDigits substitutes the one letter the counterpart bot's renderer is
// known to emit in place of a digit ("G9.0" for "69.0").
func fixDigits(value string) string {
	value = strings.ReplaceAll(value, "G", "6")
	return strings.ReplaceAll(value, "g", "6")
}
