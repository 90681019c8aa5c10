package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const topupProvider = "UcBot"

var (
	reOrderID  = regexp.MustCompile(`(?i)Order\s+ID\s*:\s*#?(\d+)`)
	reUserName = regexp.MustCompile(`(?i)User\s*:\s*(.+)`)
	reUID      = regexp.MustCompile(`(?i)UID\s*:\s*(\d+)`)
	reTotal    = regexp.MustCompile(`(?i)Total\s*:\s*([\d.]+)`)
	reFee      = regexp.MustCompile(`(?i)\(([\d.]+)\s*[৳Tk]+\s*Fee/Unit\)`)
	reQuantity = regexp.MustCompile(`(?i)Monthly\s*:\s*(\d+)x?`)
	reBaki     = regexp.MustCompile(`(?i)Baki\s*:\s*([\d.]+)`)
	reDueExpr  = regexp.MustCompile(`(?i)Due\s*:\s*([\d.]+)\s*\+\s*([\d.]+)\s*=\s*([\d.]+)`)
	reDueLine  = regexp.MustCompile(`(?i)Due\s*:\s*(.+)`)
	reDuration = regexp.MustCompile(`(?i)Duration\s*:\s*([\d.]+)\s*s`)

	// Used-unit codes: a four-letter (or known) prefix with dashed
	// alphanumerics, followed by a dash-separated digit block.
	reUnitLine = regexp.MustCompile(`(?i)((?:BDMB|UPBD|[A-Z]{4})[-\w]+\s+[\d-]+)`)

	reBoxTrail    = regexp.MustCompile(`[└┘┌┐│─━┃┏┓┗┛├┤┬┴┼╭╮╯╰╱╲╳]+`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reLimitMarker = regexp.MustCompile(`(?i)LIMIT\s+OVER`)
)

// ParseTopup recognizes a topup confirmation or a limit-over refusal.
//
// A success record is only returned when both the order ID and the user
// name were recovered; a "TOPUP DONE" marker alone is not enough. Every
// other field is best-effort and independently optional.
func ParseTopup(text string) *TopupResult {
	if text == "" {
		return nil
	}

	done := strings.Contains(strings.ToUpper(text), "TOPUP DONE")
	limited := reLimitMarker.MatchString(text) || strings.Contains(text, "\U0001F6AB")
	if !done && !limited {
		return nil
	}

	if limited {
		result := &TopupResult{Status: TopupFailed}
		if m := reOrderID.FindStringSubmatch(text); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				result.OrderID = id
			}
		}
		return result
	}

	result := &TopupResult{
		Status:  TopupSuccess,
		User:    &TopupUser{},
		Product: &TopupProduct{Type: "diamond"},
		Payment: &TopupPayment{},
		Meta:    &TopupMeta{Provider: topupProvider},
	}

	if m := reOrderID.FindStringSubmatch(text); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			result.OrderID = id
		}
	}

	if m := reUserName.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(reBoxTrail.ReplaceAllString(m[1], ""))
		result.User.Name = name
	}

	if m := reUID.FindStringSubmatch(text); m != nil {
		result.User.UID = m[1]
	}

	result.Payment.UsedCodes = parseUnitCodes(text)

	if m := reTotal.FindStringSubmatch(text); m != nil {
		result.Payment.Total = parseFloat(m[1])
	}
	if m := reFee.FindStringSubmatch(text); m != nil {
		result.Payment.FeePerUnit = parseFloat(m[1])
	}

	if m := reQuantity.FindStringSubmatch(text); m != nil {
		if quantity, err := strconv.Atoi(m[1]); err == nil {
			result.Product.Quantity = quantity
			if result.Payment.Total != nil && quantity > 0 {
				unitPrice := *result.Payment.Total / float64(quantity)
				result.Product.UnitPrice = &unitPrice
			}
		}
	}

	// Due comes from the three-term "previous + new = total" expression
	// when present, with the Baki label as the same-priority fallback.
	if m := reBaki.FindStringSubmatch(text); m != nil {
		result.Payment.Due = parseFloat(m[1])
	}
	if m := reDueLine.FindStringSubmatch(text); m != nil {
		if expr := reDueExpr.FindStringSubmatch("Due : " + fixDigits(m[1])); expr != nil {
			result.Payment.Due = parseFloat(expr[3])
		}
	}

	if result.Payment.Total != nil && result.Payment.Due != nil {
		paid := *result.Payment.Total - *result.Payment.Due
		result.Payment.Paid = &paid
	}

	if m := reDuration.FindStringSubmatch(text); m != nil {
		result.Meta.DurationSec = parseFloat(m[1])
	}

	// Partial text must not be reported as a structured success.
	if result.OrderID == 0 || result.User.Name == "" {
		return nil
	}

	return result
}

// parseUnitCodes scans for used-unit code lines, preferring per-line
// matches and falling back to a whole-text search. Duplicates are
// dropped, order is preserved.
func parseUnitCodes(text string) []string {
	var codes []string
	seen := make(map[string]struct{})

	appendCode := func(raw string) {
		code := reSpaces.ReplaceAllString(strings.TrimSpace(raw), " ")
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := reUnitLine.FindStringSubmatch(line); m != nil {
			appendCode(m[1])
		}
	}

	if len(codes) == 0 {
		for _, m := range reUnitLine.FindAllStringSubmatch(text, -1) {
			appendCode(m[1])
		}
	}

	return codes
}
