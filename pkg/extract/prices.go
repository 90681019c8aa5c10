package extract

import (
	"regexp"
	"strconv"
)

const paymentBank = "bank"

// The ☞ prefix and the arrow are decorative glyphs the normalizer may
// have already removed, so both are optional, and the arrow appears in
// several variants. The unit-marker pair 🆄🅲 and the small-caps Bᴀɴᴋ
// suffix always survive and anchor the match.
const arrow = `(?:➪|⇨|→|->|=>)?`

var (
	reUnitPriceLine = regexp.MustCompile(`(?im)^\s*☞?\s*(\d+)\s*(?:` + markerUnit + `\s*` + markerCode + `|[UC]+)\s*` + arrow + `\s*(\d+)\s*B[ᴀɴᴋANK]+`)
	reWeeklyPkg     = regexp.MustCompile(`(?i)☞?\s*Weekly\s+Lite\s*` + arrow + `\s*([\d.]+)\s*B[ᴀɴᴋANK]+`)
	reLevelPkg      = regexp.MustCompile(`(?i)☞?\s*Level\s+Up-(\d+)\s*` + arrow + `\s*([\d.]+)\s*B[ᴀɴᴋANK]+`)
	reDayPkg        = regexp.MustCompile(`(?i)☞?\s*Evo\s+(\d+)\s+Day\s*` + arrow + `\s*([\d.]+)\s*B[ᴀɴᴋANK]+`)
)

// ParsePriceList recognizes a price list reply: per-unit pricing lines
// plus three labeled package families (one weekly package, leveled
// packages with a numeric suffix, multi-day packages with a day count).
// Input order is preserved within each list; the record only exists when
// at least one entry was found.
func ParsePriceList(text string) *PriceList {
	if text == "" {
		return nil
	}

	prices := &PriceList{}

	for _, m := range reUnitPriceLine.FindAllStringSubmatch(text, -1) {
		amount, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		price, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		prices.UnitPrices = append(prices.UnitPrices, UnitPrice{
			Type:    "uc",
			Amount:  amount,
			Price:   price,
			Payment: paymentBank,
		})
	}

	if m := reWeeklyPkg.FindStringSubmatch(text); m != nil {
		if price := parseFloat(m[1]); price != nil {
			prices.Packages = append(prices.Packages, Package{
				Type:    "weekly",
				Name:    "Weekly Lite",
				Price:   *price,
				Payment: paymentBank,
			})
		}
	}

	for _, m := range reLevelPkg.FindAllStringSubmatch(text, -1) {
		level, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		price := parseFloat(m[2])
		if price == nil {
			continue
		}
		prices.Packages = append(prices.Packages, Package{
			Type:    "level-up",
			Name:    "Level Up " + strconv.Itoa(level),
			Price:   *price,
			Payment: paymentBank,
		})
	}

	for _, m := range reDayPkg.FindAllStringSubmatch(text, -1) {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		price := parseFloat(m[2])
		if price == nil {
			continue
		}
		prices.Packages = append(prices.Packages, Package{
			Type:    "evo",
			Name:    "Evo " + strconv.Itoa(days) + " Day",
			Price:   *price,
			Payment: paymentBank,
		})
	}

	if len(prices.UnitPrices) == 0 && len(prices.Packages) == 0 {
		return nil
	}

	return prices
}
