// Package extract pulls prices, facilities, points of interest and photos
// out of the target site's HTML. The document is adversarial and
// unversioned, so every data kind goes through a waterfall of independent
// strategies: structural selectors first, then structured linked-data
// blocks, then the embedded client-render JSON tree.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// minDistinctPrices stops the selector waterfall early once enough
	// distinct samples are in hand.
	minDistinctPrices = 3

	// Noise bounds: a "price" of 1 is a list index artifact, 999999+ is a
	// placeholder.
	minSanePrice = 1
	maxSanePrice = 999999
)

// DefaultPriceSelectors is the ranked structural strategy list, most
// specific first. New strategies are appended without touching existing
// ones; site profiles may override the whole list.
var DefaultPriceSelectors = []string{
	"[data-testid='price-and-discounted-price']",
	"[data-testid='availability-rate-information'] .prco-valign-middle-helper",
	".bui-price-display__value",
	".prco-valign-middle-helper",
	".sr_price_wrap .sr-card__price",
	"[data-testid='property-card'] span[aria-hidden='true']",
}

var numberToken = regexp.MustCompile(`[0-9][0-9.,\s\x{00a0}]*`)

// ExtractPrices runs the price waterfall over a parsed document and returns
// the distinct prices found plus the currency detected from the first
// matched element ("" when detection fails).
func ExtractPrices(doc *goquery.Document, selectors []string) ([]float64, string) {
	if len(selectors) == 0 {
		selectors = DefaultPriceSelectors
	}

	var prices []float64
	var currency string
	seen := make(map[float64]bool)

	add := func(v float64) {
		if v > 0 && !seen[v] {
			seen[v] = true
			prices = append(prices, v)
		}
	}

	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			v := ParsePrice(text)
			if v > 0 {
				add(v)
				if currency == "" {
					currency = DetectCurrency(text)
				}
			}
			return len(prices) < minDistinctPrices
		})
		if len(prices) >= minDistinctPrices {
			return prices, currency
		}
	}
	if len(prices) > 0 {
		return prices, currency
	}

	// Tier 2: structured linked-data offer blocks.
	if offers := extractOfferPrices(doc); len(offers) > 0 {
		for _, v := range offers {
			add(v)
		}
		return prices, currency
	}

	// Tier 3: bounded walk of the embedded client-render JSON tree.
	for _, root := range embeddedJSONRoots(doc) {
		for _, v := range findPriceValues(root) {
			add(v)
		}
		if len(prices) > 0 {
			break
		}
	}
	return prices, currency
}

// ParsePrice extracts a numeric amount from raw element text. A comma
// followed by exactly three digits is a thousands separator; otherwise the
// remaining separator is the decimal point. Values at or below 1 and at or
// above 999999 are rejected as noise and reported as 0.
func ParsePrice(text string) float64 {
	token := numberToken.FindString(text)
	if token == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			return r
		}
		return -1
	}, token)
	if cleaned == "" {
		return 0
	}

	// Drop thousands commas (comma followed by exactly three digits).
	// Looped because adjacent groups ("1,234,567") overlap the match.
	for {
		next := thousandsComma.ReplaceAllString(cleaned, "$1$2")
		if next == cleaned {
			break
		}
		cleaned = next
	}

	if strings.Contains(cleaned, ",") {
		// Remaining comma is the decimal separator; any dots are grouping.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else if strings.Count(cleaned, ".") > 1 {
		// Multiple dots: all but the last are grouping.
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if v <= minSanePrice || v >= maxSanePrice {
		return 0
	}
	return v
}

var thousandsComma = regexp.MustCompile(`,([0-9]{3})([^0-9]|$)`)

// currencySymbols maps display symbols to ISO codes, longest symbols first
// so "R$" wins over "$".
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"R$", "BRL"},
	{"US$", "USD"},
	{"zł", "PLN"},
	{"Kč", "CZK"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₩", "KRW"},
	{"₺", "TRY"},
	{"฿", "THB"},
	{"₫", "VND"},
	{"$", "USD"},
}

var knownCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"CAD": true, "AUD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true, "RON": true,
	"BRL": true, "MXN": true, "INR": true, "KRW": true, "TRY": true,
	"THB": true, "VND": true, "SGD": true, "HKD": true, "ZAR": true,
}

var codeToken = regexp.MustCompile(`\b[A-Z]{3}\b`)

// DetectCurrency scans raw price text for a known symbol, falling back to a
// bare three-letter code. Returns "" when nothing matches.
func DetectCurrency(text string) string {
	for _, c := range currencySymbols {
		if strings.Contains(text, c.symbol) {
			return c.code
		}
	}
	for _, m := range codeToken.FindAllString(text, -1) {
		if knownCodes[m] {
			return m
		}
	}
	return ""
}
