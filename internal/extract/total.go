package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountPattern        = regexp.MustCompile(`([¥￥]?\s*\d{1,3}(?:[,，]\d{3})+|[¥￥]?\s*\d+)(?:\.(\d{1,2}))?`)
	amountStripPattern   = regexp.MustCompile(`[¥￥,，\s]`)
	currencyPattern      = regexp.MustCompile(`[¥￥]`)
	groupedDigitsPattern = regexp.MustCompile(`\d{1,3}(?:[,，]\d{3})+`)
)

var primaryTotalKeywords = []string{
	"合計", "ご利用額", "お会計", "領収金額", "請求額", "総合計", "TOTAL", "AMOUNT",
}

var excludedAmountKeywords = []string{
	"小計", "内税", "外税", "税", "値引", "割引", "お釣", "釣銭", "預り", "TEL", "電話",
}

// maxPlausibleTotal bounds receipt totals; anything above is treated as a
// misread rather than a legitimate amount.
const maxPlausibleTotal = 100_000_000

// parseAmount turns an amount token into a value. Long ungrouped digit runs
// are rejected because they are usually phone or registration numbers.
func parseAmount(value, decimal string) *float64 {
	normalized := amountStripPattern.ReplaceAllString(value, "")
	if normalized == "" {
		return nil
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return nil
		}
	}

	if len(normalized) >= 9 && !strings.ContainsAny(value, ",，") {
		return nil
	}

	integerPart, err := strconv.ParseInt(normalized, 10, 64)
	if err != nil || integerPart <= 0 {
		return nil
	}

	amount := float64(integerPart)
	if decimal != "" {
		fraction, err := strconv.ParseInt(decimal, 10, 64)
		if err != nil {
			return nil
		}
		amount += float64(fraction) / math.Pow10(len(decimal))
	}

	if amount > maxPlausibleTotal {
		return nil
	}

	amount = math.Round(amount*100) / 100
	return &amount
}

func extractAmountsFromLine(line string) []float64 {
	var amounts []float64
	for _, m := range amountPattern.FindAllStringSubmatch(line, -1) {
		if amount := parseAmount(m[1], m[2]); amount != nil {
			amounts = append(amounts, *amount)
		}
	}
	return amounts
}

func containsAnyKeyword(upper string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(upper, strings.ToUpper(keyword)) {
			return true
		}
	}
	return false
}

// ExtractTotal scans the recognized text for the transaction total. Lines
// carrying a total keyword (and no tax/change/phone keyword) are preferred;
// lines with a currency symbol or grouped digits serve as a fallback pool.
// The answer is the largest amount in the winning pool, or nil when neither
// pool has a candidate.
func (e *Extractor) ExtractTotal(rawText string) *float64 {
	var prioritized, fallback []float64

	for _, line := range splitLines(rawText) {
		amounts := extractAmountsFromLine(line)
		if len(amounts) == 0 {
			continue
		}

		upper := strings.ToUpper(line)
		if containsAnyKeyword(upper, excludedAmountKeywords) {
			continue
		}
		if containsAnyKeyword(upper, primaryTotalKeywords) {
			prioritized = append(prioritized, amounts...)
			continue
		}

		if currencyPattern.MatchString(line) || groupedDigitsPattern.MatchString(line) {
			fallback = append(fallback, amounts...)
		}
	}

	candidates := prioritized
	if len(candidates) == 0 {
		candidates = fallback
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, amount := range candidates[1:] {
		if amount > best {
			best = amount
		}
	}
	return &best
}
