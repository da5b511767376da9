package extract

import (
	"regexp"
	"unicode/utf8"
)

// merchantBlockPatterns mark lines that cannot be a merchant name: bare
// numbers, postal codes, phone lines, receipt boilerplate, dates, times,
// totals, register/clerk markers and phone-number digit groupings.
var merchantBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^〒?\d{3}-\d{4}$`),
	regexp.MustCompile(`(?i)^(?:tel|電話|phone|fax)`),
	regexp.MustCompile(`(?i)レシート|領収書|receipt|ありがとう|thank you`),
	regexp.MustCompile(`(20\d{2}|19\d{2}|\d{2})[./\-年](\d{1,2})[./\-月](\d{1,2})日?`),
	regexp.MustCompile(`\d{1,2}:\d{2}`),
	regexp.MustCompile(`(?i)合計|小計|税込|税|total|amount`),
	regexp.MustCompile(`取引|伝票|会計|レジ|担当`),
	regexp.MustCompile(`[0-9]{2,4}-[0-9]{2,4}-[0-9]{3,4}`),
}

var (
	merchantScriptPattern = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}A-Za-z]`)
	addressMarkerPattern  = regexp.MustCompile(`[都道府県市区町]|丁目`)
	anyDigitPattern       = regexp.MustCompile(`\d`)
)

// merchantCandidateWindow caps how far down the receipt the merchant name
// is searched for; store names sit near the top.
const merchantCandidateWindow = 8

func isMerchantCandidate(line string) bool {
	length := utf8.RuneCountInString(line)
	if length < 2 || length > 48 {
		return false
	}
	if !merchantScriptPattern.MatchString(line) {
		return false
	}
	for _, pattern := range merchantBlockPatterns {
		if pattern.MatchString(line) {
			return false
		}
	}
	return true
}

// ExtractMerchant picks the most plausible store-name line. Lines carrying
// obvious non-merchant signatures are discarded; among the first surviving
// candidates, a line free of digits and address markers is preferred.
// Returns nil when nothing survives the filters.
func (e *Extractor) ExtractMerchant(rawText string) *string {
	var candidates []string
	for _, line := range splitLines(rawText) {
		if isMerchantCandidate(line) {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if len(candidates) > merchantCandidateWindow {
		candidates = candidates[:merchantCandidateWindow]
	}
	for _, line := range candidates {
		if !addressMarkerPattern.MatchString(line) && !anyDigitPattern.MatchString(line) {
			return &line
		}
	}
	return &candidates[0]
}
