package scanning

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/natuki53/Walleca/internal/extract"
)

// Attempt records one recognize+extract cycle over a single image variant.
type Attempt struct {
	Strategy          string
	Confidence        *float64
	Fields            extract.Fields
	QualityScore      float64
	CompactTextLength int
}

func newAttempt(strategy string, confidence *float64, fields extract.Fields) Attempt {
	compact := compactTextLength(fields.RawText)
	return Attempt{
		Strategy:          strategy,
		Confidence:        confidence,
		Fields:            fields,
		QualityScore:      scoreAttempt(fields, confidence, compact),
		CompactTextLength: compact,
	}
}

// compactTextLength counts the characters of the recognized text with all
// whitespace stripped.
func compactTextLength(text string) int {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return utf8.RuneCountInString(stripped)
}

// scoreAttempt estimates how trustworthy an attempt's extracted fields are.
// Presence of each field contributes most of the score; text volume and
// engine confidence add smaller, capped contributions. These weights are
// empirical tuning values.
func scoreAttempt(fields extract.Fields, confidence *float64, compactLength int) float64 {
	score := 0.0
	if fields.Date != nil {
		score += 8
	}
	if fields.Total != nil {
		score += 10
		if *fields.Total > 1_000_000 {
			// Plausible but suspicious for a retail receipt.
			score -= 2
		}
	}
	if fields.Merchant != nil {
		score += 6
		if utf8.RuneCountInString(*fields.Merchant) >= 4 {
			score++
		}
	}
	score += math.Min(4, float64(compactLength)/120)
	if confidence != nil {
		score += math.Min(6, *confidence/20)
	}
	return math.Round(score*100) / 100
}

// betterAttempt reports whether a should rank ahead of b: higher quality
// score first, then higher confidence (a missing confidence ranks below any
// reported one), then longer compact text.
func betterAttempt(a, b Attempt) bool {
	if a.QualityScore != b.QualityScore {
		return a.QualityScore > b.QualityScore
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return a.Confidence != nil
	}
	if a.Confidence != nil && *a.Confidence != *b.Confidence {
		return *a.Confidence > *b.Confidence
	}
	return a.CompactTextLength > b.CompactTextLength
}

// mergeAttempts combines ranked attempts into one result. The best attempt
// supplies the authoritative raw text; each field is taken from the
// best-ranked attempt that actually recovered it, so a weaker pass can fill
// in a field the top pass missed.
func mergeAttempts(attempts []Attempt) extract.Fields {
	merged := attempts[0].Fields
	for _, attempt := range attempts[1:] {
		if merged.Merchant == nil && attempt.Fields.Merchant != nil {
			merged.Merchant = attempt.Fields.Merchant
		}
		if merged.Date == nil && attempt.Fields.Date != nil {
			merged.Date = attempt.Fields.Date
		}
		if merged.Total == nil && attempt.Fields.Total != nil {
			merged.Total = attempt.Fields.Total
		}
	}
	return merged
}
