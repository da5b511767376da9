package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateScoring holds the empirical weights used to rank date candidates.
// The defaults were tuned against real receipts; they are configuration,
// not hard rules.
type DateScoring struct {
	PositiveKeyword int // context names a transaction date
	TimeOfDay       int // context carries an H:MM time
	NegativeKeyword int // context names an expiry or other irrelevant date
	NearTop         int // candidate sits in the receipt header
	FarFuture       int // more than two days ahead of now
	NearFuture      int // ahead of now by at most two days
	DistantPast     int // more than five years ago
}

// DefaultDateScoring is the standard weight set.
var DefaultDateScoring = DateScoring{
	PositiveKeyword: 4,
	TimeOfDay:       1,
	NegativeKeyword: -6,
	NearTop:         1,
	FarFuture:       -4,
	NearFuture:      -1,
	DistantPast:     -2,
}

// eraOffsets maps Japanese calendar era notations to their Gregorian year
// offset (era year 1 = offset + 1).
var eraOffsets = []struct {
	pattern *regexp.Regexp
	offset  int
}{
	{regexp.MustCompile(`(?:令和|R|r)\s*(\d{1,2})[./\-年]?\s*(\d{1,2})[./\-月]?\s*(\d{1,2})日?`), 2018},
	{regexp.MustCompile(`(?:平成|H|h)\s*(\d{1,2})[./\-年]?\s*(\d{1,2})[./\-月]?\s*(\d{1,2})日?`), 1988},
	{regexp.MustCompile(`(?:昭和|S|s)\s*(\d{1,2})[./\-年]?\s*(\d{1,2})[./\-月]?\s*(\d{1,2})日?`), 1925},
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(20\d{2}|19\d{2})[./\-年](\d{1,2})[./\-月](\d{1,2})日?`),
	regexp.MustCompile(`(\d{2})[./\-](\d{1,2})[./\-](\d{1,2})`),
}

var (
	dateYearLastPattern = regexp.MustCompile(`(\d{1,2})[./\-](\d{1,2})[./\-](20\d{2}|19\d{2}|\d{2})`)
	dateCompactPattern  = regexp.MustCompile(`(20\d{2}|19\d{2})(\d{2})(\d{2})`)
	timeOfDayPattern    = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

var datePositiveKeywords = []string{
	"取引日時", "取引日", "購入日", "利用日", "ご利用日",
	"会計日時", "発行日", "売上日時", "日時", "日付",
}

var dateNegativeKeywords = []string{
	"有効期限", "期限", "賞味", "消費", "製造",
	"生年月日", "支払期限", "振込期限", "納期",
}

type dateCandidate struct {
	date      time.Time
	lineIndex int
	score     int
}

// normalizeYear expands a 2-digit year against the current 2-digit year:
// up to one year ahead of now is read as 20xx, anything else as 19xx.
func normalizeYear(year int, now time.Time) int {
	if year >= 100 {
		return year
	}
	if year <= now.Year()%100+1 {
		return 2000 + year
	}
	return 1900 + year
}

// parseDateParts validates a raw (year, month, day) triple against the real
// calendar and returns nil for impossible dates such as Feb 30.
func parseDateParts(year, month, day int, now time.Time) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	year = normalizeYear(year, now)
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return nil
	}
	return &date
}

func (e *Extractor) scoreDateCandidate(lines []string, lineIndex int, date time.Time, now time.Time) int {
	var prev, next string
	if lineIndex > 0 {
		prev = lines[lineIndex-1]
	}
	if lineIndex+1 < len(lines) {
		next = lines[lineIndex+1]
	}
	context := strings.ToLower(prev + " " + lines[lineIndex] + " " + next)

	score := 0
	for _, keyword := range datePositiveKeywords {
		if strings.Contains(context, strings.ToLower(keyword)) {
			score += e.scoring.PositiveKeyword
			break
		}
	}
	if timeOfDayPattern.MatchString(context) {
		score += e.scoring.TimeOfDay
	}
	for _, keyword := range dateNegativeKeywords {
		if strings.Contains(context, strings.ToLower(keyword)) {
			score += e.scoring.NegativeKeyword
			break
		}
	}
	if lineIndex <= 3 {
		score += e.scoring.NearTop
	}

	diff := date.Sub(now)
	if diff > 2*24*time.Hour {
		score += e.scoring.FarFuture
	} else if diff > 0 {
		score += e.scoring.NearFuture
	}
	if now.Sub(date) > 5*365*24*time.Hour {
		score += e.scoring.DistantPast
	}

	return score
}

func (e *Extractor) findDateCandidates(lines []string, now time.Time) []dateCandidate {
	var candidates []dateCandidate

	push := func(lineIndex int, date *time.Time) {
		if date == nil {
			return
		}
		candidates = append(candidates, dateCandidate{
			date:      *date,
			lineIndex: lineIndex,
			score:     e.scoreDateCandidate(lines, lineIndex, *date, now),
		})
	}

	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	for lineIndex, line := range lines {
		for _, era := range eraOffsets {
			for _, m := range era.pattern.FindAllStringSubmatch(line, -1) {
				push(lineIndex, parseDateParts(atoi(m[1])+era.offset, atoi(m[2]), atoi(m[3]), now))
			}
		}
		for _, pattern := range datePatterns {
			for _, m := range pattern.FindAllStringSubmatch(line, -1) {
				push(lineIndex, parseDateParts(atoi(m[1]), atoi(m[2]), atoi(m[3]), now))
			}
		}
		for _, m := range dateYearLastPattern.FindAllStringSubmatch(line, -1) {
			push(lineIndex, parseDateParts(atoi(m[3]), atoi(m[1]), atoi(m[2]), now))
		}
		for _, m := range dateCompactPattern.FindAllStringSubmatch(line, -1) {
			push(lineIndex, parseDateParts(atoi(m[1]), atoi(m[2]), atoi(m[3]), now))
		}
	}

	return candidates
}

// ExtractDate scans the recognized text for the most plausible transaction
// date. It understands numeric forms with various separators, Japanese era
// notations, year-last forms and compact YYYYMMDD runs. Candidates are
// scored by surrounding context; dates in the past win ties by recency.
// Returns nil when no valid date appears.
func (e *Extractor) ExtractDate(rawText string) *time.Time {
	lines := splitLines(normalizeDateText(rawText))
	if len(lines) == 0 {
		return nil
	}

	now := e.now()
	candidates := e.findDateCandidates(lines, now)
	if len(candidates) == 0 {
		return nil
	}

	pastOrToday := make([]dateCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.date.After(now) {
			pastOrToday = append(pastOrToday, c)
		}
	}

	if len(pastOrToday) > 0 {
		sort.SliceStable(pastOrToday, func(i, j int) bool {
			if pastOrToday[i].score != pastOrToday[j].score {
				return pastOrToday[i].score > pastOrToday[j].score
			}
			return pastOrToday[i].date.After(pastOrToday[j].date)
		})
		date := pastOrToday[0].date
		return &date
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].date.Before(candidates[j].date)
	})
	date := candidates[0].date
	return &date
}
