package extract

import (
	"time"
)

// Fields contains the structured values recovered from one pass of
// recognized receipt text. Values that could not be recovered are nil.
type Fields struct {
	RawText  string     `json:"raw_text"`
	Merchant *string    `json:"merchant"`
	Date     *time.Time `json:"date"`
	Total    *float64   `json:"total"`
}

// Extractor turns raw recognized receipt text into structured fields.
// It is stateless apart from its configuration and safe for concurrent use.
type Extractor struct {
	scoring DateScoring
	now     func() time.Time
}

// New creates an Extractor with the default scoring weights and wall clock.
func New() *Extractor {
	return &Extractor{
		scoring: DefaultDateScoring,
		now:     time.Now,
	}
}

// NewWithDeps creates an Extractor with custom scoring weights and time
// source for testing.
func NewWithDeps(scoring DateScoring, now func() time.Time) *Extractor {
	return &Extractor{
		scoring: scoring,
		now:     now,
	}
}

// ExtractFields runs all field extractors over the recognized text.
// The raw text is carried through verbatim.
func (e *Extractor) ExtractFields(rawText string) Fields {
	return Fields{
		RawText:  rawText,
		Merchant: e.ExtractMerchant(rawText),
		Date:     e.ExtractDate(rawText),
		Total:    e.ExtractTotal(rawText),
	}
}
