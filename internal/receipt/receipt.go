package receipt

import "time"

// Status tracks a receipt through the OCR pipeline.
type Status string

const (
	// StatusPending means the receipt is uploaded and queued.
	StatusPending Status = "pending"
	// StatusProcessing means a worker is running recognition.
	StatusProcessing Status = "processing"
	// StatusSuccess means extraction finished and fields are stored.
	StatusSuccess Status = "success"
	// StatusFailed means the latest recognition attempt failed; a queued
	// retry may still flip the receipt to success.
	StatusFailed Status = "failed"
)

// Receipt is an uploaded receipt image and the fields recovered from it.
// The extracted fields are nil until recognition succeeds.
type Receipt struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Status      Status     `json:"status"`
	RawText     string     `json:"raw_text,omitempty"`
	Merchant    *string    `json:"merchant,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Total       *float64   `json:"total,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ClearExtraction discards previously extracted fields, e.g. when the job
// re-enters the pipeline for another attempt.
func (r *Receipt) ClearExtraction() {
	r.RawText = ""
	r.Merchant = nil
	r.Date = nil
	r.Total = nil
	r.ProcessedAt = nil
}
