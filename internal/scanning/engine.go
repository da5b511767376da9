package scanning

import "context"

// SegmentationMode hints the recognition engine about the expected text
// layout of a receipt image.
type SegmentationMode int

const (
	// SegmentSparseText expects scattered text in no particular order,
	// which matches most receipt photos.
	SegmentSparseText SegmentationMode = iota
	// SegmentSingleBlock expects one uniform block of text.
	SegmentSingleBlock
	// SegmentAuto lets the engine pick the layout itself.
	SegmentAuto
)

func (m SegmentationMode) String() string {
	switch m {
	case SegmentSparseText:
		return "sparse_text"
	case SegmentSingleBlock:
		return "single_block"
	case SegmentAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Request is one recognition call against an engine.
type Request struct {
	// Image is the PNG- or JPEG-encoded image to recognize.
	Image []byte
	// Segmentation hints the expected text layout.
	Segmentation SegmentationMode
}

// Result is the outcome of one recognition call.
type Result struct {
	// Text is the recognized text with original line structure.
	Text string
	// Confidence is the engine-reported confidence on a 0-100 scale,
	// or nil when the engine does not report one.
	Confidence *float64
}

// Engine abstracts a text-recognition runtime. Implementations own any
// serialization their runtime needs; callers may invoke Recognize from
// multiple goroutines.
type Engine interface {
	// Recognize runs text recognition over a single image.
	Recognize(ctx context.Context, req Request) (Result, error)
	// Close releases the engine and its underlying resources.
	Close() error
}
