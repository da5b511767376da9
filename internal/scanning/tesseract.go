package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractConfig configures the shared tesseract engine.
type TesseractConfig struct {
	// Languages are tesseract language codes tried together, e.g. jpn, eng.
	Languages []string
	// DPI is the resolution hint passed to the engine.
	DPI int
	// Verbose enables per-call progress logging.
	Verbose bool
}

// DefaultTesseractConfig recognizes Japanese and English receipts at a
// fixed 300 DPI hint.
var DefaultTesseractConfig = TesseractConfig{
	Languages: []string{"jpn", "eng"},
	DPI:       300,
}

// Tesseract is an Engine backed by a single long-lived gosseract client.
//
// The client is expensive to initialize and is not safe for concurrent
// recognition, so it is created lazily on first use and every
// configure+recognize cycle runs under one mutex. A failed initialization
// leaves no client behind; the next call simply retries it.
type Tesseract struct {
	cfg TesseractConfig

	// clientFactory is a seam for tests.
	clientFactory func() *gosseract.Client

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a tesseract engine. The underlying client is not
// created until the first Recognize call.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultTesseractConfig.Languages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultTesseractConfig.DPI
	}
	return &Tesseract{
		cfg:           cfg,
		clientFactory: gosseract.NewClient,
	}
}

func pageSegMode(mode SegmentationMode) gosseract.PageSegMode {
	switch mode {
	case SegmentSingleBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case SegmentAuto:
		return gosseract.PSM_AUTO
	default:
		return gosseract.PSM_SPARSE_TEXT
	}
}

// Recognize configures the shared client for the request's segmentation
// mode and runs recognition. Calls are strictly serialized.
func (t *Tesseract) Recognize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		if err := t.initClient(); err != nil {
			return Result{}, err
		}
	}
	c := t.client

	if err := c.SetPageSegMode(pageSegMode(req.Segmentation)); err != nil {
		return Result{}, fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(req.Image); err != nil {
		return Result{}, fmt.Errorf("setting image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognizing text: %w", err)
	}

	confidence := meanWordConfidence(c)
	if t.cfg.Verbose {
		slog.Info("tesseract recognition finished",
			"segmentation", req.Segmentation.String(),
			"image_bytes", len(req.Image),
			"text_length", len(text),
		)
	}

	return Result{Text: text, Confidence: confidence}, nil
}

// initClient creates and configures the long-lived client. Called with the
// mutex held; on failure the client stays nil so a later call can retry.
func (t *Tesseract) initClient() error {
	c := t.clientFactory()
	if err := c.SetLanguage(t.cfg.Languages...); err != nil {
		c.Close()
		return fmt.Errorf("setting languages: %w", err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		c.Close()
		return fmt.Errorf("preserving word spaces: %w", err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(t.cfg.DPI)); err != nil {
		c.Close()
		return fmt.Errorf("setting dpi hint: %w", err)
	}
	t.client = c
	return nil
}

// meanWordConfidence averages word-level confidences on the 0-100 scale.
// Returns nil when the engine reports no words.
func meanWordConfidence(c *gosseract.Client) *float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	mean := sum / float64(len(boxes))
	return &mean
}

// Close releases the shared client. Safe to call when no client was ever
// created.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
