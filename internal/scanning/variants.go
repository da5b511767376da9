package scanning

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Variant pairs one preprocessed rendition of the receipt image with the
// segmentation mode it should be recognized under.
type Variant struct {
	// Strategy names the preprocessing/segmentation combination.
	Strategy string
	// Image is the PNG-encoded variant image.
	Image []byte
	// Segmentation is the layout hint for the engine.
	Segmentation SegmentationMode
}

// VariantOptions configures variant building.
type VariantOptions struct {
	// MultiPass enables the preprocessed variants in addition to the
	// original image.
	MultiPass bool
	// MaxWidth bounds the width of preprocessed images; larger sources
	// are scaled down proportionally.
	MaxWidth int
	// BinarizeThreshold is the fixed luminance cutoff for the binarized
	// variant.
	BinarizeThreshold uint8
	// ContrastBoost is the contrast change applied to the enhanced
	// variants.
	ContrastBoost float64
}

// DefaultVariantOptions is the standard multi-pass configuration.
var DefaultVariantOptions = VariantOptions{
	MultiPass:         true,
	MaxWidth:          1600,
	BinarizeThreshold: 160,
	ContrastBoost:     0.35,
}

// BuildVariants produces the recognition passes for one receipt image.
// The original image under sparse-text segmentation is always first; when
// multi-pass is enabled, contrast-enhanced and binarized variants are added
// from a shared normalized-grayscale base. Preprocessing failure is not
// fatal: the original variant alone is returned.
func BuildVariants(data []byte, opts VariantOptions) []Variant {
	variants := []Variant{{
		Strategy:     "original-sparse",
		Image:        data,
		Segmentation: SegmentSparseText,
	}}

	if !opts.MultiPass {
		return variants
	}

	processed, err := buildProcessedVariants(data, opts)
	if err != nil {
		slog.Warn("receipt preprocessing failed, falling back to original image", "error", err)
		return variants
	}
	return append(variants, processed...)
}

func buildProcessedVariants(data []byte, opts VariantOptions) ([]Variant, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding source image: %w", err)
	}

	base := imaging.Grayscale(src)
	// Sigmoidal contrast normalization evens out faded thermal prints
	// without clipping the highlights a linear stretch would.
	base = imaging.AdjustSigmoid(base, 0.5, 3.0)
	if opts.MaxWidth > 0 && base.Bounds().Dx() > opts.MaxWidth {
		base = imaging.Resize(base, opts.MaxWidth, 0, imaging.Lanczos)
	}
	base = imaging.Sharpen(base, 0.8)

	enhanced, err := encodePNG(adjust.Contrast(base, opts.ContrastBoost))
	if err != nil {
		return nil, fmt.Errorf("encoding enhanced variant: %w", err)
	}
	binary, err := encodePNG(segment.Threshold(base, opts.BinarizeThreshold))
	if err != nil {
		return nil, fmt.Errorf("encoding binarized variant: %w", err)
	}

	return []Variant{
		{Strategy: "enhanced-sparse", Image: enhanced, Segmentation: SegmentSparseText},
		{Strategy: "binary-block", Image: binary, Segmentation: SegmentSingleBlock},
		{Strategy: "enhanced-auto", Image: enhanced, Segmentation: SegmentAuto},
	}, nil
}
