package scanning

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/natuki53/Walleca/internal/extract"
)

// ErrAllAttemptsFailed is returned when every recognition pass over a
// receipt failed and no candidate result exists.
var ErrAllAttemptsFailed = errors.New("all recognition attempts failed")

// Orchestrator runs the multi-pass recognition pipeline for one receipt:
// build image variants, recognize each through the shared engine, extract
// and score fields per attempt, then merge the best per-field values.
type Orchestrator struct {
	engine         Engine
	extractor      *extract.Extractor
	variants       VariantOptions
	attemptTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator. attemptTimeout bounds each
// recognition attempt; zero disables the per-attempt bound.
func NewOrchestrator(engine Engine, extractor *extract.Extractor, variants VariantOptions, attemptTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		engine:         engine,
		extractor:      extractor,
		variants:       variants,
		attemptTimeout: attemptTimeout,
	}
}

// Process runs every recognition pass over the receipt image and returns
// the merged fields. Individual attempt failures are logged and skipped;
// ErrAllAttemptsFailed is returned only when no attempt produced a result.
// Cancellation is honored between variants.
func (o *Orchestrator) Process(ctx context.Context, image []byte) (extract.Fields, error) {
	variants := BuildVariants(image, o.variants)

	attempts := make([]Attempt, 0, len(variants))
	for _, variant := range variants {
		if err := ctx.Err(); err != nil {
			// Cancellation granularity is per variant: skip the rest.
			slog.Warn("skipping remaining recognition attempts", "error", err)
			break
		}

		attempt, err := o.runAttempt(ctx, variant)
		if err != nil {
			slog.Warn("recognition attempt failed",
				"strategy", variant.Strategy,
				"error", err,
			)
			continue
		}
		attempts = append(attempts, attempt)
	}

	if len(attempts) == 0 {
		return extract.Fields{}, ErrAllAttemptsFailed
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return betterAttempt(attempts[i], attempts[j])
	})
	merged := mergeAttempts(attempts)

	slog.Debug("recognition attempts merged",
		"attempts", len(attempts),
		"best_strategy", attempts[0].Strategy,
		"best_score", attempts[0].QualityScore,
	)
	return merged, nil
}

func (o *Orchestrator) runAttempt(ctx context.Context, variant Variant) (Attempt, error) {
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	result, err := o.engine.Recognize(ctx, Request{
		Image:        variant.Image,
		Segmentation: variant.Segmentation,
	})
	if err != nil {
		return Attempt{}, err
	}
	return newAttempt(variant.Strategy, result.Confidence, o.extractor.ExtractFields(result.Text)), nil
}
