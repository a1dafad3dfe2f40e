package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go-image-restorer/internal/analyzer"
	apperrors "go-image-restorer/internal/errors"
	"go-image-restorer/internal/legibility"
	"go-image-restorer/internal/render"
	"go-image-restorer/internal/restoration"
	"go-image-restorer/pkg/models"
)

// FrameOptions are the per-request knobs of one frame pass
type FrameOptions struct {
	Scale      int
	Legibility bool
}

// Restored is a classified and routed frame without presentation artifacts
type Restored struct {
	Blur models.BlurMeasurement
	Tier models.SeverityTier
	*restoration.Result
}

// FrameResult is a fully processed frame
type FrameResult struct {
	Restored
	Comparison *image.RGBA
	Legibility legibility.Outcome
}

// FrameProcessor runs classify, restore, render and the optional legibility
// comparison on single frames. It is safe for concurrent use when its
// collaborators are.
type FrameProcessor struct {
	classifier     analyzer.BlurClassifier
	router         *restoration.Router
	renderer       *render.Renderer
	comparator     *legibility.Comparator
	legibilityOpts legibility.Options
}

func NewFrameProcessor(classifier analyzer.BlurClassifier, router *restoration.Router, renderer *render.Renderer, comparator *legibility.Comparator) (*FrameProcessor, error) {
	if classifier == nil || router == nil || renderer == nil {
		return nil, errors.New("pipeline: classifier, router and renderer are required")
	}
	return &FrameProcessor{
		classifier:     classifier,
		router:         router,
		renderer:       renderer,
		comparator:     comparator,
		legibilityOpts: legibility.DefaultOptions(),
	}, nil
}

// LegibilityEnabled reports whether an OCR engine is wired in
func (p *FrameProcessor) LegibilityEnabled() bool {
	return p.comparator.Enabled()
}

// Restore classifies frame and routes it through the restoration models.
// Model failures come back as model errors wrapping the backend's error.
func (p *FrameProcessor) Restore(ctx context.Context, frame image.Image, scale int) (*Restored, error) {
	blur, tier, err := p.classifier.Classify(frame)
	if err != nil {
		return nil, apperrors.NewProcessingError("Frame could not be classified", err)
	}

	result, err := p.router.Restore(ctx, frame, tier, scale)
	if err != nil {
		return nil, apperrors.NewModelError("Restoration model failed", err)
	}

	return &Restored{Blur: blur, Tier: tier, Result: result}, nil
}

// Process restores frame, renders the comparison strip and, when requested,
// compares OCR legibility of the original against the enhanced output.
func (p *FrameProcessor) Process(ctx context.Context, frame image.Image, opts FrameOptions) (*FrameResult, error) {
	restored, err := p.Restore(ctx, frame, opts.Scale)
	if err != nil {
		return nil, err
	}

	comparison, err := p.renderer.Render(restored.Original, restored.Deblurred, restored.Enhanced)
	if err != nil {
		return nil, fmt.Errorf("render comparison: %w", err)
	}

	return &FrameResult{
		Restored:   *restored,
		Comparison: comparison,
		Legibility: p.legibility(ctx, restored.Original, restored.Enhanced, opts.Legibility),
	}, nil
}

func (p *FrameProcessor) legibility(ctx context.Context, before, after image.Image, requested bool) legibility.Outcome {
	if !requested {
		return legibility.Outcome{}
	}
	return p.comparator.Compare(ctx, before, after, p.legibilityOpts)
}
