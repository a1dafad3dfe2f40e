package restoration

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go-image-restorer/internal/imaging"
	"go-image-restorer/pkg/models"
)

// DefaultScale is the enhancement factor used when the caller passes 0
const DefaultScale = 2

// Plan is the routing decision for one severity tier
type Plan struct {
	DeblurPasses int
}

// PlanFor returns the routing table entry for tier. Enhancement always runs once.
func PlanFor(tier models.SeverityTier) (Plan, error) {
	switch tier {
	case models.TierLow:
		return Plan{DeblurPasses: 0}, nil
	case models.TierMedium:
		return Plan{DeblurPasses: 1}, nil
	case models.TierHigh:
		return Plan{DeblurPasses: 2}, nil
	default:
		return Plan{}, fmt.Errorf("unknown severity tier %d", int(tier))
	}
}

// Result holds the frames produced by one routing decision
type Result struct {
	Original  image.Image
	Deblurred image.Image
	Enhanced  image.Image
	Passes    int
}

// Router applies the tier's deblur passes then a single enhancement
type Router struct {
	models Models
}

func NewRouter(m Models) (*Router, error) {
	if m.Deblurrer == nil || m.Enhancer == nil {
		return nil, errors.New("restoration: deblurrer and enhancer are required")
	}
	return &Router{models: m}, nil
}

// Restore routes frame through the plan for tier. Model errors are returned
// wrapped so errors.Is still matches the backend's error.
func (r *Router) Restore(ctx context.Context, frame image.Image, tier models.SeverityTier, scale int) (*Result, error) {
	plan, err := PlanFor(tier)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = DefaultScale
	}

	current := frame
	for pass := 1; pass <= plan.DeblurPasses; pass++ {
		current, err = r.models.Deblurrer.Deblur(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("deblur pass %d/%d: %w", pass, plan.DeblurPasses, err)
		}
	}

	deblurred := current
	if plan.DeblurPasses == 0 {
		deblurred = imaging.Clone(frame)
	}

	enhanced, err := r.models.Enhancer.Enhance(ctx, current, scale)
	if err != nil {
		return nil, fmt.Errorf("enhance x%d: %w", scale, err)
	}

	return &Result{
		Original:  frame,
		Deblurred: deblurred,
		Enhanced:  enhanced,
		Passes:    plan.DeblurPasses,
	}, nil
}
