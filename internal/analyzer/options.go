package analyzer

import "go-image-restorer/pkg/models"

// Options holds the fixed classification constants
type Options struct {
	// Variance strictly above LowSeverityVariance is Low severity
	LowSeverityVariance float64
	// Variance strictly above MediumSeverityVariance (and not Low) is Medium; the rest is High
	MediumSeverityVariance float64

	// Canny hysteresis thresholds for the edge density signal
	EdgeLowThreshold  float64
	EdgeHighThreshold float64
}

// DefaultOptions returns the production thresholds
func DefaultOptions() Options {
	return Options{
		LowSeverityVariance:    1080.0,
		MediumSeverityVariance: 40.0,
		EdgeLowThreshold:       100.0,
		EdgeHighThreshold:      200.0,
	}
}

// TierFor maps a Laplacian variance to a severity tier.
// Edge density is intentionally not an input.
func (o Options) TierFor(variance float64) models.SeverityTier {
	switch {
	case variance > o.LowSeverityVariance:
		return models.TierLow
	case variance > o.MediumSeverityVariance:
		return models.TierMedium
	default:
		return models.TierHigh
	}
}
