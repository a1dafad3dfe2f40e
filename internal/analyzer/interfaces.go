package analyzer

import (
	"image"

	"go-image-restorer/pkg/models"
)

// BlurClassifier measures sharpness and maps it to a severity tier
type BlurClassifier interface {
	Classify(img image.Image) (models.BlurMeasurement, models.SeverityTier, error)
}

// MetricsCalculator handles the per-frame sharpness signals
type MetricsCalculator interface {
	LaplacianVariance(gray *image.Gray) float64
	EdgeDensity(gray *image.Gray, low, high float64) float64
}
