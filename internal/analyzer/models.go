package analyzer

import (
	"errors"

	"go-image-restorer/pkg/models"
)

// Aliases to the shared models so callers of this package need only one import
type (
	BlurMeasurement = models.BlurMeasurement
	SeverityTier    = models.SeverityTier
)

// ErrEmptyFrame is returned for nil or zero-area input
var ErrEmptyFrame = errors.New("empty frame")
