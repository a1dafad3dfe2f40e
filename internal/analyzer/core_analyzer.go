package analyzer

import (
	"image"
	"image/draw"
	"sync"

	"go-image-restorer/pkg/models"
)

// coreClassifier implements BlurClassifier
type coreClassifier struct {
	metricsCalculator MetricsCalculator
	options           Options
	grayPool          sync.Pool
}

// NewClassifier creates a blur classifier with the given thresholds
func NewClassifier(options Options) BlurClassifier {
	return &coreClassifier{
		metricsCalculator: NewMetricsCalculator(),
		options:           options,
		grayPool: sync.Pool{
			New: func() interface{} {
				return &image.Gray{}
			},
		},
	}
}

// Classify converts the frame to luma, computes both sharpness signals and
// derives the tier from the Laplacian variance alone.
func (cc *coreClassifier) Classify(img image.Image) (models.BlurMeasurement, models.SeverityTier, error) {
	if img == nil || img.Bounds().Empty() {
		return models.BlurMeasurement{}, models.TierHigh, ErrEmptyFrame
	}

	gray := cc.grayPool.Get().(*image.Gray)
	defer cc.grayPool.Put(gray)
	toGray(gray, img)

	measurement := models.BlurMeasurement{
		Variance:    cc.metricsCalculator.LaplacianVariance(gray),
		EdgeDensity: cc.metricsCalculator.EdgeDensity(gray, cc.options.EdgeLowThreshold, cc.options.EdgeHighThreshold),
	}
	return measurement, cc.options.TierFor(measurement.Variance), nil
}

// toGray renders img into dst at origin (0,0), reusing dst's buffer when large enough
func toGray(dst *image.Gray, img image.Image) {
	bounds := img.Bounds()
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	n := rect.Dx() * rect.Dy()
	if cap(dst.Pix) < n {
		dst.Pix = make([]uint8, n)
	}
	dst.Pix = dst.Pix[:n]
	dst.Stride = rect.Dx()
	dst.Rect = rect
	draw.Draw(dst, rect, img, bounds.Min, draw.Src)
}
