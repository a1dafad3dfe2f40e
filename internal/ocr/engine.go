package ocr

import (
	"context"
	"image"
	"math"
	"strings"
)

// TextRegion is one detected line of text with a confidence in [0, 1]
type TextRegion struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in an image
type Engine interface {
	RunOCR(ctx context.Context, img image.Image) ([]TextRegion, error)
}

// Round3 rounds to three decimal places
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// AverageConfidence is the mean region confidence, 0 when no regions were found
func AverageConfidence(regions []TextRegion) float64 {
	if len(regions) == 0 {
		return 0
	}
	var sum float64
	for _, r := range regions {
		sum += r.Confidence
	}
	return Round3(sum / float64(len(regions)))
}

// FilterMainText keeps regions meeting both the confidence and trimmed length floors
func FilterMainText(regions []TextRegion, minConfidence float64, minLength int) []TextRegion {
	filtered := make([]TextRegion, 0, len(regions))
	for _, r := range regions {
		if r.Confidence >= minConfidence && len([]rune(strings.TrimSpace(r.Text))) >= minLength {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
