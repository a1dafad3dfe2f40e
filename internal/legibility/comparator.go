package legibility

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"go-image-restorer/internal/ocr"
	"go-image-restorer/pkg/models"
)

// ErrUnavailable is the Outcome error when no OCR engine is configured
var ErrUnavailable = errors.New("ocr engine unavailable")

// Options are the filtering floors for the "main text" counts
type Options struct {
	MinConfidence float64
	MinTextLength int
}

func DefaultOptions() Options {
	return Options{MinConfidence: 0.3, MinTextLength: 2}
}

// Outcome is either a report or the reason it is absent. It never carries both.
type Outcome struct {
	Report *models.LegibilityReport
	Err    error
}

// Present reports whether a legibility report was produced
func (o Outcome) Present() bool {
	return o.Report != nil
}

// Comparator measures OCR legibility before and after restoration
type Comparator struct {
	engine ocr.Engine
}

// NewComparator accepts a nil engine; every comparison is then Absent
func NewComparator(engine ocr.Engine) *Comparator {
	return &Comparator{engine: engine}
}

// Enabled reports whether an OCR engine is configured
func (c *Comparator) Enabled() bool {
	return c != nil && c.engine != nil
}

// Compare runs OCR on both images. Any failure, including a panic inside the
// OCR backend, yields an Absent outcome instead of an error.
func (c *Comparator) Compare(ctx context.Context, before, after image.Image, opts Options) (out Outcome) {
	if !c.Enabled() {
		return Outcome{Err: ErrUnavailable}
	}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("ocr panicked: %v", r)}
		}
	}()

	beforeRegions, err := c.engine.RunOCR(ctx, before)
	if err != nil {
		return Outcome{Err: fmt.Errorf("ocr on original: %w", err)}
	}
	afterRegions, err := c.engine.RunOCR(ctx, after)
	if err != nil {
		return Outcome{Err: fmt.Errorf("ocr on restored: %w", err)}
	}

	return Outcome{Report: BuildReport(beforeRegions, afterRegions, opts)}
}

// BuildReport summarizes two OCR passes
func BuildReport(before, after []ocr.TextRegion, opts Options) *models.LegibilityReport {
	beforeConf := ocr.AverageConfidence(before)
	afterConf := ocr.AverageConfidence(after)
	beforeFiltered := ocr.FilterMainText(before, opts.MinConfidence, opts.MinTextLength)
	afterFiltered := ocr.FilterMainText(after, opts.MinConfidence, opts.MinTextLength)

	return &models.LegibilityReport{
		BeforeConfidence:    beforeConf,
		AfterConfidence:     afterConf,
		Delta:               ocr.Round3(afterConf - beforeConf),
		BeforeTextCount:     len(before),
		AfterTextCount:      len(after),
		BeforeFilteredCount: len(beforeFiltered),
		AfterFilteredCount:  len(afterFiltered),
		FilteredCountDelta:  len(afterFiltered) - len(beforeFiltered),
		Similarity:          similarity(joinText(beforeFiltered), joinText(afterFiltered)),
	}
}

func joinText(regions []ocr.TextRegion) string {
	parts := make([]string, 0, len(regions))
	for _, r := range regions {
		parts = append(parts, strings.TrimSpace(r.Text))
	}
	return strings.Join(parts, " ")
}

// similarity treats the restored text as the reference. Nil when neither side has text.
func similarity(before, after string) *models.TextSimilarity {
	if before == "" && after == "" {
		return nil
	}

	dist := levenshtein.Distance(before, after)
	sim := &models.TextSimilarity{EditDistance: dist}

	refChars := len([]rune(after))
	if refChars > 0 {
		sim.CharErrorRate = ocr.Round3(float64(dist) / float64(refChars))
	} else {
		sim.CharErrorRate = 1
	}

	refWords := strings.Fields(after)
	if len(refWords) > 0 {
		rate, _ := wer.WER(refWords, strings.Fields(before))
		sim.WordErrorRate = ocr.Round3(rate)
	} else {
		sim.WordErrorRate = 1
	}
	return sim
}
