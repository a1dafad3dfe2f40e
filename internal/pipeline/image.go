package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"go-image-restorer/internal/imaging"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/restoration"
	"go-image-restorer/internal/storage"
	"go-image-restorer/internal/tracing"
	"go-image-restorer/pkg/models"
)

// ImageRequest describes one single-frame job
type ImageRequest struct {
	JobID      string
	InputPath  string
	Scale      int
	Legibility bool
	// Encodings adds base64 PNGs of every artifact to the report
	Encodings bool
}

// ImageProcessor turns an uploaded image into the numbered artifacts of a job
type ImageProcessor struct {
	frames *FrameProcessor
	layout storage.Layout
}

func NewImageProcessor(frames *FrameProcessor, layout storage.Layout) *ImageProcessor {
	return &ImageProcessor{frames: frames, layout: layout}
}

func (p *ImageProcessor) Process(ctx context.Context, req ImageRequest) (*models.ImageReport, error) {
	start := time.Now()

	src, err := imaging.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	frameCtx, span := tracing.Start(ctx, "image.restore", attribute.String("job.id", req.JobID))
	result, err := p.frames.Process(frameCtx, src, FrameOptions{Scale: req.Scale, Legibility: req.Legibility})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name string
		img  image.Image
	}{
		{storage.OriginalFile, result.Original},
		{storage.DeblurredFile, result.Deblurred},
		{storage.EnhancedFile, result.Enhanced},
		{storage.ComparisonFile, result.Comparison},
	}
	for _, a := range artifacts {
		if err := imaging.SavePNG(p.layout.Path(req.JobID, a.name), a.img); err != nil {
			return nil, err
		}
	}

	report := &models.ImageReport{
		Blur:         result.Blur,
		Tier:         result.Tier,
		DeblurPasses: result.Passes,
		Scale:        effectiveScale(req.Scale),
		OriginalSize: sizeOf(result.Original),
		EnhancedSize: sizeOf(result.Enhanced),
		Artifacts: models.ImageArtifacts{
			Original:   p.layout.URL(req.JobID, storage.OriginalFile),
			Deblurred:  p.layout.URL(req.JobID, storage.DeblurredFile),
			Enhanced:   p.layout.URL(req.JobID, storage.EnhancedFile),
			Comparison: p.layout.URL(req.JobID, storage.ComparisonFile),
		},
		Legibility: result.Legibility.Report,
	}

	if req.Encodings {
		enc, err := encodeAll(result)
		if err != nil {
			return nil, err
		}
		report.Encodings = enc
	}

	logLegibility(req.JobID, -1, result.Legibility.Err)

	report.ProcessingTimeSec = time.Since(start).Seconds()
	logger.WithFields(logrus.Fields{
		"job_id":   req.JobID,
		"tier":     result.Tier.String(),
		"variance": result.Blur.Variance,
		"passes":   result.Passes,
		"duration": report.ProcessingTimeSec,
	}).Info("Frame restored")

	return report, nil
}

func encodeAll(result *FrameResult) (*models.ImageEncodings, error) {
	var enc models.ImageEncodings
	targets := []struct {
		dst *string
		img image.Image
	}{
		{&enc.Original, result.Original},
		{&enc.Deblurred, result.Deblurred},
		{&enc.Enhanced, result.Enhanced},
		{&enc.Comparison, result.Comparison},
	}
	for _, t := range targets {
		s, err := imaging.PNGBase64(t.img)
		if err != nil {
			return nil, fmt.Errorf("encode artifact: %w", err)
		}
		*t.dst = s
	}
	return &enc, nil
}

func effectiveScale(scale int) int {
	if scale <= 0 {
		return restoration.DefaultScale
	}
	return scale
}

func sizeOf(img image.Image) models.Size {
	b := img.Bounds()
	return models.Size{Width: b.Dx(), Height: b.Dy()}
}

// logLegibility records why a requested legibility report is missing.
// frameID is -1 for single images.
func logLegibility(jobID string, frameID int, err error) {
	if err == nil {
		return
	}
	entry := logger.WithField("job_id", jobID).WithError(err)
	if frameID >= 0 {
		entry = entry.WithField("frame_id", frameID)
	}
	entry.Warn("Legibility comparison skipped")
}
