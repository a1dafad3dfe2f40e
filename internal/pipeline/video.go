package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"go-image-restorer/internal/imaging"
	"go-image-restorer/internal/legibility"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/ocr"
	"go-image-restorer/internal/storage"
	"go-image-restorer/internal/tracing"
	"go-image-restorer/internal/video"
	"go-image-restorer/pkg/models"
)

// ErrNoFramesProcessed fails a video job that produced no output frames
var ErrNoFramesProcessed = errors.New("no frames were processed")

// VideoConfig wires the external tools used by VideoProcessor
type VideoConfig struct {
	Runner      video.Runner
	FFmpegPath  string
	FFprobePath string
	// OCR, when set, compares the text of every OCRStride-th processed frame
	// before and after restoration
	OCR        ocr.Engine
	OCRStride  int
	MaxSamples int
}

// VideoRequest describes one video job
type VideoRequest struct {
	JobID       string
	InputPath   string
	Scale       int
	FrameStride int
	Legibility  bool
}

// VideoProcessor restores every selected frame of a video, re-encodes the
// enhanced frames and reports on an evenly spaced sample of them.
type VideoProcessor struct {
	frames *FrameProcessor
	layout storage.Layout
	cfg    VideoConfig
	// text compares OCR of every OCRStride-th frame; disabled without cfg.OCR
	text *legibility.Comparator
}

func NewVideoProcessor(frames *FrameProcessor, layout storage.Layout, cfg VideoConfig) *VideoProcessor {
	if cfg.Runner == nil {
		cfg.Runner = video.NewExecRunner()
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	return &VideoProcessor{frames: frames, layout: layout, cfg: cfg, text: legibility.NewComparator(cfg.OCR)}
}

// frameSummary is what is kept in memory per processed frame
type frameSummary struct {
	blur      models.BlurMeasurement
	tier      models.SeverityTier
	deblurred bool
}

type videoRun struct {
	req       VideoRequest
	info      video.Info
	encoder   *video.Encoder
	outSize   image.Point
	ids       []int
	summaries map[int]frameSummary
	total     int
	deblurred int
}

// Probe reads the stream geometry of path without decoding it
func (p *VideoProcessor) Probe(ctx context.Context, path string) (video.Info, error) {
	return video.Probe(ctx, p.cfg.Runner, p.cfg.FFprobePath, path)
}

func (p *VideoProcessor) Process(ctx context.Context, req VideoRequest) (*models.VideoReport, error) {
	start := time.Now()
	if req.FrameStride < 1 {
		req.FrameStride = 1
	}
	log := logger.ForJob(req.JobID, string(models.JobKindVideo))

	info, err := p.Probe(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"width":  info.Width,
		"height": info.Height,
		"fps":    info.FPS,
		"frames": info.FrameCount,
	}).Info("Video opened")

	dec, err := video.OpenDecoder(ctx, p.cfg.Runner, p.cfg.FFmpegPath, req.InputPath, info)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	run := &videoRun{req: req, info: info, summaries: make(map[int]frameSummary)}
	defer func() {
		if run.encoder != nil {
			run.encoder.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, idx, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		run.total++

		if !onStride(idx, req.FrameStride) {
			continue
		}
		if err := p.processFrame(ctx, run, frame, idx); err != nil {
			return nil, fmt.Errorf("frame %d: %w", idx, err)
		}
	}

	if len(run.ids) == 0 {
		return nil, ErrNoFramesProcessed
	}

	outputPath := p.layout.Path(req.JobID, storage.OutputVideo)
	encoder := run.encoder
	run.encoder = nil
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", outputPath, err)
	}

	sampleCtx, span := tracing.Start(ctx, "video.sample", attribute.Int("video.processed_frames", len(run.ids)))
	samples, err := p.sampleFrames(sampleCtx, run)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	report := &models.VideoReport{
		TotalFrameCount:     run.total,
		ProcessedFrameCount: len(run.ids),
		DeblurredFrameCount: run.deblurred,
		FrameStride:         req.FrameStride,
		FPS:                 info.FPS,
		Scale:               effectiveScale(req.Scale),
		SampledFrames:       samples,
		OutputVideo:         p.layout.URL(req.JobID, storage.OutputVideo),
		ProcessingTimeSec:   time.Since(start).Seconds(),
	}

	log.WithFields(logrus.Fields{
		"total":     report.TotalFrameCount,
		"processed": report.ProcessedFrameCount,
		"deblurred": report.DeblurredFrameCount,
		"sampled":   len(samples),
		"duration":  report.ProcessingTimeSec,
	}).Info("Video restored")

	return report, nil
}

func (p *VideoProcessor) processFrame(ctx context.Context, run *videoRun, frame image.Image, idx int) error {
	jobID := run.req.JobID

	if err := imaging.SavePNG(p.layout.FramePath(jobID, storage.StageOriginal, idx), frame); err != nil {
		return err
	}

	restored, err := p.frames.Restore(ctx, frame, run.req.Scale)
	if err != nil {
		return err
	}

	summary := frameSummary{blur: restored.Blur, tier: restored.Tier}
	if restored.Passes > 0 {
		if err := imaging.SavePNG(p.layout.FramePath(jobID, storage.StageBlurred, idx), frame); err != nil {
			return err
		}
		if err := imaging.SavePNG(p.layout.FramePath(jobID, storage.StageDeblurred, idx), restored.Deblurred); err != nil {
			return err
		}
		summary.deblurred = true
		run.deblurred++
	}

	enhanced := restored.Enhanced
	if err := imaging.SavePNG(p.layout.FramePath(jobID, storage.StageEnhanced, idx), enhanced); err != nil {
		return err
	}

	if run.encoder == nil {
		b := enhanced.Bounds()
		run.outSize = image.Pt(b.Dx(), b.Dy())
		outputPath := p.layout.Path(jobID, storage.OutputVideo)
		enc, err := video.OpenEncoder(ctx, p.cfg.Runner, p.cfg.FFmpegPath, outputPath, b.Dx(), b.Dy(), run.info.FPS)
		if err != nil {
			return err
		}
		run.encoder = enc
	}
	if b := enhanced.Bounds(); b.Dx() != run.outSize.X || b.Dy() != run.outSize.Y {
		enhanced = imaging.Resize(enhanced, run.outSize.X, run.outSize.Y)
	}
	if err := run.encoder.Write(enhanced); err != nil {
		return err
	}

	if p.cfg.OCR != nil && onStride(len(run.ids), p.cfg.OCRStride) {
		p.recordText(ctx, jobID, idx, frame, restored)
	}

	run.ids = append(run.ids, idx)
	run.summaries[idx] = summary

	logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"frame_id": idx,
		"tier":     restored.Tier.String(),
		"passes":   restored.Passes,
	}).Debug("Frame routed")
	return nil
}

type frameText struct {
	FrameID    int                      `json:"frame_id"`
	Blur       models.BlurMeasurement   `json:"blur"`
	Tier       models.SeverityTier      `json:"tier"`
	Legibility *models.LegibilityReport `json:"legibility"`
}

// recordText compares OCR on the decoded frame against its enhanced output
// and stores the report. Failures are logged and never fail the job.
func (p *VideoProcessor) recordText(ctx context.Context, jobID string, idx int, original image.Image, restored *Restored) {
	log := logger.WithFields(logrus.Fields{"job_id": jobID, "frame_id": idx})

	outcome := p.text.Compare(ctx, original, restored.Enhanced, p.frames.legibilityOpts)
	if !outcome.Present() {
		log.WithError(outcome.Err).Warn("Frame OCR failed")
		return
	}

	data, err := json.MarshalIndent(frameText{
		FrameID:    idx,
		Blur:       restored.Blur,
		Tier:       restored.Tier,
		Legibility: outcome.Report,
	}, "", "  ")
	if err != nil {
		log.WithError(err).Warn("Failed to encode OCR result")
		return
	}

	path := p.layout.Path(jobID, "frames", storage.StageOCR, storage.FrameFile(idx, "json"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.WithError(err).Warn("Failed to store OCR result")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.WithError(err).Warn("Failed to store OCR result")
	}
}

// sampleFrames reloads the sampled frames from disk and renders a comparison
// strip for each one.
func (p *VideoProcessor) sampleFrames(ctx context.Context, run *videoRun) ([]models.SampledFrame, error) {
	jobID := run.req.JobID
	ids := Sample(run.ids, p.cfg.MaxSamples)
	samples := make([]models.SampledFrame, 0, len(ids))

	for _, id := range ids {
		summary := run.summaries[id]

		original, err := imaging.Load(p.layout.FramePath(jobID, storage.StageOriginal, id))
		if err != nil {
			return nil, err
		}
		enhanced, err := imaging.Load(p.layout.FramePath(jobID, storage.StageEnhanced, id))
		if err != nil {
			return nil, err
		}

		deblurred := image.Image(original)
		deblurredURL := p.layout.URL(jobID, "frames", storage.StageOriginal, storage.FrameFile(id, "png"))
		if summary.deblurred {
			deblurred, err = imaging.Load(p.layout.FramePath(jobID, storage.StageDeblurred, id))
			if err != nil {
				return nil, err
			}
			deblurredURL = p.layout.URL(jobID, "frames", storage.StageDeblurred, storage.FrameFile(id, "png"))
		}

		comparison, err := p.frames.renderer.Render(original, deblurred, enhanced)
		if err != nil {
			return nil, fmt.Errorf("render frame %d: %w", id, err)
		}
		comparisonName := fmt.Sprintf("%06d_comparison.png", id)
		if err := imaging.SavePNG(p.layout.Path(jobID, "frames", storage.StageSamples, comparisonName), comparison); err != nil {
			return nil, err
		}

		outcome := p.frames.legibility(ctx, original, enhanced, run.req.Legibility)
		logLegibility(jobID, id, outcome.Err)

		samples = append(samples, models.SampledFrame{
			FrameID: id,
			Blur:    summary.blur,
			Tier:    summary.tier,
			Artifacts: models.ImageArtifacts{
				Original:   p.layout.URL(jobID, "frames", storage.StageOriginal, storage.FrameFile(id, "png")),
				Deblurred:  deblurredURL,
				Enhanced:   p.layout.URL(jobID, "frames", storage.StageEnhanced, storage.FrameFile(id, "png")),
				Comparison: p.layout.URL(jobID, "frames", storage.StageSamples, comparisonName),
			},
			Legibility: outcome.Report,
		})
	}
	return samples, nil
}
