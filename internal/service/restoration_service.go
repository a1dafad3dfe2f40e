package service

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "go-image-restorer/internal/errors"
	"go-image-restorer/internal/jobs"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/pipeline"
	"go-image-restorer/internal/repository"
	"go-image-restorer/internal/storage"
	"go-image-restorer/pkg/models"
	"go-image-restorer/pkg/validation"
)

// Upload is one submitted file plus its raw form parameters
type Upload struct {
	Filename    string
	Body        io.Reader
	Scale       string
	FrameStride string
}

// Pinger checks that a remote model backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RestorationService defines the job-facing operations of the API
type RestorationService interface {
	SubmitImage(ctx context.Context, upload Upload) (models.Job, error)
	SubmitVideo(ctx context.Context, upload Upload) (models.Job, error)
	Status(ctx context.Context, id string) (models.Job, error)
	Health(ctx context.Context) models.HealthResponse
}

// Options wire the collaborators of the restoration service
type Options struct {
	UploadDir    string
	ModelBackend string
	Legibility   bool
	Images       *pipeline.ImageProcessor
	Videos       *pipeline.VideoProcessor
	Executor     *jobs.Executor
	Validator    *validation.UploadValidator
	// Publisher is optional; completed job outputs are copied through it
	Publisher storage.Publisher
	// Models is optional; Health reports degraded when its Ping fails
	Models Pinger
}

type restorationService struct {
	opts Options
}

// NewRestorationService creates a new restoration service
func NewRestorationService(opts Options) RestorationService {
	if opts.Validator == nil {
		opts.Validator = validation.NewUploadValidator()
	}
	return &restorationService{opts: opts}
}

// SubmitImage validates and stores the upload, checks that it decodes and
// queues an image job.
func (s *restorationService) SubmitImage(ctx context.Context, upload Upload) (models.Job, error) {
	v := s.opts.Validator
	if err := v.ValidateFilename(models.JobKindImage, upload.Filename); err != nil {
		return models.Job{}, err
	}
	scale, err := v.ParseScale(upload.Scale)
	if err != nil {
		return models.Job{}, err
	}

	id := uuid.NewString()
	path, err := s.store(id, upload)
	if err != nil {
		return models.Job{}, err
	}

	if err := s.checkImage(path); err != nil {
		s.discard(id)
		return models.Job{}, err
	}

	req := pipeline.ImageRequest{
		JobID:      id,
		InputPath:  path,
		Scale:      scale,
		Legibility: s.opts.Legibility,
		Encodings:  true,
	}
	return s.submit(ctx, id, models.JobKindImage, func(ctx context.Context) (*models.JobResult, error) {
		report, err := s.opts.Images.Process(ctx, req)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, id)
		return &models.JobResult{Image: report}, nil
	})
}

// SubmitVideo validates and stores the upload, probes it and queues a video job
func (s *restorationService) SubmitVideo(ctx context.Context, upload Upload) (models.Job, error) {
	v := s.opts.Validator
	if err := v.ValidateFilename(models.JobKindVideo, upload.Filename); err != nil {
		return models.Job{}, err
	}
	scale, err := v.ParseScale(upload.Scale)
	if err != nil {
		return models.Job{}, err
	}
	stride, err := v.ParseFrameStride(upload.FrameStride)
	if err != nil {
		return models.Job{}, err
	}

	id := uuid.NewString()
	path, err := s.store(id, upload)
	if err != nil {
		return models.Job{}, err
	}

	info, err := s.opts.Videos.Probe(ctx, path)
	if err != nil {
		s.discard(id)
		return models.Job{}, apperrors.NewValidationError("Could not open video", err)
	}
	if err := v.ValidateDimensions(info.Width, info.Height); err != nil {
		s.discard(id)
		return models.Job{}, err
	}

	req := pipeline.VideoRequest{
		JobID:       id,
		InputPath:   path,
		Scale:       scale,
		FrameStride: stride,
		Legibility:  s.opts.Legibility,
	}
	return s.submit(ctx, id, models.JobKindVideo, func(ctx context.Context) (*models.JobResult, error) {
		report, err := s.opts.Videos.Process(ctx, req)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, id)
		return &models.JobResult{Video: report}, nil
	})
}

func (s *restorationService) submit(ctx context.Context, id string, kind models.JobKind, task jobs.Task) (models.Job, error) {
	job, err := s.opts.Executor.Submit(ctx, id, kind, task)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		return job, apperrors.NewUnavailableError("Server is busy, retry later", err)
	case err != nil:
		return models.Job{}, apperrors.NewInternalError("Failed to queue job", err)
	}
	return job, nil
}

// Status returns the current record of a job
func (s *restorationService) Status(ctx context.Context, id string) (models.Job, error) {
	job, err := s.opts.Executor.Get(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return models.Job{}, apperrors.NewNotFoundError("Job not found", err)
	}
	if err != nil {
		return models.Job{}, apperrors.NewInternalError("Failed to load job", err)
	}
	return job, nil
}

// Health reports the backend and queue state
func (s *restorationService) Health(ctx context.Context) models.HealthResponse {
	resp := models.HealthResponse{
		Status:       "healthy",
		ModelBackend: s.opts.ModelBackend,
		OCREnabled:   s.opts.Legibility,
		QueueDepth:   s.opts.Executor.Stats().QueueDepth,
	}
	if s.opts.Models != nil {
		if err := s.opts.Models.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Model backend health check failed")
			resp.Status = "degraded"
		}
	}
	return resp
}

// store writes the upload to UPLOAD_DIR/<id>/<name>
func (s *restorationService) store(id string, upload Upload) (string, error) {
	if upload.Body == nil {
		return "", apperrors.NewValidationError("No file provided", nil)
	}
	dir := filepath.Join(s.opts.UploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.NewResourceError("Failed to create upload directory", err)
	}

	path := filepath.Join(dir, filepath.Base(filepath.Clean("/"+upload.Filename)))
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewResourceError("Failed to store upload", err)
	}
	n, err := io.Copy(f, upload.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.discard(id)
		return "", apperrors.NewResourceError("Failed to store upload", err)
	}
	if n == 0 {
		s.discard(id)
		return "", apperrors.NewValidationError("Uploaded file is empty", nil)
	}
	return path, nil
}

func (s *restorationService) checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewResourceError("Failed to read upload", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return apperrors.NewValidationError("Could not decode image", err)
	}
	return s.opts.Validator.ValidateDimensions(cfg.Width, cfg.Height)
}

func (s *restorationService) discard(id string) {
	if err := os.RemoveAll(filepath.Join(s.opts.UploadDir, id)); err != nil {
		logger.WithField("job_id", id).WithError(err).Warn("Failed to remove rejected upload")
	}
}

// publish copies job outputs to durable storage; failures never fail the job
func (s *restorationService) publish(ctx context.Context, id string) {
	if s.opts.Publisher == nil {
		return
	}
	if _, err := s.opts.Publisher.Publish(ctx, id); err != nil {
		logger.WithField("job_id", id).WithError(err).Warn("Artifact publishing failed, outputs kept locally")
	}
}
