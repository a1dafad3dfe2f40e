package container

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/analyzer"
	"go-image-restorer/internal/config"
	"go-image-restorer/internal/factory"
	"go-image-restorer/internal/jobs"
	"go-image-restorer/internal/legibility"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/observer"
	"go-image-restorer/internal/ocr"
	"go-image-restorer/internal/pipeline"
	"go-image-restorer/internal/render"
	"go-image-restorer/internal/repository"
	"go-image-restorer/internal/restoration"
	"go-image-restorer/internal/service"
	"go-image-restorer/internal/storage"
	"go-image-restorer/internal/tracing"
	"go-image-restorer/internal/transport"
	"go-image-restorer/pkg/validation"
)

const janitorInterval = 5 * time.Minute

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	ocr      ocr.Engine
	executor *jobs.Executor
	events   *observer.EventPublisher
	metrics  *observer.MetricsObserver
	service  service.RestorationService
	handler  http.Handler
	tracer   *tracing.Provider
	cancel   context.CancelFunc
}

// Processors holds the synchronous pipeline, shared by the API and the CLI
type Processors struct {
	OCR    ocr.Engine
	Images *pipeline.ImageProcessor
	Videos *pipeline.VideoProcessor
	Models factory.ModelSet
}

// NewProcessors builds the classifier, router, renderer and comparator and
// the image and video processors on top of them.
func NewProcessors(cfg *config.Config, components *factory.ComponentFactory) (*Processors, error) {
	models, err := components.ModelFactory.CreateModels(cfg.ModelBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to create models: %w", err)
	}
	router, err := restoration.NewRouter(models.Models)
	if err != nil {
		return nil, err
	}

	engine := components.OCRFactory.CreateEngine()
	frames, err := pipeline.NewFrameProcessor(
		analyzer.NewClassifier(analyzer.DefaultOptions()),
		router,
		render.NewRenderer(),
		legibility.NewComparator(engine),
	)
	if err != nil {
		closeEngine(engine)
		return nil, err
	}

	layout := storage.NewLayout(cfg.OutputDir)
	return &Processors{
		OCR:    engine,
		Images: pipeline.NewImageProcessor(frames, layout),
		Videos: pipeline.NewVideoProcessor(frames, layout, pipeline.VideoConfig{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			OCR:         engine,
			OCRStride:   cfg.VideoOCRStride,
		}),
		Models: models,
	}, nil
}

// Close releases the OCR engine
func (p *Processors) Close() {
	closeEngine(p.OCR)
}

// NewContainer wires the job repository, worker pool, observers, pipeline,
// service and HTTP handler. Background janitors stop on Close.
func NewContainer(cfg *config.Config) (*Container, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	components := factory.NewComponentFactory(cfg)
	procs, err := NewProcessors(cfg, components)
	if err != nil {
		return nil, err
	}

	publisher, err := components.PublisherFactory.CreatePublisher(storage.NewLayout(cfg.OutputDir))
	if err != nil {
		procs.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	tracer, err := tracing.InitTracer(context.Background(), tracing.Config{
		ServiceName:  "go-image-restorer",
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
	})
	if err != nil {
		procs.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	repo := repository.NewMemoryJobRepository(repository.MemoryOptions{
		Retention: cfg.JobRetention,
		MaxJobs:   cfg.MaxJobs,
	})
	go repo.RunJanitor(ctx, janitorInterval)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	executor := jobs.NewExecutor(repo, jobs.NewWorkerPool(cfg.WorkerCount, cfg.QueueSize), events)

	opts := service.Options{
		UploadDir:    cfg.UploadDir,
		ModelBackend: cfg.ModelBackend,
		Legibility:   procs.OCR != nil,
		Images:       procs.Images,
		Videos:       procs.Videos,
		Executor:     executor,
		Validator:    validation.NewUploadValidator(),
		Publisher:    publisher,
		Models:       procs.Models.Health,
	}
	svc := service.NewRestorationService(opts)

	logger.WithFields(logrus.Fields{
		"model_backend": cfg.ModelBackend,
		"ocr_enabled":   procs.OCR != nil,
		"workers":       cfg.WorkerCount,
		"queue_size":    cfg.QueueSize,
		"publisher":     publisher != nil,
	}).Info("Container initialized")

	return &Container{
		config:   cfg,
		ocr:      procs.OCR,
		executor: executor,
		events:   events,
		metrics:  metrics,
		service:  svc,
		handler:  transport.NewHandler(ctx, svc, metrics.Handler(), cfg),
		tracer:   tracer,
		cancel:   cancel,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the job-facing service
func (c *Container) Service() service.RestorationService {
	return c.service
}

// Close drains queued jobs until ctx ends, then stops background work,
// releases the OCR engine and flushes traces.
func (c *Container) Close(ctx context.Context) error {
	err := c.executor.Shutdown(ctx)
	c.events.Wait()
	c.cancel()
	if err == nil {
		closeEngine(c.ocr)
	}
	if terr := c.tracer.Shutdown(ctx); terr != nil {
		logger.WithError(terr).Warn("Failed to flush traces")
	}
	return err
}

func closeEngine(engine ocr.Engine) {
	if closer, ok := engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close OCR engine")
		}
	}
}
