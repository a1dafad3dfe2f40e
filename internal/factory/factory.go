package factory

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/config"
	"go-image-restorer/internal/inference"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/ocr"
	"go-image-restorer/internal/restoration"
	"go-image-restorer/internal/service"
	"go-image-restorer/internal/storage"
)

// ModelSet is a deblur/enhance pair plus an optional reachability check
type ModelSet struct {
	restoration.Models
	// Health is nil for in-process backends
	Health service.Pinger
}

// ModelFactory creates restoration model backends
type ModelFactory interface {
	CreateModels(backend string) (ModelSet, error)
}

// OCRFactory creates the OCR engine used for legibility reports
type OCRFactory interface {
	CreateEngine() ocr.Engine
}

// PublisherFactory creates the optional artifact publisher
type PublisherFactory interface {
	CreatePublisher(layout storage.Layout) (storage.Publisher, error)
}

type modelFactory struct {
	cfg *config.Config
}

// NewModelFactory creates a new model factory
func NewModelFactory(cfg *config.Config) ModelFactory {
	return &modelFactory{cfg: cfg}
}

// CreateModels builds the backend lazily: nothing is constructed or dialed
// until the first frame needs it.
func (f *modelFactory) CreateModels(backend string) (ModelSet, error) {
	switch backend {
	case config.BackendClassical:
		return ModelSet{
			Models: restoration.Models{
				Deblurrer: inference.NewLazyDeblurrer(backend, func() (restoration.Deblurrer, error) {
					return inference.NewClassicalDeblurrer(), nil
				}),
				Enhancer: inference.NewLazyEnhancer(backend, func() (restoration.Enhancer, error) {
					return inference.NewClassicalEnhancer(), nil
				}),
			},
		}, nil
	case config.BackendRemote:
		if f.cfg.ModelServerURL == "" {
			return ModelSet{}, fmt.Errorf("model server URL is required for the %s backend", backend)
		}
		client := inference.NewRemoteClient(f.cfg.ModelServerURL, f.cfg.ModelTimeout)
		return ModelSet{
			Models: restoration.Models{
				Deblurrer: inference.NewLazyDeblurrer(backend, func() (restoration.Deblurrer, error) {
					return inference.NewRemoteDeblurrer(client), nil
				}),
				Enhancer: inference.NewLazyEnhancer(backend, func() (restoration.Enhancer, error) {
					return inference.NewRemoteEnhancer(client), nil
				}),
			},
			Health: client,
		}, nil
	default:
		return ModelSet{}, fmt.Errorf("unsupported model backend: %s", backend)
	}
}

type ocrFactory struct {
	cfg *config.Config
}

// NewOCRFactory creates a new OCR factory
func NewOCRFactory(cfg *config.Config) OCRFactory {
	return &ocrFactory{cfg: cfg}
}

// CreateEngine returns nil when OCR is disabled or Tesseract cannot start.
// Restoration keeps working without it; legibility reports are omitted.
func (f *ocrFactory) CreateEngine() ocr.Engine {
	if !f.cfg.OCREnabled {
		logger.Info("OCR disabled, legibility reports will be omitted")
		return nil
	}
	engine, err := ocr.NewTesseractEngine(f.cfg.OCRLanguage, f.cfg.WorkerCount)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"language": f.cfg.OCRLanguage,
		}).WithError(err).Warn("OCR engine unavailable, legibility reports disabled")
		return nil
	}
	return engine
}

type publisherFactory struct {
	cfg *config.Config
}

// NewPublisherFactory creates a new publisher factory
func NewPublisherFactory(cfg *config.Config) PublisherFactory {
	return &publisherFactory{cfg: cfg}
}

// CreatePublisher returns a nil publisher when blob storage is not configured
func (f *publisherFactory) CreatePublisher(layout storage.Layout) (storage.Publisher, error) {
	if !f.cfg.AzureEnabled() {
		return nil, nil
	}
	return storage.NewAzurePublisher(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer, layout)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ModelFactory     ModelFactory
	OCRFactory       OCRFactory
	PublisherFactory PublisherFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ModelFactory:     NewModelFactory(cfg),
		OCRFactory:       NewOCRFactory(cfg),
		PublisherFactory: NewPublisherFactory(cfg),
	}
}
