package validation

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "go-image-restorer/internal/errors"
	"go-image-restorer/pkg/models"
)

// Parameter defaults and bounds
const (
	DefaultScale       = 2
	MinScale           = 1
	MaxScale           = 4
	DefaultFrameStride = 1
)

// UploadValidator handles upload validation logic
type UploadValidator struct {
	imageExtensions []string
	videoExtensions []string
	maxPixels       int
}

// NewUploadValidator creates an upload validator with default settings
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{
		imageExtensions: []string{"png", "jpg", "jpeg", "bmp", "gif"},
		videoExtensions: []string{"mp4", "avi", "mov", "mkv", "flv", "wmv"},
		maxPixels:       8192 * 8192,
	}
}

// NewUploadValidatorWithOptions creates an upload validator with custom allow-lists
func NewUploadValidatorWithOptions(imageExts, videoExts []string, maxPixels int) *UploadValidator {
	return &UploadValidator{
		imageExtensions: imageExts,
		videoExtensions: videoExts,
		maxPixels:       maxPixels,
	}
}

// ValidateFilename checks that an upload of kind has an allowed extension
func (v *UploadValidator) ValidateFilename(kind models.JobKind, filename string) error {
	name := strings.TrimSpace(filename)
	if name == "" {
		return apperrors.NewValidationError("No file selected", nil)
	}

	allowed := v.extensionsFor(kind)
	if allowed == nil {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported upload kind %q", kind), nil)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !contains(allowed, ext) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Invalid file type. Allowed: %s", strings.ToUpper(strings.Join(allowed, ", "))), nil)
	}
	return nil
}

// ParseScale reads the enhance_scale parameter; empty means DefaultScale
func (v *UploadValidator) ParseScale(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultScale, nil
	}
	scale, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewValidationError("enhance_scale must be an integer", err)
	}
	if scale < MinScale || scale > MaxScale {
		return 0, apperrors.NewValidationError(fmt.Sprintf("enhance_scale must be between %d and %d", MinScale, MaxScale), nil)
	}
	return scale, nil
}

// ParseFrameStride reads the frame_stride parameter; empty means every frame
func (v *UploadValidator) ParseFrameStride(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFrameStride, nil
	}
	stride, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewValidationError("frame_stride must be an integer", err)
	}
	if stride < 1 {
		return 0, apperrors.NewValidationError("frame_stride must be >= 1", nil)
	}
	return stride, nil
}

// ValidateDimensions rejects empty frames and frames above the pixel budget
func (v *UploadValidator) ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("invalid frame size %dx%d", width, height), nil)
	}
	if v.maxPixels > 0 && width*height > v.maxPixels {
		return apperrors.NewValidationError(fmt.Sprintf("frame size %dx%d exceeds %d pixels", width, height, v.maxPixels), nil)
	}
	return nil
}

func (v *UploadValidator) extensionsFor(kind models.JobKind) []string {
	switch kind {
	case models.JobKindImage:
		return v.imageExtensions
	case models.JobKindVideo:
		return v.videoExtensions
	default:
		return nil
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
