package validation

import (
	"testing"

	apperrors "go-image-restorer/internal/errors"
	"go-image-restorer/pkg/models"
)

func TestNewUploadValidator(t *testing.T) {
	validator := NewUploadValidator()
	if validator == nil {
		t.Fatal("Expected non-nil upload validator")
	}
	if len(validator.imageExtensions) != 5 {
		t.Errorf("Expected 5 image extensions, got %d", len(validator.imageExtensions))
	}
	if len(validator.videoExtensions) != 6 {
		t.Errorf("Expected 6 video extensions, got %d", len(validator.videoExtensions))
	}
}

func TestValidateFilename(t *testing.T) {
	validator := NewUploadValidator()

	tests := []struct {
		name     string
		kind     models.JobKind
		filename string
		wantErr  bool
	}{
		{"PNG image", models.JobKindImage, "frame.png", false},
		{"Upper case JPEG", models.JobKindImage, "SCAN.JPEG", false},
		{"BMP image", models.JobKindImage, "old.bmp", false},
		{"MP4 video", models.JobKindVideo, "clip.mp4", false},
		{"MKV video", models.JobKindVideo, "movie.final.mkv", false},
		{"Empty name", models.JobKindImage, "   ", true},
		{"No extension", models.JobKindImage, "frame", true},
		{"Video as image", models.JobKindImage, "clip.mp4", true},
		{"Image as video", models.JobKindVideo, "frame.png", true},
		{"Script", models.JobKindImage, "frame.png.sh", true},
		{"Unknown kind", models.JobKind("audio"), "song.mp3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFilename(tt.kind, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %T", err)
			}
		})
	}
}

func TestParseScale(t *testing.T) {
	validator := NewUploadValidator()

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 2, false},
		{"1", 1, false},
		{" 4 ", 4, false},
		{"0", 0, true},
		{"5", 0, true},
		{"two", 0, true},
	}

	for _, tt := range tests {
		got, err := validator.ParseScale(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScale(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScale(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseFrameStride(t *testing.T) {
	validator := NewUploadValidator()

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"1", 1, false},
		{"30", 30, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		got, err := validator.ParseFrameStride(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrameStride(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFrameStride(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestValidateDimensions(t *testing.T) {
	validator := NewUploadValidatorWithOptions([]string{"png"}, []string{"mp4"}, 100)

	if err := validator.ValidateDimensions(10, 10); err != nil {
		t.Errorf("Expected 10x10 to pass, got %v", err)
	}
	if err := validator.ValidateDimensions(0, 10); err == nil {
		t.Error("Expected zero width to fail")
	}
	if err := validator.ValidateDimensions(11, 10); err == nil {
		t.Error("Expected 110 pixels to exceed the budget")
	}
}
