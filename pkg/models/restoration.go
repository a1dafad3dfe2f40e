package models

import (
	"encoding/json"
	"fmt"
)

// BlurMeasurement holds the two sharpness signals computed from one frame
type BlurMeasurement struct {
	Variance    float64 `json:"variance"`
	EdgeDensity float64 `json:"edge_density"`
}

// SeverityTier is the discrete blur classification that drives routing
type SeverityTier int

const (
	TierLow SeverityTier = iota
	TierMedium
	TierHigh
)

func (t SeverityTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalJSON encodes the tier by name
func (t SeverityTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON
func (t *SeverityTier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "low":
		*t = TierLow
	case "medium":
		*t = TierMedium
	case "high":
		*t = TierHigh
	default:
		return fmt.Errorf("unknown severity tier %q", s)
	}
	return nil
}

// TextSimilarity compares the filtered text read before and after restoration
type TextSimilarity struct {
	EditDistance  int     `json:"edit_distance"`
	CharErrorRate float64 `json:"character_error_rate"`
	WordErrorRate float64 `json:"word_error_rate"`
}

// LegibilityReport summarizes OCR confidence on a before/after pair
type LegibilityReport struct {
	BeforeConfidence    float64         `json:"before_confidence"`
	AfterConfidence     float64         `json:"after_confidence"`
	Delta               float64         `json:"confidence_delta"`
	BeforeTextCount     int             `json:"before_text_count"`
	AfterTextCount      int             `json:"after_text_count"`
	BeforeFilteredCount int             `json:"before_filtered_count"`
	AfterFilteredCount  int             `json:"after_filtered_count"`
	FilteredCountDelta  int             `json:"filtered_count_delta"`
	Similarity          *TextSimilarity `json:"similarity,omitempty"`
}

// ImageArtifacts are the persisted files of one restored frame
type ImageArtifacts struct {
	Original   string `json:"original"`
	Deblurred  string `json:"deblurred"`
	Enhanced   string `json:"enhanced"`
	Comparison string `json:"comparison"`
}

// ImageEncodings carries base64 PNG encodings for clients that cannot fetch files
type ImageEncodings struct {
	Original   string `json:"original"`
	Deblurred  string `json:"deblurred"`
	Enhanced   string `json:"enhanced"`
	Comparison string `json:"comparison"`
}

// Size is a raster size in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageReport is the payload of a completed image job
type ImageReport struct {
	Blur              BlurMeasurement   `json:"blur"`
	Tier              SeverityTier      `json:"tier"`
	DeblurPasses      int               `json:"deblur_passes"`
	Scale             int               `json:"enhance_scale"`
	OriginalSize      Size              `json:"original_size"`
	EnhancedSize      Size              `json:"enhanced_size"`
	Artifacts         ImageArtifacts    `json:"artifacts"`
	Encodings         *ImageEncodings   `json:"encodings,omitempty"`
	Legibility        *LegibilityReport `json:"legibility,omitempty"`
	ProcessingTimeSec float64           `json:"processing_time_sec"`
}

// SampledFrame is one representative frame of a video report
type SampledFrame struct {
	FrameID    int               `json:"frame_id"`
	Blur       BlurMeasurement   `json:"blur"`
	Tier       SeverityTier      `json:"tier"`
	Artifacts  ImageArtifacts    `json:"artifacts"`
	Legibility *LegibilityReport `json:"legibility,omitempty"`
}

// VideoReport is the bounded payload of a completed video job
type VideoReport struct {
	TotalFrameCount     int            `json:"total_frame_count"`
	ProcessedFrameCount int            `json:"processed_frame_count"`
	DeblurredFrameCount int            `json:"deblurred_frame_count"`
	FrameStride         int            `json:"frame_stride"`
	FPS                 float64        `json:"fps"`
	Scale               int            `json:"enhance_scale"`
	SampledFrames       []SampledFrame `json:"sampled_frames"`
	OutputVideo         string         `json:"output_video"`
	ProcessingTimeSec   float64        `json:"processing_time_sec"`
}
