package storage

import (
	"fmt"
	"path"
	"path/filepath"
)

// PublicPrefix is the URL prefix under which job outputs are served
const PublicPrefix = "/static/results"

// Frame stage directories of a video job
const (
	StageOriginal  = "original"
	StageBlurred   = "blurred"
	StageDeblurred = "deblurred"
	StageEnhanced  = "enhanced"
	StageOCR       = "ocr_results"
	StageSamples   = "samples"
)

// Numbered artifacts of an image job
const (
	OriginalFile   = "0_original.png"
	DeblurredFile  = "1_deblurred.png"
	EnhancedFile   = "2_enhanced.png"
	ComparisonFile = "3_comparison.png"
	OutputVideo    = "output.mp4"
)

// Layout maps job artifacts to disk paths under one output root and to the
// public URLs they are served at.
type Layout struct {
	root string
}

func NewLayout(outputDir string) Layout {
	return Layout{root: outputDir}
}

// Root is the output directory every job lives under
func (l Layout) Root() string {
	return l.root
}

// JobDir is the directory holding every artifact of jobID
func (l Layout) JobDir(jobID string) string {
	return filepath.Join(l.root, jobID)
}

// Path joins parts below the job directory
func (l Layout) Path(jobID string, parts ...string) string {
	return filepath.Join(append([]string{l.JobDir(jobID)}, parts...)...)
}

// URL is the public address of the artifact at Path(jobID, parts...)
func (l Layout) URL(jobID string, parts ...string) string {
	return path.Join(append([]string{PublicPrefix, jobID}, parts...)...)
}

// FrameFile is the zero-padded file name of frame id
func FrameFile(id int, ext string) string {
	return fmt.Sprintf("%06d.%s", id, ext)
}

// FramePath is the on-disk path of frame id in stage
func (l Layout) FramePath(jobID, stage string, id int) string {
	return l.Path(jobID, "frames", stage, FrameFile(id, "png"))
}
