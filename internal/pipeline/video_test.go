package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-restorer/internal/storage"
	"go-image-restorer/internal/video"
	"go-image-restorer/pkg/models"
)

// scriptedFFmpeg answers ffprobe with a fixed stream and plays frames as
// decoder output. Encoder input is captured.
type scriptedFFmpeg struct {
	width, height int
	frames        []*image.RGBA
	probeErr      error

	mu      sync.Mutex
	encoded bytes.Buffer
	encArgs []string
}

func (s *scriptedFFmpeg) Output(_ context.Context, _ string, _ ...string) ([]byte, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	return []byte(fmt.Sprintf(`{"streams":[{"width":%d,"height":%d,"avg_frame_rate":"25/1","r_frame_rate":"25/1","nb_frames":"%d"}]}`,
		s.width, s.height, len(s.frames))), nil
}

func (s *scriptedFFmpeg) Start(_ context.Context, _ string, args ...string) (*video.Process, error) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	done := make(chan struct{}, 2)

	encoding := args[len(args)-1] != "-"
	if encoding {
		s.encArgs = args
	}

	go func() {
		if encoding {
			s.mu.Lock()
			io.Copy(&s.encoded, stdinR)
			s.mu.Unlock()
		} else {
			io.Copy(io.Discard, stdinR)
		}
		done <- struct{}{}
	}()
	go func() {
		if !encoding {
			for _, f := range s.frames {
				stdoutW.Write(rgb24(f))
			}
		}
		stdoutW.Close()
		done <- struct{}{}
	}()

	return video.NewProcess(stdinW, stdoutR, func() error {
		<-done
		if encoding {
			<-done
		}
		return nil
	}), nil
}

func rgb24(img *image.RGBA) []byte {
	out := make([]byte, 0, len(img.Pix)/4*3)
	for i := 0; i < len(img.Pix); i += 4 {
		out = append(out, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	return out
}

func newTestVideoProcessor(t *testing.T, ff *scriptedFFmpeg, engine *fixedOCR) (*VideoProcessor, storage.Layout) {
	t.Helper()
	layout := storage.NewLayout(t.TempDir())
	cfg := VideoConfig{Runner: ff, OCRStride: 2}
	var frames *FrameProcessor
	if engine != nil {
		cfg.OCR = engine
		frames = newTestFrameProcessor(t, &doublingModels{}, engine)
	} else {
		frames = newTestFrameProcessor(t, &doublingModels{}, nil)
	}
	return NewVideoProcessor(frames, layout, cfg), layout
}

func TestVideoProcessor_StrideAndRouting(t *testing.T) {
	ff := &scriptedFFmpeg{
		width:  12,
		height: 12,
		frames: []*image.RGBA{spikeFrame(), checkerFrame(), checkerFrame(), spikeFrame(), spikeFrame()},
	}
	engine := &fixedOCR{}
	p, layout := newTestVideoProcessor(t, ff, engine)

	report, err := p.Process(context.Background(), VideoRequest{
		JobID:       "vid",
		InputPath:   "clip.mp4",
		Scale:       2,
		FrameStride: 2,
		Legibility:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalFrameCount)
	assert.Equal(t, 3, report.ProcessedFrameCount)
	assert.Equal(t, 2, report.DeblurredFrameCount)
	assert.Equal(t, 2, report.FrameStride)
	assert.Equal(t, 25.0, report.FPS)
	assert.Equal(t, "/static/results/vid/output.mp4", report.OutputVideo)

	require.Len(t, report.SampledFrames, 3)
	var ids []int
	var tiers []models.SeverityTier
	for _, s := range report.SampledFrames {
		ids = append(ids, s.FrameID)
		tiers = append(tiers, s.Tier)
		require.NotNil(t, s.Legibility)
		_, err := os.Stat(layout.Path("vid", "frames", storage.StageSamples, fmt.Sprintf("%06d_comparison.png", s.FrameID)))
		assert.NoError(t, err)
	}
	assert.Equal(t, []int{0, 2, 4}, ids)
	assert.Equal(t, []models.SeverityTier{models.TierHigh, models.TierLow, models.TierHigh}, tiers)
	assert.Equal(t, "/static/results/vid/frames/original/000002.png", report.SampledFrames[1].Artifacts.Deblurred)
	assert.Equal(t, "/static/results/vid/frames/deblurred/000004.png", report.SampledFrames[2].Artifacts.Deblurred)

	for _, tt := range []struct {
		stage  string
		id     int
		exists bool
	}{
		{storage.StageOriginal, 0, true},
		{storage.StageOriginal, 1, false},
		{storage.StageOriginal, 2, true},
		{storage.StageBlurred, 0, true},
		{storage.StageBlurred, 2, false},
		{storage.StageDeblurred, 4, true},
		{storage.StageEnhanced, 2, true},
	} {
		_, err := os.Stat(layout.FramePath("vid", tt.stage, tt.id))
		assert.Equal(t, tt.exists, err == nil, "%s/%06d", tt.stage, tt.id)
	}

	ff.mu.Lock()
	assert.Equal(t, 3*24*24*3, ff.encoded.Len())
	ff.mu.Unlock()
	assert.Contains(t, ff.encArgs, "24x24")

	for _, id := range []int{0, 4} {
		data, err := os.ReadFile(layout.Path("vid", "frames", storage.StageOCR, storage.FrameFile(id, "json")))
		require.NoError(t, err, "ocr result for frame %d", id)

		var text frameText
		require.NoError(t, json.Unmarshal(data, &text))
		assert.Equal(t, id, text.FrameID)
		assert.Equal(t, models.TierHigh, text.Tier)
		require.NotNil(t, text.Legibility, "frame %d", id)
		assert.InDelta(t, 0.5, text.Legibility.BeforeConfidence, 1e-9)
		assert.InDelta(t, 0.9, text.Legibility.AfterConfidence, 1e-9)
		assert.InDelta(t, 0.4, text.Legibility.Delta, 1e-9)
		assert.Equal(t, 1, text.Legibility.BeforeFilteredCount)
		assert.Equal(t, 1, text.Legibility.AfterFilteredCount)
		assert.Equal(t, 0, text.Legibility.FilteredCountDelta)
	}
	_, err = os.Stat(layout.Path("vid", "frames", storage.StageOCR, storage.FrameFile(2, "json")))
	assert.True(t, os.IsNotExist(err))
}

func TestVideoProcessor_SamplesAreBounded(t *testing.T) {
	frames := make([]*image.RGBA, 25)
	for i := range frames {
		frames[i] = spikeFrame()
	}
	p, _ := newTestVideoProcessor(t, &scriptedFFmpeg{width: 12, height: 12, frames: frames}, nil)

	report, err := p.Process(context.Background(), VideoRequest{JobID: "vid", InputPath: "clip.mp4"})
	require.NoError(t, err)

	assert.Equal(t, 25, report.ProcessedFrameCount)
	require.Len(t, report.SampledFrames, 10)
	for i, s := range report.SampledFrames {
		assert.Equal(t, i*2, s.FrameID)
		assert.Nil(t, s.Legibility)
	}
}

func TestVideoProcessor_NoFrames(t *testing.T) {
	p, _ := newTestVideoProcessor(t, &scriptedFFmpeg{width: 12, height: 12}, nil)

	_, err := p.Process(context.Background(), VideoRequest{JobID: "vid", InputPath: "empty.mp4"})
	assert.ErrorIs(t, err, ErrNoFramesProcessed)
	assert.EqualError(t, err, "no frames were processed")
}

func TestVideoProcessor_Unopenable(t *testing.T) {
	p, _ := newTestVideoProcessor(t, &scriptedFFmpeg{probeErr: errors.New("Invalid data found when processing input")}, nil)

	_, err := p.Process(context.Background(), VideoRequest{JobID: "vid", InputPath: "broken.mp4"})
	assert.ErrorContains(t, err, "cannot open video")
}
