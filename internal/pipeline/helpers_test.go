package pipeline

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"go-image-restorer/internal/analyzer"
	"go-image-restorer/internal/imaging"
	"go-image-restorer/internal/legibility"
	"go-image-restorer/internal/ocr"
	"go-image-restorer/internal/render"
	"go-image-restorer/internal/restoration"
)

// doublingModels doubles every channel on deblur, and doubles then upscales
// with nearest-neighbour sampling on enhance.
type doublingModels struct {
	mu       sync.Mutex
	deblurs  int
	enhances int
}

func double(img image.Image) *image.RGBA {
	out := imaging.Clone(img)
	for i := range out.Pix {
		if i%4 != 3 {
			out.Pix[i] *= 2
		}
	}
	return out
}

func (m *doublingModels) Deblur(_ context.Context, img image.Image) (image.Image, error) {
	m.mu.Lock()
	m.deblurs++
	m.mu.Unlock()
	return double(img), nil
}

func (m *doublingModels) Enhance(_ context.Context, img image.Image, scale int) (image.Image, error) {
	m.mu.Lock()
	m.enhances++
	m.mu.Unlock()

	src := double(img)
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			out.SetRGBA(x, y, src.RGBAAt(b.Min.X+x/scale, b.Min.Y+y/scale))
		}
	}
	return out, nil
}

// fixedOCR reads the same text from every image; enhanced frames are wider
// and read with higher confidence.
type fixedOCR struct {
	mu    sync.Mutex
	calls int
}

func (f *fixedOCR) RunOCR(_ context.Context, img image.Image) ([]ocr.TextRegion, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if img.Bounds().Dx() > 12 {
		return []ocr.TextRegion{{Text: "EXIT 12", Confidence: 0.9}}, nil
	}
	return []ocr.TextRegion{{Text: "EX1T 12", Confidence: 0.5}}, nil
}

// spikeFrame is a 12x12 gray frame with one brighter pixel. Its Laplacian
// variance is exactly 20, which classifies as high severity.
func spikeFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.SetRGBA(x, y, color.RGBA{10, 10, 10, 255})
		}
	}
	img.SetRGBA(5, 5, color.RGBA{22, 22, 22, 255})
	return img
}

// checkerFrame is sharp enough to classify as low severity
func checkerFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 120
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func newTestFrameProcessor(t *testing.T, models *doublingModels, engine ocr.Engine) *FrameProcessor {
	t.Helper()
	router, err := restoration.NewRouter(restoration.Models{Deblurrer: models, Enhancer: models})
	require.NoError(t, err)

	var comparator *legibility.Comparator
	if engine != nil {
		comparator = legibility.NewComparator(engine)
	}

	p, err := NewFrameProcessor(analyzer.NewClassifier(analyzer.DefaultOptions()), router, render.NewRenderer(), comparator)
	require.NoError(t, err)
	return p
}
