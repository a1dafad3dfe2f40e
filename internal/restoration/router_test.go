package restoration

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-restorer/internal/imaging"
	"go-image-restorer/pkg/models"
)

// doubler multiplies every channel value by two and records its inputs
type doubler struct {
	mu      sync.Mutex
	inputs  []image.Image
	outputs []image.Image
	scales  []int
	err     error
}

func (d *doubler) apply(img image.Image) image.Image {
	src := imaging.Clone(img)
	out := image.NewRGBA(src.Bounds())
	for i, v := range src.Pix {
		if i%4 == 3 {
			out.Pix[i] = v
			continue
		}
		out.Pix[i] = v * 2
	}
	return out
}

func (d *doubler) Deblur(_ context.Context, img image.Image) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, img)
	if d.err != nil {
		return nil, d.err
	}
	out := d.apply(img)
	d.outputs = append(d.outputs, out)
	return out, nil
}

func (d *doubler) Enhance(_ context.Context, img image.Image, scale int) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, img)
	d.scales = append(d.scales, scale)
	if d.err != nil {
		return nil, d.err
	}
	out := d.apply(img)
	d.outputs = append(d.outputs, out)
	return out, nil
}

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(5 + x), uint8(5 + y), 5, 255})
		}
	}
	return img
}

func newTestRouter(t *testing.T) (*Router, *doubler, *doubler) {
	t.Helper()
	deblur, enhance := &doubler{}, &doubler{}
	router, err := NewRouter(Models{Deblurrer: deblur, Enhancer: enhance})
	require.NoError(t, err)
	return router, deblur, enhance
}

func TestPlanFor(t *testing.T) {
	cases := map[models.SeverityTier]int{
		models.TierLow:    0,
		models.TierMedium: 1,
		models.TierHigh:   2,
	}
	for tier, passes := range cases {
		plan, err := PlanFor(tier)
		require.NoError(t, err)
		assert.Equal(t, passes, plan.DeblurPasses, tier.String())
	}

	_, err := PlanFor(models.SeverityTier(7))
	assert.Error(t, err)
}

func TestRestore_LowTierSkipsDeblur(t *testing.T) {
	router, deblur, enhance := newTestRouter(t)
	frame := testFrame()

	result, err := router.Restore(context.Background(), frame, models.TierLow, 2)
	require.NoError(t, err)

	assert.Empty(t, deblur.inputs)
	assert.True(t, imaging.SamePixels(frame, result.Deblurred), "deblurred must be pixel-identical to the original")
	assert.NotSame(t, frame, result.Deblurred)
	require.Len(t, enhance.inputs, 1)
	assert.Same(t, frame, enhance.inputs[0])
	assert.Equal(t, 0, result.Passes)
}

func TestRestore_MediumTierOnePass(t *testing.T) {
	router, deblur, enhance := newTestRouter(t)

	result, err := router.Restore(context.Background(), testFrame(), models.TierMedium, 2)
	require.NoError(t, err)

	assert.Len(t, deblur.inputs, 1)
	require.Len(t, enhance.inputs, 1)
	assert.Same(t, deblur.outputs[0], enhance.inputs[0])
	assert.Same(t, deblur.outputs[0], result.Deblurred)
	assert.Equal(t, 1, result.Passes)
}

func TestRestore_HighTierChainsTwoPasses(t *testing.T) {
	router, deblur, enhance := newTestRouter(t)
	frame := testFrame()

	result, err := router.Restore(context.Background(), frame, models.TierHigh, 3)
	require.NoError(t, err)

	require.Len(t, deblur.inputs, 2)
	assert.Same(t, frame, deblur.inputs[0])
	assert.Same(t, deblur.outputs[0], deblur.inputs[1], "second pass must consume the first pass output")
	require.Len(t, enhance.inputs, 1)
	assert.Same(t, deblur.outputs[1], enhance.inputs[0])
	assert.Equal(t, []int{3}, enhance.scales)

	// 5 doubled three times
	assert.Equal(t, uint8(40), imaging.ToRGBA(result.Enhanced).RGBAAt(0, 0).B)
}

func TestRestore_EnhanceOncePerTier(t *testing.T) {
	for _, tier := range []models.SeverityTier{models.TierLow, models.TierMedium, models.TierHigh} {
		t.Run(tier.String(), func(t *testing.T) {
			router, _, enhance := newTestRouter(t)
			_, err := router.Restore(context.Background(), testFrame(), tier, 0)
			require.NoError(t, err)
			assert.Equal(t, []int{DefaultScale}, enhance.scales)
		})
	}
}

func TestRestore_PropagatesModelErrors(t *testing.T) {
	modelErr := errors.New("cuda out of memory")

	t.Run("deblur", func(t *testing.T) {
		router, deblur, enhance := newTestRouter(t)
		deblur.err = modelErr
		_, err := router.Restore(context.Background(), testFrame(), models.TierHigh, 2)
		assert.ErrorIs(t, err, modelErr)
		assert.Len(t, deblur.inputs, 1)
		assert.Empty(t, enhance.inputs)
	})

	t.Run("enhance", func(t *testing.T) {
		router, _, enhance := newTestRouter(t)
		enhance.err = modelErr
		_, err := router.Restore(context.Background(), testFrame(), models.TierLow, 2)
		assert.ErrorIs(t, err, modelErr)
	})
}

func TestNewRouter_RequiresModels(t *testing.T) {
	_, err := NewRouter(Models{Deblurrer: &doubler{}})
	assert.Error(t, err)
}
