package inference

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"go-image-restorer/internal/imaging"
)

var (
	boxBlurKernel = [9]float64{
		1.0 / 9, 1.0 / 9, 1.0 / 9,
		1.0 / 9, 1.0 / 9, 1.0 / 9,
		1.0 / 9, 1.0 / 9, 1.0 / 9,
	}
	sharpenKernel = [9]float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}
)

// ClassicalDeblurrer is an unsharp mask used when no model server is configured
type ClassicalDeblurrer struct {
	Amount float64
}

func NewClassicalDeblurrer() *ClassicalDeblurrer {
	return &ClassicalDeblurrer{Amount: 1.0}
}

func (d *ClassicalDeblurrer) Deblur(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := imaging.ToRGBA(img)
	blurred := convolve3x3(src, boxBlurKernel)
	out := image.NewRGBA(src.Rect)
	for i := range src.Pix {
		if i%4 == 3 {
			out.Pix[i] = src.Pix[i]
			continue
		}
		v := float64(src.Pix[i]) + d.Amount*(float64(src.Pix[i])-float64(blurred.Pix[i]))
		out.Pix[i] = clamp(v)
	}
	return out, nil
}

// ClassicalEnhancer upscales with Catmull-Rom and blends 0.7/0.3 with a sharpened copy
type ClassicalEnhancer struct{}

func NewClassicalEnhancer() *ClassicalEnhancer {
	return &ClassicalEnhancer{}
}

func (e *ClassicalEnhancer) Enhance(ctx context.Context, img image.Image, scale int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale < 1 {
		return nil, fmt.Errorf("invalid scale %d", scale)
	}
	b := img.Bounds()
	upscaled := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.CatmullRom.Scale(upscaled, upscaled.Bounds(), img, b, xdraw.Src, nil)

	sharpened := convolve3x3(upscaled, sharpenKernel)
	out := image.NewRGBA(upscaled.Rect)
	for i := range upscaled.Pix {
		if i%4 == 3 {
			out.Pix[i] = upscaled.Pix[i]
			continue
		}
		out.Pix[i] = clamp(0.7*float64(upscaled.Pix[i]) + 0.3*float64(sharpened.Pix[i]))
	}
	return out, nil
}

// convolve3x3 filters the color channels of src, replicating border pixels
func convolve3x3(src *image.RGBA, k [9]float64) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewRGBA(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for ky := -1; ky <= 1; ky++ {
				sy := clampIndex(y+ky, h)
				for kx := -1; kx <= 1; kx++ {
					sx := clampIndex(x+kx, w)
					weight := k[(ky+1)*3+(kx+1)]
					off := sy*src.Stride + sx*4
					acc[0] += weight * float64(src.Pix[off])
					acc[1] += weight * float64(src.Pix[off+1])
					acc[2] += weight * float64(src.Pix[off+2])
				}
			}
			off := y*out.Stride + x*4
			out.Pix[off] = clamp(acc[0])
			out.Pix[off+1] = clamp(acc[1])
			out.Pix[off+2] = clamp(acc[2])
			out.Pix[off+3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
