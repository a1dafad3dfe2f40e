package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go-image-restorer/internal/imaging"
)

// ErrEmptyInput is returned when any panel has zero width or height
var ErrEmptyInput = errors.New("render: zero-dimension input")

var labelColor = color.RGBA{0, 255, 0, 255}

// LabelOrigin is the baseline position of each panel label
var LabelOrigin = image.Pt(10, 30)

// Renderer composes the labeled side-by-side comparison
type Renderer struct {
	face font.Face
}

func NewRenderer() *Renderer {
	return &Renderer{face: basicfont.Face7x13}
}

// Render scales the three frames to the tallest height, labels them and
// concatenates them left to right: original, deblurred, enhanced.
func (r *Renderer) Render(original, deblurred, enhanced image.Image) (*image.RGBA, error) {
	inputs := []image.Image{original, deblurred, enhanced}
	targetH := 0
	for _, img := range inputs {
		if img == nil || img.Bounds().Empty() {
			return nil, ErrEmptyInput
		}
		if h := img.Bounds().Dy(); h > targetH {
			targetH = h
		}
	}

	eb := enhanced.Bounds()
	labels := []string{
		"Original",
		"Deblurred",
		fmt.Sprintf("Enhanced (%dx%d)", eb.Dx(), eb.Dy()),
	}

	panels := make([]*image.RGBA, len(inputs))
	totalW := 0
	for i, img := range inputs {
		panels[i] = resizeToHeight(img, targetH)
		r.label(panels[i], labels[i])
		totalW += panels[i].Bounds().Dx()
	}

	out := image.NewRGBA(image.Rect(0, 0, totalW, targetH))
	x := 0
	for _, p := range panels {
		w := p.Bounds().Dx()
		draw.Draw(out, image.Rect(x, 0, x+w, targetH), p, image.Point{}, draw.Src)
		x += w
	}
	return out, nil
}

// resizeToHeight preserves aspect ratio; the new width is truncated
func resizeToHeight(img image.Image, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dy() == height {
		return imaging.Clone(img)
	}
	w := int(float64(b.Dx()) * float64(height) / float64(b.Dy()))
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, height)
}

func (r *Renderer) label(dst *image.RGBA, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: r.face,
		Dot:  fixed.P(LabelOrigin.X, LabelOrigin.Y),
	}
	d.DrawString(text)
}
