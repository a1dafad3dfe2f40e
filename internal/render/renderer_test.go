package render

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestRender_Layout(t *testing.T) {
	r := NewRenderer()

	testCases := []struct {
		name      string
		original  image.Image
		deblurred image.Image
		enhanced  image.Image
		width     int
		height    int
	}{
		{"Same size", solid(40, 40, color.RGBA{255, 0, 0, 255}), solid(40, 40, color.RGBA{0, 0, 255, 255}), solid(40, 40, color.RGBA{255, 255, 255, 255}), 120, 40},
		{"Enhanced twice as large", solid(50, 40, color.RGBA{255, 0, 0, 255}), solid(50, 40, color.RGBA{0, 0, 255, 255}), solid(100, 80, color.RGBA{255, 255, 255, 255}), 300, 80},
		{"Truncated width", solid(33, 20, color.RGBA{255, 0, 0, 255}), solid(33, 20, color.RGBA{0, 0, 255, 255}), solid(33, 30, color.RGBA{255, 255, 255, 255}), 49 + 49 + 33, 30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := r.Render(tc.original, tc.deblurred, tc.enhanced)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Bounds().Dx() != tc.width || out.Bounds().Dy() != tc.height {
				t.Errorf("Expected %dx%d, got %v", tc.width, tc.height, out.Bounds())
			}
		})
	}
}

func TestRender_OrderAndLabels(t *testing.T) {
	r := NewRenderer()
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	white := color.RGBA{255, 255, 255, 255}

	out, err := r.Render(solid(60, 60, red), solid(60, 60, blue), solid(60, 60, white))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bottom-right corner of each panel is clear of the label
	if got := out.RGBAAt(59, 59); got != red {
		t.Errorf("Expected first panel red, got %v", got)
	}
	if got := out.RGBAAt(119, 59); got != blue {
		t.Errorf("Expected second panel blue, got %v", got)
	}
	if got := out.RGBAAt(179, 59); got != white {
		t.Errorf("Expected third panel white, got %v", got)
	}

	// Each label paints green pixels in its panel near the baseline
	for panel := 0; panel < 3; panel++ {
		found := false
		for y := 18; y <= 32 && !found; y++ {
			for x := panel*60 + 10; x < panel*60+50; x++ {
				if c := out.RGBAAt(x, y); c.G == 255 && c.R == 0 && c.B == 0 {
					found = true
					break
				}
			}
		}
		if !found {
			t.Errorf("Expected a green label in panel %d", panel)
		}
	}
}

func TestRender_InputsUntouched(t *testing.T) {
	original := solid(20, 20, color.RGBA{255, 0, 0, 255})
	if _, err := NewRenderer().Render(original, original, original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := original.RGBAAt(12, 15); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("Expected input pixels to be unchanged, got %v", got)
	}
}

func TestRender_ZeroDimension(t *testing.T) {
	r := NewRenderer()
	ok := solid(10, 10, color.RGBA{})

	inputs := [][3]image.Image{
		{image.NewRGBA(image.Rect(0, 0, 0, 10)), ok, ok},
		{ok, image.NewRGBA(image.Rect(0, 0, 10, 0)), ok},
		{ok, ok, nil},
	}
	for i, in := range inputs {
		if _, err := r.Render(in[0], in[1], in[2]); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("case %d: expected ErrEmptyInput, got %v", i, err)
		}
	}
}
