package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestNewMetricsCalculator(t *testing.T) {
	calc := NewMetricsCalculator()
	if calc == nil {
		t.Error("Expected non-nil metrics calculator")
	}
}

func TestLaplacianVariance(t *testing.T) {
	calc := NewMetricsCalculator()

	// Create a uniform image (should have zero variance)
	gray := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			gray.Set(x, y, color.Gray{128})
		}
	}

	if variance := calc.LaplacianVariance(gray); variance != 0 {
		t.Errorf("Expected zero variance for uniform image, got %f", variance)
	}
}

func TestLaplacianVariance_EdgeImage(t *testing.T) {
	calc := NewMetricsCalculator()

	// Create an image with a sharp vertical edge
	gray := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				gray.Set(x, y, color.Gray{0}) // Black half
			} else {
				gray.Set(x, y, color.Gray{255}) // White half
			}
		}
	}

	// Columns 49 and 50 respond with +255 and -255, everything else is 0
	expected := 2.0 * 255 * 255 / 100
	if variance := calc.LaplacianVariance(gray); math.Abs(variance-expected) > 1e-9 {
		t.Errorf("Expected variance %f, got %f", expected, variance)
	}
}

func TestLaplacianVariance_SinglePixel(t *testing.T) {
	calc := NewMetricsCalculator()
	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Pix[0] = 200

	if variance := calc.LaplacianVariance(gray); variance != 0 {
		t.Errorf("Expected zero variance for a single pixel, got %f", variance)
	}
}

func TestEdgeDensity(t *testing.T) {
	calc := NewMetricsCalculator()

	testCases := []struct {
		name   string
		fill   func(x, y int) uint8
		minDen float64
		maxDen float64
	}{
		{"Uniform", func(x, y int) uint8 { return 128 }, 0, 0},
		{"Low contrast ramp", func(x, y int) uint8 { return uint8(x) }, 0, 0},
		{"Vertical step", func(x, y int) uint8 {
			if x < 25 {
				return 0
			}
			return 255
		}, 0.01, 0.1},
		{"Checkerboard", func(x, y int) uint8 {
			if (x/5+y/5)%2 == 0 {
				return 0
			}
			return 255
		}, 0.1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gray := image.NewGray(image.Rect(0, 0, 50, 50))
			for y := 0; y < 50; y++ {
				for x := 0; x < 50; x++ {
					gray.SetGray(x, y, color.Gray{Y: tc.fill(x, y)})
				}
			}

			density := calc.EdgeDensity(gray, 100, 200)
			if density < tc.minDen || density > tc.maxDen {
				t.Errorf("Expected density in [%f, %f], got %f", tc.minDen, tc.maxDen, density)
			}
		})
	}
}

func TestEdgeDensity_Deterministic(t *testing.T) {
	calc := NewMetricsCalculator()
	gray := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range gray.Pix {
		gray.Pix[i] = uint8((i * 37) % 251)
	}

	first := calc.EdgeDensity(gray, 100, 200)
	for i := 0; i < 5; i++ {
		if got := calc.EdgeDensity(gray, 100, 200); got != first {
			t.Fatalf("Expected deterministic density %f, got %f", first, got)
		}
	}
}

func TestReflect101(t *testing.T) {
	testCases := []struct {
		i, n, expected int
	}{
		{-1, 5, 1},
		{0, 5, 0},
		{4, 5, 4},
		{5, 5, 3},
		{-1, 1, 0},
		{1, 1, 0},
	}
	for _, tc := range testCases {
		if got := reflect101(tc.i, tc.n); got != tc.expected {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.expected)
		}
	}
}
