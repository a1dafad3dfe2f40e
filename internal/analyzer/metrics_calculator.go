package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// tan(22.5°) and tan(67.5°) for gradient direction quantization
const (
	tan22 = 0.4142135623730951
	tan67 = 2.414213562373095
)

// metricsCalculator implements MetricsCalculator with row-strip parallelism and Gonum statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// forEachStrip splits [0, height) into horizontal strips and runs fn on each concurrently
func forEachStrip(height int, fn func(startY, endY int)) {
	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for startY := 0; startY < height; startY += rowsPerWorker {
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}

// reflect101 maps an out-of-range index back into [0, n) mirroring around the edge pixel
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate clamps an index into [0, n)
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func grayAt(gray *image.Gray, x, y int) float64 {
	return float64(gray.Pix[y*gray.Stride+x])
}

// LaplacianVariance computes the population variance of the 4-neighbour
// Laplacian response over every pixel, mirroring borders.
func (mc *metricsCalculator) LaplacianVariance(gray *image.Gray) float64 {
	gray = normalizeOrigin(gray)
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	n := width * height
	if n == 0 {
		return 0
	}

	data := mc.slicePool.Get().([]float64)
	if cap(data) < n {
		data = make([]float64, n)
	}
	data = data[:n]
	defer mc.slicePool.Put(data[:0])

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	forEachStrip(height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			up := reflect101(y-1, height)
			down := reflect101(y+1, height)
			for x := 0; x < width; x++ {
				left := reflect101(x-1, width)
				right := reflect101(x+1, width)
				data[y*width+x] = -4*grayAt(gray, x, y) +
					grayAt(gray, x, up) + grayAt(gray, x, down) +
					grayAt(gray, left, y) + grayAt(gray, right, y)
			}
		}
	})

	return stat.PopVariance(data, nil)
}

// EdgeDensity runs a Canny detector (3x3 Sobel, L1 magnitude, non-maximum
// suppression, hysteresis) and returns the fraction of pixels marked as edges.
func (mc *metricsCalculator) EdgeDensity(gray *image.Gray, low, high float64) float64 {
	gray = normalizeOrigin(gray)
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	n := width * height
	if n == 0 {
		return 0
	}
	if low > high {
		low, high = high, low
	}

	dx := make([]float64, n)
	dy := make([]float64, n)
	mag := make([]float64, n)

	forEachStrip(height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			y0 := replicate(y-1, height)
			y2 := replicate(y+1, height)
			for x := 0; x < width; x++ {
				x0 := replicate(x-1, width)
				x2 := replicate(x+1, width)

				gx := -grayAt(gray, x0, y0) + grayAt(gray, x2, y0) +
					-2*grayAt(gray, x0, y) + 2*grayAt(gray, x2, y) +
					-grayAt(gray, x0, y2) + grayAt(gray, x2, y2)
				gy := -grayAt(gray, x0, y0) - 2*grayAt(gray, x, y0) - grayAt(gray, x2, y0) +
					grayAt(gray, x0, y2) + 2*grayAt(gray, x, y2) + grayAt(gray, x2, y2)

				i := y*width + x
				dx[i] = gx
				dy[i] = gy
				mag[i] = math.Abs(gx) + math.Abs(gy)
			}
		}
	})

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	// 0 = not an edge, 1 = weak candidate, 2 = strong edge
	marks := make([]uint8, n)
	forEachStrip(height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				m := mag[i]
				if m <= low {
					continue
				}
				ax, ay := math.Abs(dx[i]), math.Abs(dy[i])

				var isMax bool
				switch {
				case ay < ax*tan22:
					isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
				case ay > ax*tan67:
					isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
				default:
					s := 1
					if (dx[i] < 0) != (dy[i] < 0) {
						s = -1
					}
					isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
				}
				if !isMax {
					continue
				}
				if m > high {
					marks[i] = 2
				} else {
					marks[i] = 1
				}
			}
		}
	})

	// Hysteresis: grow strong edges through 8-connected weak candidates
	stack := make([]int, 0, n/8+1)
	for i, v := range marks {
		if v == 2 {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if marks[j] == 1 {
					marks[j] = 2
					stack = append(stack, j)
				}
			}
		}
	}

	edges := 0
	for _, v := range marks {
		if v == 2 {
			edges++
		}
	}
	return float64(edges) / float64(n)
}

// normalizeOrigin returns a view of gray whose Rect starts at (0,0)
func normalizeOrigin(gray *image.Gray) *image.Gray {
	if gray.Rect.Min == (image.Point{}) {
		return gray
	}
	out := image.NewGray(image.Rect(0, 0, gray.Rect.Dx(), gray.Rect.Dy()))
	for y := 0; y < gray.Rect.Dy(); y++ {
		srcStart := gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+out.Rect.Dx()], gray.Pix[srcStart:srcStart+gray.Rect.Dx()])
	}
	return out
}
