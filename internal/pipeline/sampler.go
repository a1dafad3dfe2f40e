package pipeline

// DefaultMaxSamples bounds the sampled frames of a video report
const DefaultMaxSamples = 10

// Stride is the sampling step for n items bounded to maxSamples
func Stride(n, maxSamples int) int {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	step := n / maxSamples
	if step < 1 {
		step = 1
	}
	return step
}

// Sample picks every Stride-th id starting with the first and keeps at most
// maxSamples of them. The input order is preserved.
func Sample(ids []int, maxSamples int) []int {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	step := Stride(len(ids), maxSamples)

	out := make([]int, 0, maxSamples)
	for i := 0; i < len(ids) && len(out) < maxSamples; i += step {
		out = append(out, ids[i])
	}
	return out
}

// onStride reports whether the index-th item is selected by an every-Nth
// selection. A stride below 1 selects nothing.
func onStride(index, stride int) bool {
	return stride >= 1 && index%stride == 0
}
