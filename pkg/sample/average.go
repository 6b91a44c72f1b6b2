package sample

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowInt32 accumulates raw readings and yields their mean once the window
// is full, then resets so a restart is idempotent. With trimming enabled the
// single smallest and largest readings are dropped before averaging (windows
// of two or fewer are averaged as-is).
type WindowInt32 struct {
	size   int
	trim   bool
	values []int32
}

// NewWindowInt32 creates an integer averaging window of the given size.
func NewWindowInt32(size int, trim bool) *WindowInt32 {
	if size <= 0 {
		size = 1
	}
	return &WindowInt32{size: size, trim: trim, values: make([]int32, 0, size)}
}

// Add records one reading. On the Nth call it returns the window mean and
// true, and the accumulator resets; before that it returns false.
func (w *WindowInt32) Add(v int32) (int32, bool) {
	w.values = append(w.values, v)
	if len(w.values) < w.size {
		return 0, false
	}

	vals := w.values
	if w.trim && len(vals) > 2 {
		sorted := make([]int32, len(vals))
		copy(sorted, vals)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		vals = sorted[1 : len(sorted)-1]
	}
	var sum int64
	for _, x := range vals {
		sum += int64(x)
	}
	avg := int32(sum / int64(len(vals)))
	w.Reset()
	return avg, true
}

// Reset discards any partially accumulated window.
func (w *WindowInt32) Reset() {
	w.values = w.values[:0]
}

// WindowFloat32 is the weight-unit counterpart of WindowInt32.
type WindowFloat32 struct {
	size   int
	trim   bool
	values []float64
}

// NewWindowFloat32 creates a float averaging window of the given size.
func NewWindowFloat32(size int, trim bool) *WindowFloat32 {
	if size <= 0 {
		size = 1
	}
	return &WindowFloat32{size: size, trim: trim, values: make([]float64, 0, size)}
}

// Add records one value. On the Nth call it returns the window mean and
// true, and the accumulator resets; before that it returns false.
func (w *WindowFloat32) Add(v float32) (float32, bool) {
	w.values = append(w.values, float64(v))
	if len(w.values) < w.size {
		return 0, false
	}

	vals := w.values
	if w.trim && len(vals) > 2 {
		sorted := make([]float64, len(vals))
		copy(sorted, vals)
		sort.Float64s(sorted)
		vals = sorted[1 : len(sorted)-1]
	}
	avg := float32(stat.Mean(vals, nil))
	w.Reset()
	return avg, true
}

// Reset discards any partially accumulated window.
func (w *WindowFloat32) Reset() {
	w.values = w.values[:0]
}
