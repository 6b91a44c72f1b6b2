package sample

import (
	"context"
	"sort"
	"sync"
)

// medianWindow is the fixed smoothing window. Five readings is enough to
// reject single-sample glitches without visibly lagging a pull.
const medianWindow = 5

// Median smooths a raw source with a fixed-window running median. The
// timestamp of the underlying reading passes through unfiltered. Until the
// window has filled, the median is taken over the readings seen so far.
type Median struct {
	mu     sync.Mutex
	source RawSource
	window [medianWindow]int32
	next   int
	count  int
}

var _ RawSource = (*Median)(nil)

// NewMedian wraps source with a running median filter.
func NewMedian(source RawSource) *Median {
	return &Median{source: source}
}

// Sample pulls one reading from the underlying source and returns the median
// of the last up-to-5 readings.
func (m *Median) Sample(ctx context.Context) (Sample[int32], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.source.Sample(ctx)
	if err != nil {
		return Sample[int32]{}, err
	}

	m.window[m.next] = s.Value
	m.next = (m.next + 1) % medianWindow
	if m.count < medianWindow {
		m.count++
	}

	sorted := make([]int32, m.count)
	copy(sorted, m.window[:m.count])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Sample[int32]{At: s.At, Value: sorted[m.count/2]}, nil
}
