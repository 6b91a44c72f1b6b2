package sample

import (
	"context"
	"sync"
)

// Tarer subtracts a runtime-settable offset from a calibrated source so the
// currently applied load reads as zero. The offset starts at zero.
type Tarer struct {
	mu     sync.Mutex
	source WeightSource
	offset float32
}

var _ WeightSource = (*Tarer)(nil)

// NewTarer wraps a calibrated source.
func NewTarer(source WeightSource) *Tarer {
	return &Tarer{source: source}
}

// SetOffset replaces the tare offset.
func (t *Tarer) SetOffset(offset float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset = offset
}

// Sample pulls one calibrated sample and subtracts the tare offset.
func (t *Tarer) Sample(ctx context.Context) (Sample[float32], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.source.Sample(ctx)
	if err != nil {
		return Sample[float32]{}, err
	}
	s.Value -= t.offset
	return s, nil
}
