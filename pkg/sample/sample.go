package sample

import (
	"context"
	"time"
)

// Sample is a single timestamped reading. A fresh value is produced on every
// read and ownership passes to the caller.
type Sample[V any] struct {
	At    time.Time
	Value V
}

// Source produces one sample per call. Implementations may block (waiting for
// a conversion, holding a lock) and must honor context cancellation while
// doing so.
type Source[V any] interface {
	Sample(ctx context.Context) (Sample[V], error)
}

// Raw readings are 20- or 24-bit two's-complement ADC words sign-extended
// into an int32. Calibrated and tared weights are float32.
type (
	RawSource    = Source[int32]
	WeightSource = Source[float32]
)
