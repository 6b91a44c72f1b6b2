package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowInt32_ExactMeanOnNthSample(t *testing.T) {
	w := NewWindowInt32(4, false)

	for _, v := range []int32{10, 20, 30} {
		_, ok := w.Add(v)
		assert.False(t, ok)
	}
	avg, ok := w.Add(40)
	assert.True(t, ok)
	assert.Equal(t, int32(25), avg)
}

func TestWindowInt32_ResetsAfterCompletedWindow(t *testing.T) {
	w := NewWindowInt32(2, false)

	avg, ok := w.Add(1)
	assert.False(t, ok)
	assert.Equal(t, int32(0), avg)
	avg, ok = w.Add(3)
	assert.True(t, ok)
	assert.Equal(t, int32(2), avg)

	// The accumulator restarts cleanly.
	_, ok = w.Add(100)
	assert.False(t, ok)
	avg, ok = w.Add(200)
	assert.True(t, ok)
	assert.Equal(t, int32(150), avg)
}

func TestWindowInt32_TrimsExtremes(t *testing.T) {
	w := NewWindowInt32(5, true)

	for _, v := range []int32{-100000, 10, 20, 30} {
		_, ok := w.Add(v)
		assert.False(t, ok)
	}
	avg, ok := w.Add(100000)
	assert.True(t, ok)
	assert.Equal(t, int32(20), avg)
}

func TestWindowFloat32_ExactMeanOnNthSample(t *testing.T) {
	w := NewWindowFloat32(5, false)

	for _, v := range []float32{1, 2, 3, 4} {
		_, ok := w.Add(v)
		assert.False(t, ok)
	}
	avg, ok := w.Add(5)
	assert.True(t, ok)
	assert.Equal(t, float32(3), avg)
}

func TestWindowFloat32_TrimsExtremes(t *testing.T) {
	w := NewWindowFloat32(4, true)

	w.Add(-50)
	w.Add(1)
	w.Add(3)
	avg, ok := w.Add(50)
	assert.True(t, ok)
	assert.Equal(t, float32(2), avg)
}

func TestWindowFloat32_Reset(t *testing.T) {
	w := NewWindowFloat32(3, false)

	w.Add(10)
	w.Reset()
	w.Add(1)
	w.Add(2)
	avg, ok := w.Add(3)
	assert.True(t, ok)
	assert.Equal(t, float32(2), avg)
}

func TestWindow_SizeOneYieldsEverySample(t *testing.T) {
	wi := NewWindowInt32(1, false)
	avg, ok := wi.Add(42)
	assert.True(t, ok)
	assert.Equal(t, int32(42), avg)

	wf := NewWindowFloat32(0, false) // clamped to 1
	favg, ok := wf.Add(4.2)
	assert.True(t, ok)
	assert.Equal(t, float32(4.2), favg)
}
