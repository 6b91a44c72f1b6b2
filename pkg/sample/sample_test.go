package sample

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays a fixed sequence of raw readings, repeating the last
// one when exhausted.
type scriptedSource struct {
	readings []int32
	next     int
	now      time.Time
}

func newScriptedSource(readings ...int32) *scriptedSource {
	return &scriptedSource{readings: readings, now: time.Now()}
}

func (s *scriptedSource) Sample(_ context.Context) (Sample[int32], error) {
	v := s.readings[len(s.readings)-1]
	if s.next < len(s.readings) {
		v = s.readings[s.next]
		s.next++
	}
	s.now = s.now.Add(time.Millisecond)
	return Sample[int32]{At: s.now, Value: v}, nil
}

func TestMedian_PartialWindow(t *testing.T) {
	src := newScriptedSource(10, 30, 20)
	m := NewMedian(src)

	// One reading: the median is the reading itself.
	s, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(10), s.Value)

	// Two readings: upper middle of {10, 30}.
	s, err = m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(30), s.Value)

	// Three readings: middle of {10, 20, 30}.
	s, err = m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(20), s.Value)
}

func TestMedian_RejectsGlitch(t *testing.T) {
	src := newScriptedSource(100, 100, 100, 100, 100, 900000, 100, 100)
	m := NewMedian(src)

	for i := 0; i < 8; i++ {
		s, err := m.Sample(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(100), s.Value, "sample %d", i)
	}
}

func TestMedian_TimestampPassthrough(t *testing.T) {
	src := newScriptedSource(1)
	m := NewMedian(src)

	s, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src.now, s.At)
}

func TestCalibrator_AffineTransform(t *testing.T) {
	src := newScriptedSource(1000)
	c := NewCalibrator(src, 0.5, 600)

	s, err := c.Sample(context.Background())
	require.NoError(t, err)
	// (1000 - 600) * 0.5
	assert.Equal(t, float32(200), s.Value)
}

func TestCalibrator_SetCalibrationTakesEffectNextSample(t *testing.T) {
	src := newScriptedSource(1000)
	c := NewCalibrator(src, 1.0, 0)

	s, err := c.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(1000), s.Value)

	c.SetCalibration(2.0, 500)
	s, err = c.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(1000), s.Value) // (1000-500)*2

	m, b := c.Calibration()
	assert.Equal(t, float32(2.0), m)
	assert.Equal(t, int32(500), b)
}

func TestTarer_Offset(t *testing.T) {
	src := newScriptedSource(1000)
	c := NewCalibrator(src, 1.0, 0)
	tr := NewTarer(c)

	// Offset defaults to zero.
	s, err := tr.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(1000), s.Value)

	tr.SetOffset(1000)
	s, err = tr.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(0), s.Value)
}
