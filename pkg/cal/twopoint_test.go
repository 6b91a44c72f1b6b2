package cal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoPoint_RoundTrip(t *testing.T) {
	var tp TwoPoint
	tp.AddPoint(Point{Expected: 0.0, Measured: 0x1234})
	tp.AddPoint(Point{Expected: 100.0, Measured: 0x4567})

	c, ok := tp.Constants()
	require.True(t, ok)
	assert.Equal(t, int32(0x1234), c.B)
	// The derived mapping reproduces both points exactly.
	assert.Equal(t, float32(0.0), float32(0x1234-c.B)*c.M)
	assert.Equal(t, float32(100.0), float32(0x4567-c.B)*c.M)
}

func TestTwoPoint_MissingPoints(t *testing.T) {
	var tp TwoPoint
	_, ok := tp.Constants()
	assert.False(t, ok)

	tp.AddPoint(Point{Expected: 0.0, Measured: 0x1234})
	_, ok = tp.Constants()
	assert.False(t, ok, "zero point alone is underdetermined")

	var tp2 TwoPoint
	tp2.AddPoint(Point{Expected: 50.0, Measured: 0x4567})
	_, ok = tp2.Constants()
	assert.False(t, ok, "non-zero point alone is underdetermined")
}

func TestTwoPoint_IdenticalReadings(t *testing.T) {
	var tp TwoPoint
	tp.AddPoint(Point{Expected: 0.0, Measured: 0x1234})
	tp.AddPoint(Point{Expected: 100.0, Measured: 0x1234})

	_, ok := tp.Constants()
	assert.False(t, ok)
}

func TestTwoPoint_PointsOverwrite(t *testing.T) {
	var tp TwoPoint
	tp.AddPoint(Point{Expected: 0.0, Measured: 100})
	tp.AddPoint(Point{Expected: 50.0, Measured: 200})
	// A second non-zero point replaces the first.
	tp.AddPoint(Point{Expected: 100.0, Measured: 300})
	// A second zero point replaces the first.
	tp.AddPoint(Point{Expected: 0.0, Measured: 110})

	c, ok := tp.Constants()
	require.True(t, ok)
	assert.Equal(t, int32(110), c.B)
	assert.Equal(t, float32(100.0)/float32(300-110), c.M)
}

func TestTwoPoint_NegativeSpanIsValid(t *testing.T) {
	// Load cells wired the other way read downward under load.
	var tp TwoPoint
	tp.AddPoint(Point{Expected: 0.0, Measured: 1000})
	tp.AddPoint(Point{Expected: 20.0, Measured: -3000})

	c, ok := tp.Constants()
	require.True(t, ok)
	assert.Equal(t, float32(20.0), float32(-3000-c.B)*c.M)
}
