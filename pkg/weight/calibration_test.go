package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMappingDeterminism(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 1000, Reference: 0})
	s.Add(Point{Raw: 5000, Reference: 50})

	m, err := s.Mapping()
	require.NoError(t, err)
	assert.Equal(t, int32(1000), m.ZeroRaw)
	assert.InDelta(t, 0.0, m.Convert(1000), 1e-9)
	assert.InDelta(t, 25.0, m.Convert(3000), 1e-9)
	assert.InDelta(t, 50.0, m.Convert(5000), 1e-9)
}

func TestSessionPointOrderDoesNotMatter(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 5000, Reference: 50})
	s.Add(Point{Raw: 1000, Reference: 0})

	m, err := s.Mapping()
	require.NoError(t, err)
	assert.Equal(t, int32(1000), m.ZeroRaw)
	assert.InDelta(t, 25.0, m.Convert(3000), 1e-9)
}

func TestSessionInsufficientPoints(t *testing.T) {
	var s Session
	_, err := s.Mapping()
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	s.Add(Point{Raw: 1000, Reference: 0})
	_, err = s.Mapping()
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestSessionDegenerate(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 1000, Reference: 0})
	s.Add(Point{Raw: 1000, Reference: 50})
	_, err := s.Mapping()
	assert.ErrorIs(t, err, ErrDegenerateCalibration)
}

// A third point evicts the oldest: points may be re-sent in any order.
func TestSessionEviction(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 9999, Reference: 123})
	s.Add(Point{Raw: 1000, Reference: 0})
	s.Add(Point{Raw: 5000, Reference: 50})
	assert.Equal(t, 2, s.Len())

	m, err := s.Mapping()
	require.NoError(t, err)
	assert.Equal(t, int32(1000), m.ZeroRaw)
	assert.InDelta(t, 25.0, m.Convert(3000), 1e-9)
}

// The zero anchor is whichever point's reference is closest to zero, so a
// non-exact tare still anchors correctly.
func TestSessionZeroAnchorClosestToZero(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 4000, Reference: 60})
	s.Add(Point{Raw: 1200, Reference: 0.05})

	m, err := s.Mapping()
	require.NoError(t, err)
	assert.Equal(t, int32(1200), m.ZeroRaw)
}

func TestSessionReset(t *testing.T) {
	var s Session
	s.Add(Point{Raw: 1, Reference: 0})
	s.Add(Point{Raw: 2, Reference: 1})
	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, err := s.Mapping()
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}
