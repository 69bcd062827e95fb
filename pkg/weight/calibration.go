package weight

// Point pairs a filtered raw count with the reference weight the operator
// declared at capture time.
type Point struct {
	Raw       int32
	Reference float32
}

// Session collects the calibration points sent by the peer. It keeps the
// two most recent points: the protocol allows points to arrive in any order
// and to be re-sent, so a third point silently evicts the oldest instead of
// erroring.
type Session struct {
	points [2]Point
	next   int
	count  int
}

// Add records a point, evicting the oldest when two are already present.
func (s *Session) Add(p Point) {
	s.points[s.next] = p
	s.next = (s.next + 1) % len(s.points)
	if s.count < len(s.points) {
		s.count++
	}
}

// Len reports how many points are live (0-2).
func (s *Session) Len() int { return s.count }

// Reset discards all captured points.
func (s *Session) Reset() { *s = Session{} }

// Mapping derives the linear mapping from the captured points. The zero
// anchor is whichever point's reference weight is closest to zero; the
// gradient is accumulated in float64 so repeated conversions do not
// compound float32 rounding error.
func (s *Session) Mapping() (Mapping, error) {
	if s.count < 2 {
		return Mapping{}, ErrInsufficientPoints
	}
	a, b := s.points[0], s.points[1]
	if a.Raw == b.Raw {
		return Mapping{}, ErrDegenerateCalibration
	}
	gradient := (float64(b.Reference) - float64(a.Reference)) / (float64(b.Raw) - float64(a.Raw))

	zero := a
	if abs32(b.Reference) < abs32(a.Reference) {
		zero = b
	}
	return Mapping{ZeroRaw: zero.Raw, Gradient: gradient}, nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Mapping converts filtered raw counts to kilograms.
type Mapping struct {
	ZeroRaw  int32
	Gradient float64
}

// Convert applies the mapping. The result stays in float64; it is narrowed
// to float32 only at the protocol encoding boundary.
func (m Mapping) Convert(raw int32) float64 {
	return float64(raw-m.ZeroRaw) * m.Gradient
}
