package pathdata

import "math"

// segment is one drawn piece of a path in absolute coordinates. Lines have
// C1 == P0 and C2 == P1 and are flagged by cubic == false.
type segment struct {
	index  int
	cubic  bool
	p0, c1 Point
	c2, p1 Point
}

func (s segment) at(t float64) Point {
	if !s.cubic {
		return s.p0.Lerp(s.p1, t)
	}
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	return Point{
		a*s.p0.X + b*s.c1.X + c*s.c2.X + d*s.p1.X,
		a*s.p0.Y + b*s.c1.Y + c*s.c2.Y + d*s.p1.Y,
	}
}

func (p Path) segments(yield func(segment) bool) {
	var cur, start Point
	for i, c := range p {
		switch c.Kind {
		case MoveTo:
			cur, start = c.To, c.To
		case LineTo:
			if !yield(segment{index: i, p0: cur, c1: cur, c2: c.To, p1: c.To}) {
				return
			}
			cur = c.To
		case CubicTo:
			if !yield(segment{index: i, cubic: true, p0: cur, c1: c.C1, c2: c.C2, p1: c.To}) {
				return
			}
			cur = c.To
		case Close:
			if cur != start {
				if !yield(segment{index: i, p0: cur, c1: cur, c2: start, p1: start}) {
					return
				}
			}
			cur = start
		}
	}
}

// Bounds returns the tight axis-aligned bounds of the path, including the
// extrema of cubic segments. ok is false for an empty path.
func (p Path) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	add := func(q Point) {
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
		ok = true
	}
	for _, c := range p {
		if c.HasEndpoint() {
			add(c.To)
		}
	}
	p.segments(func(s segment) bool {
		if !s.cubic {
			return true
		}
		for _, t := range cubicExtrema(s.p0.X, s.c1.X, s.c2.X, s.p1.X) {
			add(s.at(t))
		}
		for _, t := range cubicExtrema(s.p0.Y, s.c1.Y, s.c2.Y, s.p1.Y) {
			add(s.at(t))
		}
		return true
	})
	if !ok {
		return 0, 0, 0, 0, false
	}
	return minX, minY, maxX, maxY, true
}

// cubicExtrema returns the parameters in (0,1) where the derivative of a
// one-dimensional cubic bezier vanishes.
func cubicExtrema(p0, p1, p2, p3 float64) []float64 {
	a := -p0 + 3*p1 - 3*p2 + p3
	b := 2 * (p0 - 2*p1 + p2)
	c := p1 - p0

	var roots []float64
	keep := func(t float64) {
		if t > 0 && t < 1 {
			roots = append(roots, t)
		}
	}
	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) > eps {
			keep(-c / b)
		}
		return roots
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return roots
	}
	sq := math.Sqrt(disc)
	keep((-b + sq) / (2 * a))
	keep((-b - sq) / (2 * a))
	return roots
}

// Hit describes the point on a path closest to a query point.
type Hit struct {
	Index    int     `json:"index"` // command drawing the segment
	T        float64 `json:"t"`
	Point    Point   `json:"point"`
	Distance float64 `json:"distance"`
}

const (
	closestSamples = 32
	closestRefine  = 40
)

// ClosestPoint finds the point on the path nearest to (x, y). Each segment
// is sampled coarsely and the best sample is refined by ternary search over
// its neighbouring interval. ok is false when the path draws nothing.
func (p Path) ClosestPoint(x, y float64) (Hit, bool) {
	q := Point{x, y}
	best := Hit{Distance: math.Inf(1)}
	found := false

	p.segments(func(s segment) bool {
		bestT, bestD := 0.0, math.Inf(1)
		for i := 0; i <= closestSamples; i++ {
			t := float64(i) / closestSamples
			if d := dist2(s.at(t), q); d < bestD {
				bestT, bestD = t, d
			}
		}
		lo := math.Max(0, bestT-1.0/closestSamples)
		hi := math.Min(1, bestT+1.0/closestSamples)
		for i := 0; i < closestRefine; i++ {
			m1 := lo + (hi-lo)/3
			m2 := hi - (hi-lo)/3
			if dist2(s.at(m1), q) < dist2(s.at(m2), q) {
				hi = m2
			} else {
				lo = m1
			}
		}
		t := (lo + hi) / 2
		if d := dist2(s.at(t), q); d < bestD {
			bestT, bestD = t, d
		}
		if d := math.Sqrt(bestD); d < best.Distance {
			best = Hit{Index: s.index, T: bestT, Point: s.at(bestT), Distance: d}
			found = true
		}
		return true
	})
	return best, found
}

func dist2(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
