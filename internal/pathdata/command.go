// Package pathdata models the d attribute of an SVG path element as a
// sequence of absolute move, line, cubic and close commands.
//
// Every path this package produces is normalized: relative commands are made
// absolute and all curve shorthands (S, Q, T, A, H, V) are rewritten as the
// equivalent L or C commands, so a Path only ever serializes to M, L, C and Z.
package pathdata

import "iter"

// Kind identifies the drawing operation of a Command.
type Kind uint8

const (
	MoveTo Kind = iota
	LineTo
	CubicTo
	Close
)

// Letter returns the absolute SVG command letter for the kind.
func (k Kind) Letter() byte {
	switch k {
	case MoveTo:
		return 'M'
	case LineTo:
		return 'L'
	case CubicTo:
		return 'C'
	default:
		return 'Z'
	}
}

func (k Kind) String() string {
	switch k {
	case MoveTo:
		return "moveto"
	case LineTo:
		return "lineto"
	case CubicTo:
		return "cubicto"
	case Close:
		return "closepath"
	default:
		return "unknown"
	}
}

// Point is a coordinate pair in the path's user space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Lerp interpolates between p and q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Command is a single path command. MoveTo and LineTo only use To; CubicTo
// uses C1, C2 and To; Close uses none.
type Command struct {
	Kind Kind
	C1   Point
	C2   Point
	To   Point
}

// HasEndpoint reports whether the command carries an on-curve endpoint.
func (c Command) HasEndpoint() bool { return c.Kind != Close }

// Path is an ordered list of commands. The first command of a non-empty
// path is always a MoveTo.
type Path []Command

// Vertex is an on-curve point together with the index of the command that
// owns it.
type Vertex struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Index int     `json:"index"`
}

// Clone returns a copy of the path that shares no storage with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Vertices yields the endpoint of every MoveTo, LineTo and CubicTo in
// command order. The sequence reads the current state of p each time it is
// ranged over.
func (p Path) Vertices() iter.Seq[Vertex] {
	return func(yield func(Vertex) bool) {
		for i, c := range p {
			if !c.HasEndpoint() {
				continue
			}
			if !yield(Vertex{X: c.To.X, Y: c.To.Y, Index: i}) {
				return
			}
		}
	}
}

// Transform returns a new path with fn applied to every point.
func (p Path) Transform(fn func(Point) Point) Path {
	out := p.Clone()
	for i := range out {
		switch out[i].Kind {
		case MoveTo, LineTo:
			out[i].To = fn(out[i].To)
		case CubicTo:
			out[i].C1 = fn(out[i].C1)
			out[i].C2 = fn(out[i].C2)
			out[i].To = fn(out[i].To)
		}
	}
	return out
}

// String serializes the path; see Serialize.
func (p Path) String() string { return Serialize(p) }
