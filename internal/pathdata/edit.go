package pathdata

import "fmt"

// SetEndpoint moves the on-curve endpoint of the command at index. Control
// points of a cubic are left where they are.
func (p Path) SetEndpoint(index int, x, y float64) error {
	if index < 0 || index >= len(p) {
		return fmt.Errorf("set endpoint %d of %d: %w", index, len(p), ErrIndexOutOfRange)
	}
	if !p[index].HasEndpoint() {
		return fmt.Errorf("set endpoint %d: %w", index, ErrNoEndpoint)
	}
	p[index].To = Point{x, y}
	return nil
}

// SetControlPoint moves control point slot (1 or 2) of the cubic at index.
func (p Path) SetControlPoint(index, slot int, x, y float64) error {
	if index < 0 || index >= len(p) {
		return fmt.Errorf("set control point %d of %d: %w", index, len(p), ErrIndexOutOfRange)
	}
	if p[index].Kind != CubicTo {
		return fmt.Errorf("set control point on %s at %d: %w", p[index].Kind, index, ErrNotABezier)
	}
	switch slot {
	case 1:
		p[index].C1 = Point{x, y}
	case 2:
		p[index].C2 = Point{x, y}
	default:
		return fmt.Errorf("set control point slot %d: %w", slot, ErrInvalidSlot)
	}
	return nil
}

// StartOf returns the current point before the command at index executes,
// i.e. where the segment drawn by that command begins.
func (p Path) StartOf(index int) (Point, error) {
	if index < 0 || index >= len(p) {
		return Point{}, fmt.Errorf("start of %d: %w", index, ErrIndexOutOfRange)
	}
	var cur, start Point
	for i := 0; i < index; i++ {
		switch p[i].Kind {
		case MoveTo:
			cur, start = p[i].To, p[i].To
		case Close:
			cur = start
		default:
			cur = p[i].To
		}
	}
	return cur, nil
}

// subpathStart returns the MoveTo point of the subpath containing index.
func (p Path) subpathStart(index int) Point {
	for i := index; i >= 0; i-- {
		if p[i].Kind == MoveTo {
			return p[i].To
		}
	}
	return Point{}
}

// InsertNode splits the segment drawn by the command at index at parameter
// t and returns the new path. Lines gain a vertex on the line; cubics are
// split with de Casteljau so the curve keeps its exact shape; a closepath
// gains a lineto before it.
func (p Path) InsertNode(index int, t float64) (Path, error) {
	if index <= 0 || index >= len(p) {
		return nil, fmt.Errorf("insert node at %d: %w", index, ErrIndexOutOfRange)
	}
	if !(t > 0 && t < 1) {
		return nil, fmt.Errorf("insert node at t=%g: %w", t, ErrInvalidParameter)
	}
	p0, _ := p.StartOf(index)
	c := p[index]

	var repl []Command
	switch c.Kind {
	case MoveTo:
		return nil, fmt.Errorf("insert node at moveto %d: %w", index, ErrIndexOutOfRange)
	case LineTo:
		repl = []Command{{Kind: LineTo, To: p0.Lerp(c.To, t)}, c}
	case Close:
		start := p.subpathStart(index)
		if p0 == start {
			return nil, fmt.Errorf("insert node at closepath %d with no extent: %w", index, ErrNoEndpoint)
		}
		repl = []Command{{Kind: LineTo, To: p0.Lerp(start, t)}, c}
	case CubicTo:
		a, b := splitCubic(p0, c.C1, c.C2, c.To, t)
		repl = []Command{a, b}
	}

	out := make(Path, 0, len(p)+1)
	out = append(out, p[:index]...)
	out = append(out, repl...)
	out = append(out, p[index+1:]...)
	return out, nil
}

// RemoveNode deletes the vertex owned by the command at index. Removing a
// subpath's MoveTo drops any closepaths that follow it and promotes the next
// drawing command's endpoint to the new MoveTo, so the path still begins
// with a moveto.
func (p Path) RemoveNode(index int) (Path, error) {
	if index < 0 || index >= len(p) {
		return nil, fmt.Errorf("remove node %d: %w", index, ErrIndexOutOfRange)
	}
	if !p[index].HasEndpoint() {
		return nil, fmt.Errorf("remove node %d: %w", index, ErrNoEndpoint)
	}

	out := make(Path, 0, len(p))
	out = append(out, p[:index]...)
	rest := p[index+1:]
	if p[index].Kind == MoveTo {
		for len(rest) > 0 && rest[0].Kind == Close {
			rest = rest[1:]
		}
		if len(rest) > 0 && rest[0].Kind != MoveTo {
			out = append(out, Command{Kind: MoveTo, To: rest[0].To})
			rest = rest[1:]
		}
	}
	out = append(out, rest...)
	return out, nil
}

func splitCubic(p0, p1, p2, p3 Point, t float64) (Command, Command) {
	p01 := p0.Lerp(p1, t)
	p12 := p1.Lerp(p2, t)
	p23 := p2.Lerp(p3, t)
	p012 := p01.Lerp(p12, t)
	p123 := p12.Lerp(p23, t)
	mid := p012.Lerp(p123, t)
	return Command{Kind: CubicTo, C1: p01, C2: p012, To: mid},
		Command{Kind: CubicTo, C1: p123, C2: p23, To: p3}
}
