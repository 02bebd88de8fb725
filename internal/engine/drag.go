package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

var (
	ErrHandleOwner = errors.New("handle belongs to another node")
	ErrNoGeometry  = errors.New("node has no measurable geometry")
	ErrBadHandle   = errors.New("handle does not address a valid target")
)

// DragUpdate is the result of one pointer move during a handle drag.
type DragUpdate struct {
	// Node is the dragged node as it should now look. It is detached: the
	// caller puts it into the tree.
	Node *document.Node `json:"node"`
	// DeltaAngle is the rotation in degrees since the previous move. Only
	// rotate grips set it; summing every DeltaAngle of a drag gives Angle.
	DeltaAngle float64 `json:"deltaAngle,omitempty"`
	Angle      float64 `json:"angle,omitempty"`
}

// Drag tracks one handle drag from press to release. Every move is applied
// to the snapshot taken at press time using the total pointer offset, so
// rounding never builds up across moves.
type Drag struct {
	handle Handle
	start  *document.Node
	t      *Transformer

	startX, startY float64
	// toLocal maps a root user space vector into the node's own coordinates
	toLocal Matrix2D
	own     Matrix2D

	path pathdata.Path
	box  Bounds

	// rotation runs in the parent's coordinates
	toParent  Matrix2D
	center    pathdata.Point
	lastAngle float64
	total     float64
}

// BeginDrag starts dragging h, which must belong to n, from the screen
// position of the press.
func BeginDrag(h Handle, n *document.Node, acc GeometryAccessor, t *Transformer, screenX, screenY float64) (*Drag, error) {
	if err := t.Ready(); err != nil {
		return nil, err
	}
	if h.OwnerID != n.ID {
		return nil, fmt.Errorf("drag %s on %s: %w", h.OwnerID, n.ID, ErrHandleOwner)
	}
	world := acc.ConsolidatedTransform(n)
	d := &Drag{
		handle:  h,
		start:   n,
		t:       t,
		startX:  screenX,
		startY:  screenY,
		toLocal: world.Linear().Invert(),
		own:     acc.LocalTransform(n),
	}

	switch h.Kind {
	case HandleVertex, HandleControl:
		p, err := pathdata.Parse(n.Attr("d"))
		if err != nil {
			return nil, fmt.Errorf("drag %s: %w", n.ID, err)
		}
		d.path = p

	case HandleRadius:
		b, ok := acc.LocalBBox(n)
		if !ok {
			return nil, fmt.Errorf("drag %s: %w", n.ID, ErrNoGeometry)
		}
		d.box = b

	case HandleResize, HandleRotate:
		b, ok := ComputeBounds(n, acc)
		if !ok {
			return nil, fmt.Errorf("drag %s: %w", n.ID, ErrNoGeometry)
		}
		d.box = b
		if h.Kind == HandleRotate {
			parent := world.Multiply(d.own.Invert())
			d.toParent = parent.Invert()
			cx, cy := b.Center()
			d.center = d.own.point(pathdata.Point{X: cx, Y: cy})
			d.lastAngle = d.angleAt(screenX, screenY)
		}

	default:
		return nil, fmt.Errorf("drag %s handle: %w", h.Kind, ErrBadHandle)
	}
	return d, nil
}

func (d *Drag) Handle() Handle { return d.handle }

// Start returns the node as it was when the drag began.
func (d *Drag) Start() *document.Node { return d.start }

// Move applies the pointer at screen (x, y).
func (d *Drag) Move(x, y float64) (DragUpdate, error) {
	dx, dy, err := d.t.ScreenDeltaToSVGDelta(x-d.startX, y-d.startY)
	if err != nil {
		return DragUpdate{Node: d.start}, err
	}
	lx, ly := d.toLocal.TransformVector(dx, dy)

	switch d.handle.Kind {
	case HandleVertex, HandleControl:
		return DragUpdate{Node: d.movePathPoint(lx, ly)}, nil
	case HandleRadius:
		return DragUpdate{Node: d.moveRadius(lx, ly)}, nil
	case HandleResize:
		return DragUpdate{Node: d.moveCorner(lx, ly)}, nil
	case HandleRotate:
		return d.rotate(x, y), nil
	}
	return DragUpdate{Node: d.start}, nil
}

func (d *Drag) withAttrs(set map[string]string) *document.Node {
	out, _ := document.UpdateByID(d.start, d.start.ID, func(n *document.Node) {
		for k, v := range set {
			n.Attrs[k] = v
		}
	})
	return out
}

func (d *Drag) movePathPoint(lx, ly float64) *document.Node {
	i := d.handle.CommandIndex
	p := d.path.Clone()

	var base pathdata.Point
	if i >= 0 && i < len(p) {
		switch {
		case d.handle.Kind == HandleVertex:
			base = p[i].To
		case d.handle.Slot == 1:
			base = p[i].C1
		case d.handle.Slot == 2:
			base = p[i].C2
		}
	}

	var err error
	if d.handle.Kind == HandleVertex {
		err = p.SetEndpoint(i, base.X+lx, base.Y+ly)
	} else {
		err = p.SetControlPoint(i, d.handle.Slot, base.X+lx, base.Y+ly)
	}
	if err != nil {
		mutationFailed(err, "id", d.start.ID, "kind", d.handle.Kind, "index", i, "slot", d.handle.Slot)
		return d.start
	}
	return d.withAttrs(map[string]string{"d": p.String()})
}

func (d *Drag) moveRadius(lx, ly float64) *document.Node {
	rx, ry := d.box.Width()/2, d.box.Height()/2
	switch d.handle.Slot {
	case RadiusRight:
		rx += lx
	case RadiusLeft:
		rx -= lx
	case RadiusBottom:
		ry += ly
	case RadiusTop:
		ry -= ly
	default:
		mutationFailed(ErrBadHandle, "id", d.start.ID, "kind", d.handle.Kind, "slot", d.handle.Slot)
		return d.start
	}
	rx, ry = math.Abs(rx), math.Abs(ry)

	if d.start.Type == document.NodeTypeCircle {
		r := rx
		if d.handle.Slot == RadiusBottom || d.handle.Slot == RadiusTop {
			r = ry
		}
		return d.withAttrs(map[string]string{"r": pathdata.FormatNumber(r)})
	}
	return d.withAttrs(map[string]string{
		"rx": pathdata.FormatNumber(rx),
		"ry": pathdata.FormatNumber(ry),
	})
}

// moveCorner drags corner Slot of the box while the opposite corner stays
// put. Rects are resized through their attributes; every other node gets a
// scale about the fixed corner folded into its transform.
func (d *Drag) moveCorner(lx, ly float64) *document.Node {
	k := d.handle.Slot
	if k < 0 || k > 3 {
		mutationFailed(ErrBadHandle, "id", d.start.ID, "kind", d.handle.Kind, "slot", k)
		return d.start
	}
	corners := d.box.Corners()
	c, o := corners[k], corners[(k+2)%4]
	p := pathdata.Point{X: c.X + lx, Y: c.Y + ly}

	if d.start.Type == document.NodeTypeRect {
		return d.withAttrs(map[string]string{
			"x":      pathdata.FormatNumber(min(p.X, o.X)),
			"y":      pathdata.FormatNumber(min(p.Y, o.Y)),
			"width":  pathdata.FormatNumber(math.Abs(p.X - o.X)),
			"height": pathdata.FormatNumber(math.Abs(p.Y - o.Y)),
		})
	}

	sx, sy := 1.0, 1.0
	if c.X != o.X {
		sx = (p.X - o.X) / (c.X - o.X)
	}
	if c.Y != o.Y {
		sy = (p.Y - o.Y) / (c.Y - o.Y)
	}
	m := d.own.Multiply(ScaleAround(sx, sy, o.X, o.Y))
	if m.IsIdentity() && d.start.Attr("transform") == "" {
		return d.start
	}
	return d.withAttrs(map[string]string{"transform": m.String()})
}

// angleAt is the direction from the rotation center to the pointer, in
// the parent's coordinates.
func (d *Drag) angleAt(x, y float64) float64 {
	sx, sy, _ := d.t.ScreenToSVG(x, y)
	p := d.toParent.point(pathdata.Point{X: sx, Y: sy})
	return math.Atan2(p.Y-d.center.Y, p.X-d.center.X)
}

func (d *Drag) rotate(x, y float64) DragUpdate {
	a := d.angleAt(x, y)
	delta := normalizeAngle(a - d.lastAngle)
	d.lastAngle = a
	d.total += delta

	deg := d.total * 180 / math.Pi
	transform := d.start.Attr("transform")
	if deg != 0 {
		rot := fmt.Sprintf("rotate(%s %s %s)",
			pathdata.FormatNumber(deg),
			pathdata.FormatNumber(d.center.X),
			pathdata.FormatNumber(d.center.Y))
		if transform != "" {
			rot += " " + transform
		}
		transform = rot
	}
	var node *document.Node
	if transform == "" {
		node, _ = document.UpdateByID(d.start, d.start.ID, func(n *document.Node) { delete(n.Attrs, "transform") })
	} else {
		node = d.withAttrs(map[string]string{"transform": transform})
	}
	return DragUpdate{Node: node, DeltaAngle: delta * 180 / math.Pi, Angle: deg}
}

// normalizeAngle wraps radians into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
