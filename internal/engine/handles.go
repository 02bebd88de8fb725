package engine

import (
	"math"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

type HandleKind string

const (
	HandleVertex  HandleKind = "vertex"
	HandleControl HandleKind = "bezier-control"
	HandleResize  HandleKind = "resize-corner"
	HandleRadius  HandleKind = "radius"
	HandleRotate  HandleKind = "rotate-grip"
)

// Radius handle slots.
const (
	RadiusRight = iota
	RadiusLeft
	RadiusBottom
	RadiusTop
)

// Handle is a draggable control point for the selected node. Handles are
// rebuilt whenever the selection, the tool or the view changes.
//
// Slot depends on Kind: the bezier control number (1 or 2), the corner
// index clockwise from top-left for resize corners, or one of the Radius
// constants.
type Handle struct {
	OwnerID      string         `json:"ownerId"`
	Kind         HandleKind     `json:"kind"`
	CommandIndex int            `json:"commandIndex"`
	Slot         int            `json:"slot"`
	SVG          pathdata.Point `json:"svg"`
	Screen       pathdata.Point `json:"screen"`
	// Anchor is the on-curve point a control handle hangs from, in screen
	// space, for drawing the tangent line.
	Anchor *pathdata.Point `json:"anchor,omitempty"`
}

// HandleStyle carries design tokens for drawing handles. The engine only
// uses HitRadius and RotateOffset; the rest is passed through to the host.
type HandleStyle struct {
	Size         float64 `json:"size"`
	HitRadius    float64 `json:"hitRadius"`
	RotateOffset float64 `json:"rotateOffset"`
	Fill         string  `json:"fill"`
	Stroke       string  `json:"stroke"`
	ControlFill  string  `json:"controlFill"`
	TangentColor string  `json:"tangentColor"`
}

func DefaultHandleStyle() HandleStyle {
	return HandleStyle{
		Size:         8,
		HitRadius:    6,
		RotateOffset: 24,
		Fill:         "#ffffff",
		Stroke:       "#2563eb",
		ControlFill:  "#2563eb",
		TangentColor: "#93c5fd",
	}
}

// Handles materializes the handle set for n:
//   - rect: four resize corners and a rotate grip
//   - circle, ellipse: four radius handles on the axes
//   - path: a vertex per on-curve point and both controls of every cubic
//   - anything else: four corners of its box and a rotate grip
func Handles(n *document.Node, acc GeometryAccessor, t *Transformer, style HandleStyle) ([]Handle, error) {
	if err := t.Ready(); err != nil {
		return nil, err
	}
	world := acc.ConsolidatedTransform(n)
	h := handleBuilder{owner: n.ID, world: world, t: t}

	switch n.Type {
	case document.NodeTypePath:
		p, err := pathdata.Parse(n.Attr("d"))
		if err != nil {
			return nil, err
		}
		for v := range p.Vertices() {
			h.add(HandleVertex, v.Index, 0, pathdata.Point{X: v.X, Y: v.Y}, nil)
		}
		for i, c := range p {
			if c.Kind != pathdata.CubicTo {
				continue
			}
			start, _ := p.StartOf(i)
			h.add(HandleControl, i, 1, c.C1, &start)
			h.add(HandleControl, i, 2, c.C2, &c.To)
		}

	case document.NodeTypeCircle, document.NodeTypeEllipse:
		b, ok := acc.LocalBBox(n)
		if !ok {
			return nil, nil
		}
		cx, cy := b.Center()
		h.add(HandleRadius, -1, RadiusRight, pathdata.Point{X: b.MaxX, Y: cy}, nil)
		h.add(HandleRadius, -1, RadiusLeft, pathdata.Point{X: b.MinX, Y: cy}, nil)
		h.add(HandleRadius, -1, RadiusBottom, pathdata.Point{X: cx, Y: b.MaxY}, nil)
		h.add(HandleRadius, -1, RadiusTop, pathdata.Point{X: cx, Y: b.MinY}, nil)

	default:
		h.addBox(n, acc, style)
	}
	return h.out, h.err
}

// BoxHandles gives any node the four resize corners of its box and a
// rotate grip.
func BoxHandles(n *document.Node, acc GeometryAccessor, t *Transformer, style HandleStyle) ([]Handle, error) {
	if err := t.Ready(); err != nil {
		return nil, err
	}
	h := handleBuilder{owner: n.ID, world: acc.ConsolidatedTransform(n), t: t}
	h.addBox(n, acc, style)
	return h.out, h.err
}

type handleBuilder struct {
	owner string
	world Matrix2D
	t     *Transformer
	out   []Handle
	err   error
}

// add places a handle at local point p, mapped to root user space and
// then to the screen.
func (h *handleBuilder) add(kind HandleKind, index, slot int, p pathdata.Point, anchor *pathdata.Point) {
	svg := h.world.point(p)
	sx, sy, err := h.t.SVGToScreen(svg.X, svg.Y)
	if err != nil {
		h.err = err
		return
	}
	hd := Handle{
		OwnerID:      h.owner,
		Kind:         kind,
		CommandIndex: index,
		Slot:         slot,
		SVG:          svg,
		Screen:       pathdata.Point{X: sx, Y: sy},
	}
	if anchor != nil {
		a := h.world.point(*anchor)
		ax, ay, _ := h.t.SVGToScreen(a.X, a.Y)
		hd.Anchor = &pathdata.Point{X: ax, Y: ay}
	}
	h.out = append(h.out, hd)
}

func (h *handleBuilder) addBox(n *document.Node, acc GeometryAccessor, style HandleStyle) {
	b, ok := ComputeBounds(n, acc)
	if !ok {
		return
	}
	for i, c := range b.Corners() {
		h.add(HandleResize, -1, i, c, nil)
	}
	h.addRotateGrip(b, style.RotateOffset)
}

// addRotateGrip puts the grip offsetPx screen pixels beyond the middle of
// the box's top edge, along the line from the box center, so it follows
// the shape when rotated.
func (h *handleBuilder) addRotateGrip(b Bounds, offsetPx float64) {
	cx, cy := b.Center()
	top := h.world.point(pathdata.Point{X: cx, Y: b.MinY})
	mid := h.world.point(pathdata.Point{X: cx, Y: cy})

	tx, ty, err := h.t.SVGToScreen(top.X, top.Y)
	if err != nil {
		h.err = err
		return
	}
	mx, my, _ := h.t.SVGToScreen(mid.X, mid.Y)
	dx, dy := tx-mx, ty-my
	if l := math.Hypot(dx, dy); l > 1e-9 {
		dx, dy = dx/l, dy/l
	} else {
		dx, dy = 0, -1
	}
	gx, gy := tx+dx*offsetPx, ty+dy*offsetPx
	svgX, svgY, _ := h.t.ScreenToSVG(gx, gy)
	h.out = append(h.out, Handle{
		OwnerID:      h.owner,
		Kind:         HandleRotate,
		CommandIndex: -1,
		SVG:          pathdata.Point{X: svgX, Y: svgY},
		Screen:       pathdata.Point{X: gx, Y: gy},
		Anchor:       &pathdata.Point{X: tx, Y: ty},
	})
}

// HandleAt returns the handle nearest to the screen point within radius
// pixels. Later handles win ties, matching paint order.
func HandleAt(handles []Handle, x, y, radius float64) (Handle, bool) {
	best, bestD := -1, radius
	for i, h := range handles {
		if d := math.Hypot(h.Screen.X-x, h.Screen.Y-y); d <= bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return Handle{}, false
	}
	return handles[best], true
}
