package engine

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

// GeometryAccessor supplies the two facts the engine cannot compute on its
// own when a native renderer is involved: a node's untransformed box and
// its transforms. Everything else is derived from these.
type GeometryAccessor interface {
	LocalBBox(n *document.Node) (Bounds, bool)
	LocalTransform(n *document.Node) Matrix2D
	ConsolidatedTransform(n *document.Node) Matrix2D
}

// AttributeGeometry answers geometry queries from element attributes alone.
// Root is needed to resolve ancestor transforms.
type AttributeGeometry struct {
	Root *document.Node
}

var _ GeometryAccessor = AttributeGeometry{}

const (
	defaultFontSize = 16
	// average glyph advance as a fraction of the font size
	glyphAdvance = 0.6
)

func (g AttributeGeometry) LocalBBox(n *document.Node) (Bounds, bool) {
	num := func(name string) float64 {
		v, _ := n.Float(name)
		return v
	}

	switch n.Type {
	case document.NodeTypeRect:
		w, h := num("width"), num("height")
		if w < 0 || h < 0 {
			return Bounds{}, false
		}
		x, y := num("x"), num("y")
		return Bounds{x, y, x + w, y + h}, true

	case document.NodeTypeCircle:
		r, ok := n.Float("r")
		if !ok || r < 0 {
			return Bounds{}, false
		}
		cx, cy := num("cx"), num("cy")
		return Bounds{cx - r, cy - r, cx + r, cy + r}, true

	case document.NodeTypeEllipse:
		rx, okx := n.Float("rx")
		ry, oky := n.Float("ry")
		switch {
		case !okx && !oky:
			return Bounds{}, false
		case !okx:
			rx = ry
		case !oky:
			ry = rx
		}
		if rx < 0 || ry < 0 {
			return Bounds{}, false
		}
		cx, cy := num("cx"), num("cy")
		return Bounds{cx - rx, cy - ry, cx + rx, cy + ry}, true

	case document.NodeTypeLine:
		return boundsOfPoints(
			pathdata.Point{X: num("x1"), Y: num("y1")},
			pathdata.Point{X: num("x2"), Y: num("y2")},
		), true

	case document.NodeTypePath:
		p, err := pathdata.Parse(n.Attr("d"))
		if err != nil {
			slog.Warn("unmeasurable path", "id", n.ID, "error", err)
			return Bounds{}, false
		}
		minX, minY, maxX, maxY, ok := p.Bounds()
		return Bounds{minX, minY, maxX, maxY}, ok

	case document.NodeTypePolygon:
		return polyBounds(n)

	case document.NodeTypeText:
		size, ok := n.Float("font-size")
		if !ok || size <= 0 {
			size = defaultFontSize
		}
		x, y := num("x"), num("y")
		w := float64(utf8.RuneCountInString(n.Text)) * size * glyphAdvance
		return Bounds{x, y - size, x + w, y}, true
	}

	switch n.Tag {
	case "polyline":
		return polyBounds(n)
	case "image", "use", "foreignObject":
		w, okw := n.Float("width")
		h, okh := n.Float("height")
		if !okw || !okh {
			return Bounds{}, false
		}
		x, y := num("x"), num("y")
		return Bounds{x, y, x + w, y + h}, true
	}
	return Bounds{}, false
}

func polyBounds(n *document.Node) (Bounds, bool) {
	pts, ok := polyPoints(n)
	if !ok || len(pts) == 0 {
		return Bounds{}, false
	}
	return boundsOfPoints(pts...), true
}

// polyPoints reads the points attribute of a polygon or polyline. An odd
// trailing coordinate is ignored.
func polyPoints(n *document.Node) ([]pathdata.Point, bool) {
	nums, ok := numberList(n.Attr("points"))
	if !ok {
		return nil, false
	}
	pts := make([]pathdata.Point, 0, len(nums)/2)
	for i := 0; i+1 < len(nums); i += 2 {
		pts = append(pts, pathdata.Point{X: nums[i], Y: nums[i+1]})
	}
	return pts, true
}

// LocalTransform parses n's transform attribute. An unparseable transform
// is logged and treated as the identity.
func (g AttributeGeometry) LocalTransform(n *document.Node) Matrix2D {
	if n.Type == document.NodeTypeSVG {
		return Identity()
	}
	v := n.Attr("transform")
	if v == "" {
		return Identity()
	}
	m, err := ParseTransform(v)
	if err != nil {
		slog.Warn("ignoring transform", "id", n.ID, "error", err)
		return Identity()
	}
	return m
}

// ConsolidatedTransform multiplies the transforms of every ancestor of n
// and of n itself, outermost first. Nodes outside Root get only their own.
func (g AttributeGeometry) ConsolidatedTransform(n *document.Node) Matrix2D {
	chain := document.PathTo(g.Root, n.ID)
	if chain == nil {
		return g.LocalTransform(n)
	}
	m := Identity()
	for _, a := range chain {
		m = m.Multiply(g.LocalTransform(a))
	}
	return m
}

// ParentTransform is the consolidated transform of n's parent, mapping n's
// transformed space into root user space.
func ParentTransform(acc GeometryAccessor, root, n *document.Node) Matrix2D {
	parent, _ := document.ParentOf(root, n.ID)
	if parent == nil {
		return Identity()
	}
	return acc.ConsolidatedTransform(parent)
}
