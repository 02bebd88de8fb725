package engine

import (
	"math"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

// Bounds is an axis-aligned box. A zero-area box is valid: a horizontal
// line has bounds of height 0.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the center point of the box.
func (b Bounds) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Contains checks if a point is inside the box, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Union returns the smallest box containing both boxes.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinX: min(b.MinX, other.MinX),
		MinY: min(b.MinY, other.MinY),
		MaxX: max(b.MaxX, other.MaxX),
		MaxY: max(b.MaxY, other.MaxY),
	}
}

// Expand grows the box by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	return Bounds{b.MinX - d, b.MinY - d, b.MaxX + d, b.MaxY + d}
}

// Corners returns the four corners clockwise from the top-left.
func (b Bounds) Corners() [4]pathdata.Point {
	return [4]pathdata.Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	}
}

func boundsOfPoints(pts ...pathdata.Point) Bounds {
	b := Bounds{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		b.MinX, b.MaxX = min(b.MinX, p.X), max(b.MaxX, p.X)
		b.MinY, b.MaxY = min(b.MinY, p.Y), max(b.MaxY, p.Y)
	}
	return b
}

// ApplyAffine transforms all four corners of b and returns their
// axis-aligned extent. For a rotation the result contains the whole rotated
// box, not just its transformed center and size.
func ApplyAffine(b Bounds, m Matrix2D) Bounds {
	c := b.Corners()
	return boundsOfPoints(m.point(c[0]), m.point(c[1]), m.point(c[2]), m.point(c[3]))
}

// ComputeBounds returns the box of n in its own coordinate system, before
// n's transform attribute applies. Containers union their children, each
// mapped through the child's own transform. ok is false when nothing
// measurable is found, such as an empty group.
func ComputeBounds(n *document.Node, acc GeometryAccessor) (Bounds, bool) {
	if n == nil {
		return Bounds{}, false
	}
	if !n.Type.IsContainer() {
		return acc.LocalBBox(n)
	}

	var out Bounds
	found := false
	for _, c := range n.Children {
		if !rendered(c) {
			continue
		}
		cb, ok := ComputeBounds(c, acc)
		if !ok {
			continue
		}
		cb = ApplyAffine(cb, acc.LocalTransform(c))
		if !found {
			out, found = cb, true
		} else {
			out = out.Union(cb)
		}
	}
	return out, found
}

// rendered reports whether a child contributes to its parent's geometry.
func rendered(n *document.Node) bool {
	switch n.Type {
	case document.NodeTypeDefs, document.NodeTypeStyle:
		return false
	}
	return n.Attr("display") != "none"
}

// WorldBounds returns the box of n in the document's root user space,
// with every ancestor transform and n's own applied.
func WorldBounds(n *document.Node, acc GeometryAccessor) (Bounds, bool) {
	b, ok := ComputeBounds(n, acc)
	if !ok {
		return Bounds{}, false
	}
	return ApplyAffine(b, acc.ConsolidatedTransform(n)), true
}

// FitViewToBounds returns the pan/zoom that centers b in a container of
// the given size with paddingPx of margin on each side. b is in unzoomed
// container pixels. The scale never exceeds maxZoom. The result depends
// only on the arguments.
func FitViewToBounds(b Bounds, container Size, paddingPx, maxZoom float64) PanZoom {
	scale := maxZoom
	if w := b.Width() + 2*paddingPx; w > 0 {
		scale = min(scale, container.Width/w)
	}
	if h := b.Height() + 2*paddingPx; h > 0 {
		scale = min(scale, container.Height/h)
	}
	cx, cy := b.Center()
	return PanZoom{
		Scale:      scale,
		TranslateX: container.Width/2 - cx*scale,
		TranslateY: container.Height/2 - cy*scale,
	}
}
