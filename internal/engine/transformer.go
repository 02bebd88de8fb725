package engine

import (
	"errors"
	"math"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

var ErrTransformerNotReady = errors.New("transformer not ready: container size or viewBox unknown")

// ViewBox is the window of SVG user space mapped onto the container.
type ViewBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is a width and height in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PanZoom is the user's view transform in container pixel space.
type PanZoom struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// Surface is whatever the document is drawn on. The transformer reads it
// only when told to refresh.
type Surface interface {
	// ViewBox reports the current viewBox, if the document declares one.
	ViewBox() (ViewBox, bool)
	// ContainerRect is the container's position and size on the page.
	ContainerRect() (x, y, width, height float64)
}

// StaticSurface is a Surface with fixed values, for hosts that know their
// geometry up front.
type StaticSurface struct {
	Box       ViewBox
	HasBox    bool
	X, Y      float64
	Container Size
}

func (s *StaticSurface) ViewBox() (ViewBox, bool) { return s.Box, s.HasBox }

func (s *StaticSurface) ContainerRect() (float64, float64, float64, float64) {
	return s.X, s.Y, s.Container.Width, s.Container.Height
}

// DocumentSurface takes the viewBox from a document root and the
// container rect from its fields.
type DocumentSurface struct {
	Root      func() *document.Node
	X, Y      float64
	Container Size
}

func (s *DocumentSurface) ViewBox() (ViewBox, bool) { return ViewBoxOf(s.Root()) }

func (s *DocumentSurface) ContainerRect() (float64, float64, float64, float64) {
	return s.X, s.Y, s.Container.Width, s.Container.Height
}

// ParseViewBox reads a viewBox attribute. Width and height must be positive.
func ParseViewBox(v string) (ViewBox, bool) {
	n, ok := numberList(v)
	if !ok || len(n) != 4 || n[2] <= 0 || n[3] <= 0 {
		return ViewBox{}, false
	}
	return ViewBox{n[0], n[1], n[2], n[3]}, true
}

// ViewBoxOf returns the root's viewBox, falling back to 0 0 width height.
func ViewBoxOf(root *document.Node) (ViewBox, bool) {
	if root == nil {
		return ViewBox{}, false
	}
	if vb, ok := ParseViewBox(root.Attr("viewBox")); ok {
		return vb, true
	}
	w, okw := root.Float("width")
	h, okh := root.Float("height")
	if okw && okh && w > 0 && h > 0 {
		return ViewBox{0, 0, w, h}, true
	}
	return ViewBox{}, false
}

// Transformer converts between page (screen) pixels and SVG user space.
//
// Screen to SVG runs in three steps: subtract the container origin, undo
// pan/zoom, then scale container pixels onto the viewBox. SVGToScreen is
// the same steps inverted in reverse order.
//
// The transformer never reads the Surface on its own. Callers must Refresh
// before converting in any turn where the container or viewBox may have
// changed; until the first successful refresh every conversion fails with
// ErrTransformerNotReady.
type Transformer struct {
	surface Surface

	viewBox    ViewBox
	hasViewBox bool
	originX    float64
	originY    float64
	container  Size
	view       PanZoom

	minZoom float64
	maxZoom float64
}

func NewTransformer(s Surface, minZoom, maxZoom float64) *Transformer {
	if minZoom <= 0 {
		minZoom = 0.1
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	return &Transformer{
		surface: s,
		view:    PanZoom{Scale: 1},
		minZoom: minZoom,
		maxZoom: maxZoom,
	}
}

// SetSurface swaps the surface. State read from the old one is kept until
// the next refresh.
func (t *Transformer) SetSurface(s Surface) { t.surface = s }

func (t *Transformer) UpdateViewBox() {
	if t.surface == nil {
		t.hasViewBox = false
		return
	}
	vb, ok := t.surface.ViewBox()
	t.viewBox = vb
	t.hasViewBox = ok && vb.Width > 0 && vb.Height > 0
}

func (t *Transformer) UpdateContainerDimensions() {
	if t.surface == nil {
		t.container = Size{}
		return
	}
	x, y, w, h := t.surface.ContainerRect()
	t.originX, t.originY = x, y
	t.container = Size{Width: w, Height: h}
}

// UpdatePanZoom replaces the view transform. The scale is clamped to the
// configured zoom range.
func (t *Transformer) UpdatePanZoom(pz PanZoom) {
	pz.Scale = t.clampScale(pz.Scale)
	t.view = pz
}

// Refresh re-reads both the viewBox and the container rect.
func (t *Transformer) Refresh() {
	t.UpdateViewBox()
	t.UpdateContainerDimensions()
}

func (t *Transformer) clampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return t.minZoom
	}
	return math.Max(t.minZoom, math.Min(t.maxZoom, s))
}

func (t *Transformer) PanZoom() PanZoom { return t.view }
func (t *Transformer) ViewBox() ViewBox { return t.viewBox }
func (t *Transformer) Container() Size { return t.container }

// Ready reports whether conversions can run.
func (t *Transformer) Ready() error {
	if !t.hasViewBox || t.container.Width <= 0 || t.container.Height <= 0 {
		return ErrTransformerNotReady
	}
	return nil
}

// ratio is viewBox units per unzoomed container pixel.
func (t *Transformer) ratio() (float64, float64) {
	return t.viewBox.Width / t.container.Width, t.viewBox.Height / t.container.Height
}

func (t *Transformer) ScreenToSVG(x, y float64) (float64, float64, error) {
	if err := t.Ready(); err != nil {
		return 0, 0, err
	}
	lx, ly := x-t.originX, y-t.originY
	lx = (lx - t.view.TranslateX) / t.view.Scale
	ly = (ly - t.view.TranslateY) / t.view.Scale
	rx, ry := t.ratio()
	return t.viewBox.X + lx*rx, t.viewBox.Y + ly*ry, nil
}

func (t *Transformer) SVGToScreen(x, y float64) (float64, float64, error) {
	if err := t.Ready(); err != nil {
		return 0, 0, err
	}
	rx, ry := t.ratio()
	lx, ly := (x-t.viewBox.X)/rx, (y-t.viewBox.Y)/ry
	lx = lx*t.view.Scale + t.view.TranslateX
	ly = ly*t.view.Scale + t.view.TranslateY
	return lx + t.originX, ly + t.originY, nil
}

// ScreenDeltaToSVGDelta converts a pointer movement. Only zoom and the
// viewBox ratio apply, so the mapping is linear.
func (t *Transformer) ScreenDeltaToSVGDelta(dx, dy float64) (float64, float64, error) {
	if err := t.Ready(); err != nil {
		return 0, 0, err
	}
	rx, ry := t.ratio()
	return dx / t.view.Scale * rx, dy / t.view.Scale * ry, nil
}

// SVGLengthToScreen converts a user space distance along x to pixels.
func (t *Transformer) SVGLengthToScreen(d float64) (float64, error) {
	if err := t.Ready(); err != nil {
		return 0, err
	}
	rx, _ := t.ratio()
	return d / rx * t.view.Scale, nil
}

// ScreenMatrix is the SVG user space to screen mapping as one matrix.
func (t *Transformer) ScreenMatrix() (Matrix2D, error) {
	if err := t.Ready(); err != nil {
		return Identity(), err
	}
	rx, ry := t.ratio()
	sx, sy := t.view.Scale/rx, t.view.Scale/ry
	return Matrix2D{
		sx, 0, 0, sy,
		t.originX + t.view.TranslateX - sx*t.viewBox.X,
		t.originY + t.view.TranslateY - sy*t.viewBox.Y,
	}, nil
}

// ZoomAt multiplies the scale by factor, keeping the SVG point under the
// screen position (x, y) in place.
func (t *Transformer) ZoomAt(x, y, factor float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	lx, ly := x-t.originX, y-t.originY
	px := (lx - t.view.TranslateX) / t.view.Scale
	py := (ly - t.view.TranslateY) / t.view.Scale
	s := t.clampScale(t.view.Scale * factor)
	t.view = PanZoom{Scale: s, TranslateX: lx - px*s, TranslateY: ly - py*s}
}

// PanBy moves the view by a screen pixel delta.
func (t *Transformer) PanBy(dx, dy float64) {
	t.view.TranslateX += dx
	t.view.TranslateY += dy
}

// FitToBounds zooms so b, given in SVG user space, fills the container
// with paddingPx of margin.
func (t *Transformer) FitToBounds(b Bounds, paddingPx float64) error {
	if err := t.Ready(); err != nil {
		return err
	}
	rx, ry := t.ratio()
	local := Bounds{
		MinX: (b.MinX - t.viewBox.X) / rx,
		MinY: (b.MinY - t.viewBox.Y) / ry,
		MaxX: (b.MaxX - t.viewBox.X) / rx,
		MaxY: (b.MaxY - t.viewBox.Y) / ry,
	}
	pz := FitViewToBounds(local, t.container, paddingPx, t.maxZoom)
	if pz.Scale < t.minZoom {
		cx, cy := local.Center()
		pz = PanZoom{
			Scale:      t.minZoom,
			TranslateX: t.container.Width/2 - cx*t.minZoom,
			TranslateY: t.container.Height/2 - cy*t.minZoom,
		}
	}
	t.view = pz
	return nil
}
