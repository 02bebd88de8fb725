package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

type Tool string

const (
	ToolPan    Tool = "pan"
	ToolSelect Tool = "select"
	ToolEdit   Tool = "edit"
	ToolDraw   Tool = "draw"
)

// Shape is what the draw tool creates.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapeRect    Shape = "rect"
	ShapeEllipse Shape = "ellipse"
	ShapeLine    Shape = "line"
)

type State string

const (
	StateIdlePan        State = "idle-pan"
	StateDrawingShape   State = "drawing-shape"
	StateNodeEditing    State = "node-editing"
	StateDraggingHandle State = "dragging-handle"
)

// wheel deltaY per e-fold of zoom
const wheelZoomRate = 1.0 / 500

// Options configures an Engine.
type Options struct {
	MinZoom      float64     `json:"minZoom"`
	MaxZoom      float64     `json:"maxZoom"`
	FitPadding   float64     `json:"fitPadding"`
	HistoryLimit int         `json:"historyLimit"`
	HandleStyle  HandleStyle `json:"handleStyle"`
	// DrawAttrs are presentation attributes given to every drawn shape.
	DrawAttrs map[string]string `json:"drawAttrs,omitempty"`
}

func DefaultOptions() Options {
	return Options{
		MinZoom:      0.1,
		MaxZoom:      10,
		FitPadding:   20,
		HistoryLimit: 100,
		HandleStyle:  DefaultHandleStyle(),
		DrawAttrs: map[string]string{
			"fill":         "none",
			"stroke":       "#000000",
			"stroke-width": "1",
		},
	}
}

// Engine is the interaction controller. It owns the document root, the
// selection and the active gesture, and turns pointer events into new
// document roots. It is not safe for concurrent use; hosts call it from
// their single event loop.
type Engine struct {
	root     *document.Node
	history  *History
	t        *Transformer
	capture  captureScope
	geometry func(root *document.Node) GeometryAccessor
	opts     Options
	onChange func(root *document.Node)

	// Retained scene graph, rebuilt when dirty
	sceneGraph *SceneGraph
	dirty      bool

	tool      Tool
	shape     Shape
	state     State
	selection string

	// active gesture
	pressed    bool
	drag       *Drag
	before     *document.Node
	drawing    *document.Node
	drawOrigin pathdata.Point
	panLastX   float64
	panLastY   float64
	lastAngle  float64
}

// NewEngine creates an engine showing an empty document with the select
// tool active. A nil surface reads the viewBox from the engine's own
// document, with the container set through SetContainer.
func NewEngine(surface Surface, capture PointerCapture, opts Options) *Engine {
	if capture == nil {
		capture = NopCapture{}
	}
	if opts.HandleStyle == (HandleStyle{}) {
		opts.HandleStyle = DefaultHandleStyle()
	}
	e := &Engine{
		history: NewHistory(opts.HistoryLimit),
		t:       NewTransformer(surface, opts.MinZoom, opts.MaxZoom),
		capture: captureScope{c: capture},
		geometry: func(root *document.Node) GeometryAccessor {
			return AttributeGeometry{Root: root}
		},
		opts:  opts,
		tool:  ToolSelect,
		shape: ShapeRect,
		state: StateNodeEditing,
	}
	if surface == nil {
		e.t.SetSurface(&DocumentSurface{Root: e.Document})
	}
	e.LoadDocument(document.Empty(0, 0))
	return e
}

// SetGeometry replaces how geometry is measured, for hosts with a native
// renderer that can answer bounding box queries.
func (e *Engine) SetGeometry(fn func(root *document.Node) GeometryAccessor) {
	e.geometry = fn
	e.dirty = true
}

// OnChange registers fn to be called with every new document root.
func (e *Engine) OnChange(fn func(root *document.Node)) { e.onChange = fn }

func (e *Engine) Transformer() *Transformer { return e.t }

// SetContainer places the container on the page when the engine reads
// geometry from its own document. Other surfaces ignore it.
func (e *Engine) SetContainer(x, y, width, height float64) {
	if s, ok := e.t.surface.(*DocumentSurface); ok {
		s.X, s.Y = x, y
		s.Container = Size{Width: width, Height: height}
	}
	e.t.Refresh()
}

// --- Document ---

// LoadDocument replaces the document and clears history and selection.
func (e *Engine) LoadDocument(root *document.Node) {
	e.abortGesture()
	e.root = root
	e.history.Reset(root)
	e.selection = ""
	e.dirty = true
	e.t.Refresh()
}

// LoadMarkup parses markup and loads it. Malformed markup loads an empty
// document instead and the parse error is returned for display.
func (e *Engine) LoadMarkup(markup string) error {
	root, err := document.FromMarkupOrEmpty(markup, 0, 0)
	if err != nil {
		slog.Warn("loading empty document", "error", err)
	}
	e.LoadDocument(root)
	return err
}

// ApplyRemote installs a root produced elsewhere, such as by a
// collaborator, as a new undoable state. A gesture in progress is
// abandoned.
func (e *Engine) ApplyRemote(root *document.Node) {
	e.abortGesture()
	e.commit(root)
	if e.selection != "" && document.FindByID(root, e.selection) == nil {
		e.selection = ""
	}
}

func (e *Engine) Document() *document.Node { return e.root }

func (e *Engine) Markup() string { return document.ToMarkup(e.root) }

// setRoot swaps the root without recording history.
func (e *Engine) setRoot(root *document.Node) {
	if root == e.root {
		return
	}
	e.root = root
	e.dirty = true
	if e.onChange != nil {
		e.onChange(root)
	}
}

// commit swaps the root and records it as an undo state.
func (e *Engine) commit(root *document.Node) {
	e.setRoot(root)
	e.history.SaveState(root)
}

func (e *Engine) accessor() GeometryAccessor { return e.geometry(e.root) }

func (e *Engine) scene() *SceneGraph {
	if e.dirty || e.sceneGraph == nil {
		e.sceneGraph = BuildSceneGraph(e.root, e.accessor())
		e.dirty = false
	}
	return e.sceneGraph
}

// --- Tools and selection ---

func (e *Engine) Tool() Tool { return e.tool }
func (e *Engine) State() State { return e.state }
func (e *Engine) Selection() string { return e.selection }
func (e *Engine) DrawShape() Shape { return e.shape }
func (e *Engine) Preview() *document.Node { return e.drawing }

// SetTool switches tools, abandoning any gesture in progress.
func (e *Engine) SetTool(tool Tool) error {
	var state State
	switch tool {
	case ToolPan:
		state = StateIdlePan
	case ToolSelect, ToolEdit:
		state = StateNodeEditing
	case ToolDraw:
		state = StateDrawingShape
	default:
		return fmt.Errorf("unknown tool %q", tool)
	}
	e.abortGesture()
	e.tool, e.state = tool, state
	return nil
}

// SetDrawShape selects the draw tool with the given shape.
func (e *Engine) SetDrawShape(shape Shape) error {
	switch shape {
	case ShapeCircle, ShapeRect, ShapeEllipse, ShapeLine:
	default:
		return fmt.Errorf("unknown shape %q", shape)
	}
	e.shape = shape
	return e.SetTool(ToolDraw)
}

func (e *Engine) Select(id string) error {
	if id != "" && document.FindByID(e.root, id) == nil {
		return fmt.Errorf("select %s: %w", id, document.ErrNotFound)
	}
	e.selection = id
	return nil
}

// Handles returns the handles of the selected node for the active tool:
// the edit tool gets per-shape handles, the select tool a resize box.
func (e *Engine) Handles() ([]Handle, error) {
	e.t.Refresh()
	if e.selection == "" || (e.state != StateNodeEditing && e.state != StateDraggingHandle) {
		return nil, nil
	}
	n := document.FindByID(e.root, e.selection)
	if n == nil {
		return nil, nil
	}
	if e.tool == ToolEdit {
		return Handles(n, e.accessor(), e.t, e.opts.HandleStyle)
	}
	return BoxHandles(n, e.accessor(), e.t, e.opts.HandleStyle)
}

// --- Pointer events ---

// PointerDown starts a gesture at the page position (x, y) and acquires
// pointer capture until the gesture ends.
func (e *Engine) PointerDown(x, y float64) error {
	e.t.Refresh()
	if e.pressed {
		e.abortGesture()
	}
	if err := e.t.Ready(); err != nil {
		return err
	}
	e.capture.acquire()
	e.pressed = true

	var err error
	switch e.state {
	case StateIdlePan:
		e.panLastX, e.panLastY = x, y
	case StateNodeEditing:
		err = e.pressEditing(x, y)
	case StateDrawingShape:
		err = e.pressDrawing(x, y)
	}
	if err != nil {
		e.endGesture()
	}
	return err
}

func (e *Engine) pressEditing(x, y float64) error {
	if e.selection != "" {
		handles, err := e.Handles()
		if err != nil {
			slog.Warn("handles unavailable", "id", e.selection, "error", err)
		}
		if h, ok := HandleAt(handles, x, y, e.opts.HandleStyle.HitRadius); ok {
			n := document.FindByID(e.root, h.OwnerID)
			d, err := BeginDrag(h, n, e.accessor(), e.t, x, y)
			if err != nil {
				return err
			}
			e.drag = d
			e.before = e.root
			e.state = StateDraggingHandle
			return nil
		}
	}
	sx, sy, err := e.t.ScreenToSVG(x, y)
	if err != nil {
		return err
	}
	e.selection = HitTest(e.scene(), sx, sy)
	return nil
}

func (e *Engine) pressDrawing(x, y float64) error {
	sx, sy, err := e.t.ScreenToSVG(x, y)
	if err != nil {
		return err
	}
	e.drawOrigin = pathdata.Point{X: sx, Y: sy}
	e.drawing = newShape(e.shape, e.drawOrigin, e.opts.DrawAttrs)
	return nil
}

// PointerMove continues the active gesture. Moves without a press are
// ignored.
func (e *Engine) PointerMove(x, y float64) error {
	e.t.Refresh()
	if !e.pressed {
		return nil
	}
	switch e.state {
	case StateIdlePan:
		e.t.PanBy(x-e.panLastX, y-e.panLastY)
		e.panLastX, e.panLastY = x, y
	case StateDraggingHandle:
		upd, err := e.drag.Move(x, y)
		if err != nil {
			return err
		}
		e.lastAngle = upd.Angle
		if sameNode(document.FindByID(e.root, upd.Node.ID), upd.Node) {
			return nil
		}
		root, ok := document.ReplaceByID(e.root, upd.Node.ID, upd.Node)
		if !ok {
			return fmt.Errorf("drag %s: %w", upd.Node.ID, document.ErrNotFound)
		}
		e.setRoot(root)
	case StateDrawingShape:
		if e.drawing == nil {
			return nil
		}
		sx, sy, err := e.t.ScreenToSVG(x, y)
		if err != nil {
			return err
		}
		e.drawing = sizeShape(e.shape, e.drawing, e.drawOrigin, pathdata.Point{X: sx, Y: sy})
	}
	return nil
}

// PointerUp finishes the gesture at (x, y). Capture is released whatever
// happens.
func (e *Engine) PointerUp(x, y float64) error {
	defer e.endGesture()
	if !e.pressed {
		return nil
	}
	if err := e.PointerMove(x, y); err != nil {
		e.abortGesture()
		return err
	}

	switch e.state {
	case StateDraggingHandle:
		// a drag that ends where it began leaves no undo step
		id := e.drag.Handle().OwnerID
		if sameNode(document.FindByID(e.before, id), document.FindByID(e.root, id)) {
			e.setRoot(e.before)
		} else {
			e.history.SaveState(e.root)
		}
		e.state = StateNodeEditing
	case StateDrawingShape:
		if e.drawing == nil {
			return nil
		}
		n := e.drawing
		e.drawing = nil
		if b, ok := (AttributeGeometry{}).LocalBBox(n); !ok || (b.Width() == 0 && b.Height() == 0) {
			return nil
		}
		root, err := document.InsertChild(e.root, e.root.ID, -1, n)
		if err != nil {
			return err
		}
		e.commit(root)
		e.selection = n.ID
	}
	return nil
}

func sameNode(a, b *document.Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return document.ToMarkup(a) == document.ToMarkup(b)
}

// PointerCancel abandons the gesture and restores the document as it was
// at the press. Hosts also call it when the pointer leaves the window.
func (e *Engine) PointerCancel() {
	e.abortGesture()
}

// Wheel zooms about the pointer. Negative deltaY zooms in.
func (e *Engine) Wheel(x, y, deltaY float64) {
	e.t.Refresh()
	e.t.ZoomAt(x, y, math.Exp(-deltaY*wheelZoomRate))
}

// KeyDown handles editor keys: Escape cancels a gesture or clears the
// selection, Delete and Backspace remove the selected node.
func (e *Engine) KeyDown(key string) {
	switch key {
	case "Escape":
		if e.pressed {
			e.abortGesture()
			return
		}
		e.selection = ""
	case "Delete", "Backspace":
		if e.pressed || e.selection == "" {
			return
		}
		if root, ok := document.RemoveByID(e.root, e.selection); ok {
			e.commit(root)
		}
		e.selection = ""
	}
}

// abortGesture undoes whatever the current press changed.
func (e *Engine) abortGesture() {
	if e.drag != nil && e.before != nil {
		e.setRoot(e.before)
	}
	if e.state == StateDraggingHandle {
		e.state = StateNodeEditing
	}
	e.drawing = nil
	e.endGesture()
}

func (e *Engine) endGesture() {
	e.pressed = false
	e.drag = nil
	e.before = nil
	e.capture.release()
}

// --- History ---

func (e *Engine) Undo() error {
	if e.pressed {
		e.abortGesture()
	}
	root, err := e.history.Undo()
	if err != nil {
		return err
	}
	e.restore(root)
	return nil
}

func (e *Engine) Redo() error {
	if e.pressed {
		e.abortGesture()
	}
	root, err := e.history.Redo()
	if err != nil {
		return err
	}
	e.restore(root)
	return nil
}

func (e *Engine) restore(root *document.Node) {
	e.setRoot(root)
	if e.selection != "" && document.FindByID(root, e.selection) == nil {
		e.selection = ""
	}
}

// --- Path editing ---

// InsertPathNodeAt adds a vertex to the selected path at the point of the
// path nearest the page position (x, y), if it lies within the handle hit
// radius.
func (e *Engine) InsertPathNodeAt(x, y float64) (bool, error) {
	e.t.Refresh()
	n := document.FindByID(e.root, e.selection)
	if n == nil || n.Type != document.NodeTypePath {
		return false, nil
	}
	sx, sy, err := e.t.ScreenToSVG(x, y)
	if err != nil {
		return false, err
	}
	acc := e.accessor()
	world := acc.ConsolidatedTransform(n)
	local := world.Invert().point(pathdata.Point{X: sx, Y: sy})

	p, err := pathdata.Parse(n.Attr("d"))
	if err != nil {
		return false, err
	}
	hit, ok := p.ClosestPoint(local.X, local.Y)
	if !ok || hit.T <= 0 || hit.T >= 1 {
		return false, nil
	}
	hx, hy, _ := e.t.SVGToScreen(world.TransformPoint(hit.Point.X, hit.Point.Y))
	if math.Hypot(hx-x, hy-y) > e.opts.HandleStyle.HitRadius {
		return false, nil
	}
	out, err := p.InsertNode(hit.Index, hit.T)
	if err != nil {
		mutationFailed(err, "id", n.ID, "index", hit.Index)
		return false, nil
	}
	e.setPath(n.ID, out)
	return true, nil
}

// RemovePathNode deletes the vertex owned by command index of the
// selected path.
func (e *Engine) RemovePathNode(index int) error {
	n := document.FindByID(e.root, e.selection)
	if n == nil || n.Type != document.NodeTypePath {
		return nil
	}
	p, err := pathdata.Parse(n.Attr("d"))
	if err != nil {
		return err
	}
	out, err := p.RemoveNode(index)
	if err != nil {
		mutationFailed(err, "id", n.ID, "index", index)
		return nil
	}
	e.setPath(n.ID, out)
	return nil
}

func (e *Engine) setPath(id string, p pathdata.Path) {
	root, _ := document.UpdateByID(e.root, id, func(n *document.Node) {
		n.Attrs["d"] = p.String()
	})
	e.commit(root)
}

// --- View ---

// FitToContent zooms so the whole drawing fills the container.
func (e *Engine) FitToContent() error {
	e.t.Refresh()
	b, ok := WorldBounds(e.root, e.accessor())
	if !ok {
		return fmt.Errorf("fit to content: %w", ErrNoGeometry)
	}
	return e.t.FitToBounds(b, e.opts.FitPadding)
}

func (e *Engine) HitTest(x, y float64) string {
	return HitTest(e.scene(), x, y)
}

// --- Queries (JSON for the wasm bridge) ---

// EngineState is a snapshot of the controller for the host UI.
type EngineState struct {
	Tool      Tool    `json:"tool"`
	Shape     Shape   `json:"shape"`
	State     State   `json:"state"`
	Selection string  `json:"selection"`
	View      PanZoom `json:"view"`
	ViewBox   ViewBox `json:"viewBox"`
	Angle     float64 `json:"angle,omitempty"`
	UndoPos   int     `json:"undoPos"`
	UndoLen   int     `json:"undoLen"`
	// ScreenMatrix maps user space to page pixels as [a b c d e f]; the
	// host sets it on overlays drawn in user units.
	ScreenMatrix  []float64 `json:"screenMatrix,omitempty"`
	PixelsPerUnit float64   `json:"pixelsPerUnit,omitempty"`
}

func (e *Engine) GetState() string {
	pos, total := e.history.Stats()
	st := EngineState{
		Tool:      e.tool,
		Shape:     e.shape,
		State:     e.state,
		Selection: e.selection,
		View:      e.t.PanZoom(),
		ViewBox:   e.t.ViewBox(),
		UndoPos:   pos,
		UndoLen:   total,
	}
	if e.state == StateDraggingHandle {
		st.Angle = e.lastAngle
	}
	if m, err := e.t.ScreenMatrix(); err == nil {
		st.ScreenMatrix = m.ToSlice()
		st.PixelsPerUnit, _ = e.t.SVGLengthToScreen(1)
	}
	data, _ := json.Marshal(st)
	return string(data)
}

func (e *Engine) GetHandles() string {
	handles, err := e.Handles()
	if err != nil || handles == nil {
		return "[]"
	}
	data, _ := json.Marshal(struct {
		Style   HandleStyle `json:"style"`
		Handles []Handle    `json:"handles"`
	}{e.opts.HandleStyle, handles})
	return string(data)
}

// GetSelectionBounds returns the world bounds of the selection as JSON, or
// null when nothing measurable is selected.
func (e *Engine) GetSelectionBounds() string {
	b, ok := e.scene().SelectionBounds(e.selection)
	if !ok {
		return "null"
	}
	data, _ := json.Marshal(b)
	return string(data)
}

func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.root)
	return string(data)
}

func (e *Engine) GetPreview() string {
	if e.drawing == nil {
		return "null"
	}
	data, _ := json.Marshal(e.drawing)
	return string(data)
}

// --- Shape drawing ---

func newShape(shape Shape, at pathdata.Point, style map[string]string) *document.Node {
	x, y := pathdata.FormatNumber(at.X), pathdata.FormatNumber(at.Y)
	attrs := make(map[string]string, len(style)+4)
	for k, v := range style {
		attrs[k] = v
	}
	switch shape {
	case ShapeCircle:
		attrs["cx"], attrs["cy"], attrs["r"] = x, y, "0"
	case ShapeEllipse:
		attrs["cx"], attrs["cy"], attrs["rx"], attrs["ry"] = x, y, "0", "0"
	case ShapeLine:
		attrs["x1"], attrs["y1"], attrs["x2"], attrs["y2"] = x, y, x, y
	default:
		attrs["x"], attrs["y"], attrs["width"], attrs["height"] = x, y, "0", "0"
	}
	return document.New(string(shape), attrs)
}

// sizeShape stretches a shape being drawn from origin to cur.
func sizeShape(shape Shape, n *document.Node, origin, cur pathdata.Point) *document.Node {
	f := pathdata.FormatNumber
	dx, dy := cur.X-origin.X, cur.Y-origin.Y
	out, _ := document.UpdateByID(n, n.ID, func(n *document.Node) {
		switch shape {
		case ShapeCircle:
			n.Attrs["r"] = f(math.Hypot(dx, dy))
		case ShapeEllipse:
			n.Attrs["rx"], n.Attrs["ry"] = f(math.Abs(dx)), f(math.Abs(dy))
		case ShapeLine:
			n.Attrs["x2"], n.Attrs["y2"] = f(cur.X), f(cur.Y)
		default:
			n.Attrs["x"], n.Attrs["y"] = f(min(origin.X, cur.X)), f(min(origin.Y, cur.Y))
			n.Attrs["width"], n.Attrs["height"] = f(math.Abs(dx)), f(math.Abs(dy))
		}
	})
	return out
}
