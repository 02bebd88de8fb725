//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/engine"
)

var (
	eng     *engine.Engine
	capture *domCapture
)

// domSurface reads the container rect from the live DOM element the
// document is drawn in. The viewBox comes from the engine's own document.
type domSurface struct {
	el js.Value
}

func (s *domSurface) ViewBox() (engine.ViewBox, bool) {
	if eng == nil {
		return engine.ViewBox{}, false
	}
	return engine.ViewBoxOf(eng.Document())
}

func (s *domSurface) ContainerRect() (float64, float64, float64, float64) {
	r := s.el.Call("getBoundingClientRect")
	return r.Get("left").Float(), r.Get("top").Float(), r.Get("width").Float(), r.Get("height").Float()
}

// domCapture holds pointer capture on the container for the pointer that
// started the press, so moves outside it still reach the engine.
type domCapture struct {
	el        js.Value
	pointerID js.Value
}

func (c *domCapture) Acquire() {
	if c.pointerID.Type() == js.TypeNumber {
		c.el.Call("setPointerCapture", c.pointerID)
	}
}

func (c *domCapture) Release() {
	if c.pointerID.Type() != js.TypeNumber {
		return
	}
	if c.el.Call("hasPointerCapture", c.pointerID).Bool() {
		c.el.Call("releasePointerCapture", c.pointerID)
	}
}

func main() {
	api := js.Global().Get("Object").New()

	// --- Setup ---
	api.Set("init", js.FuncOf(initEngine))
	api.Set("onChange", js.FuncOf(onChange))

	// --- Commands (frontend → engine) ---
	api.Set("loadMarkup", js.FuncOf(loadMarkup))
	api.Set("applyRemote", js.FuncOf(applyRemote))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setDrawShape", js.FuncOf(setDrawShape))
	api.Set("select", js.FuncOf(selectNode))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("pointerCancel", js.FuncOf(pointerCancel))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("fitToContent", js.FuncOf(fitToContent))
	api.Set("insertPathNode", js.FuncOf(insertPathNode))
	api.Set("removePathNode", js.FuncOf(removePathNode))

	// --- Queries (frontend ← engine) ---
	api.Set("getState", js.FuncOf(getState))
	api.Set("getHandles", js.FuncOf(getHandles))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getMarkup", js.FuncOf(getMarkup))
	api.Set("getPreview", js.FuncOf(getPreview))
	api.Set("hitTest", js.FuncOf(hitTest))

	js.Global().Set("pictoforgeEngine", api)
	js.Global().Set("pictoforgeWasmReady", js.ValueOf(true))

	select {}
}

func ok() any { return js.ValueOf(map[string]any{"ok": true}) }

func fail(err error) any { return js.ValueOf(map[string]any{"error": err.Error()}) }

func failMsg(msg string) any { return js.ValueOf(map[string]any{"error": msg}) }

func result(err error) any {
	if err != nil {
		return fail(err)
	}
	return ok()
}

func ready() bool { return eng != nil }

// initEngine(container, optionsJSON?) binds the engine to a DOM element.
// optionsJSON is the body of GET /api/editor/options.
func initEngine(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return failMsg("missing container element")
	}
	opts := engine.DefaultOptions()
	if len(args) > 1 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &opts); err != nil {
			return fail(err)
		}
	}

	capture = &domCapture{el: args[0], pointerID: js.Undefined()}
	eng = engine.NewEngine(&domSurface{el: args[0]}, capture, opts)
	return ok()
}

// onChange(fn) registers fn(markup) to run after every document change.
func onChange(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	eng.OnChange(func(root *document.Node) {
		fn.Invoke(document.ToMarkup(root))
	})
	return nil
}

func loadMarkup(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return failMsg("missing markup")
	}
	// A parse failure still loads an empty document; report it as a notice.
	if err := eng.LoadMarkup(args[0].String()); err != nil {
		return js.ValueOf(map[string]any{"ok": true, "notice": err.Error()})
	}
	return ok()
}

func applyRemote(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return failMsg("missing markup")
	}
	root, err := document.FromMarkup(args[0].String())
	if err != nil {
		return fail(err)
	}
	eng.ApplyRemote(root)
	return ok()
}

func setTool(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return failMsg("missing tool")
	}
	return result(eng.SetTool(engine.Tool(args[0].String())))
}

func setDrawShape(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return failMsg("missing shape")
	}
	return result(eng.SetDrawShape(engine.Shape(args[0].String())))
}

func selectNode(this js.Value, args []js.Value) any {
	if !ready() {
		return failMsg("engine not initialised")
	}
	id := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	return result(eng.Select(id))
}

// pointerDown(clientX, clientY, pointerId)
func pointerDown(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return nil
	}
	if len(args) > 2 {
		capture.pointerID = args[2]
	}
	return result(eng.PointerDown(args[0].Float(), args[1].Float()))
}

func pointerMove(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return nil
	}
	return result(eng.PointerMove(args[0].Float(), args[1].Float()))
}

func pointerUp(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return nil
	}
	return result(eng.PointerUp(args[0].Float(), args[1].Float()))
}

func pointerCancel(this js.Value, args []js.Value) any {
	if ready() {
		eng.PointerCancel()
	}
	return nil
}

// wheel(clientX, clientY, deltaY)
func wheel(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 3 {
		return nil
	}
	eng.Wheel(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

func keyDown(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	eng.KeyDown(args[0].String())
	return nil
}

func undo(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	return result(eng.Undo())
}

func redo(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	return result(eng.Redo())
}

func fitToContent(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	return result(eng.FitToContent())
}

func insertPathNode(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return nil
	}
	inserted, err := eng.InsertPathNodeAt(args[0].Float(), args[1].Float())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "inserted": inserted})
}

func removePathNode(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	return result(eng.RemovePathNode(args[0].Int()))
}

// --- Query Handlers ---

func getState(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("null")
	}
	return js.ValueOf(eng.GetState())
}

func getHandles(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.GetHandles())
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("null")
	}
	return js.ValueOf(eng.GetSelectionBounds())
}

func getDocument(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("null")
	}
	return js.ValueOf(eng.GetDocument())
}

func getMarkup(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.Markup())
}

func getPreview(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("null")
	}
	return js.ValueOf(eng.GetPreview())
}

// hitTest(svgX, svgY) takes document coordinates, not client pixels.
func hitTest(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}
