//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"syscall/js"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/config"
	"github.com/mla/mla/chart-go/internal/engine"
	"github.com/mla/mla/chart-go/internal/history"
	"github.com/mla/mla/chart-go/internal/plugin"
	"github.com/mla/mla/chart-go/internal/store"
	"github.com/mla/mla/chart-go/internal/typeid"
)

var (
	eng       *engine.Engine
	importers = plugin.NewDefaultRegistry()
)

func main() {
	host := js.Global().Get("mlaHost")

	var err error
	eng, err = engine.New(store.New(), engine.Options{
		Width:      800,
		Height:     600,
		Catalog:    config.EmptyCatalog(),
		Editor:     &domEditor{host: host},
		Notifier:   hostNotifier{host: host},
		NewShapeID: typeid.NewShapeID,
	})
	if err != nil {
		js.Global().Get("console").Call("error", err.Error())
		return
	}

	// Create the engine API object
	mlaEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	mlaEngine.Set("loadChart", js.FuncOf(loadChart))
	mlaEngine.Set("setCatalog", js.FuncOf(setCatalog))
	mlaEngine.Set("importText", js.FuncOf(importText))
	mlaEngine.Set("pointerDown", js.FuncOf(pointerDown))
	mlaEngine.Set("pointerMove", js.FuncOf(pointerMove))
	mlaEngine.Set("pointerUp", js.FuncOf(pointerUp))
	mlaEngine.Set("keyDown", js.FuncOf(keyDown))
	mlaEngine.Set("documentClick", js.FuncOf(documentClick))
	mlaEngine.Set("resize", js.FuncOf(resize))
	mlaEngine.Set("setTool", js.FuncOf(setTool))
	mlaEngine.Set("deleteSelection", js.FuncOf(deleteSelection))
	mlaEngine.Set("setDate", js.FuncOf(setDate))
	mlaEngine.Set("play", js.FuncOf(play))
	mlaEngine.Set("pause", js.FuncOf(pause))
	mlaEngine.Set("startLayout", js.FuncOf(startLayout))
	mlaEngine.Set("fitView", js.FuncOf(fitView))
	mlaEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	mlaEngine.Set("render", js.FuncOf(render))
	mlaEngine.Set("getGraph", js.FuncOf(getGraph))
	mlaEngine.Set("getSelection", js.FuncOf(getSelection))
	mlaEngine.Set("getPlaybackState", js.FuncOf(getPlaybackState))
	mlaEngine.Set("getSaveFile", js.FuncOf(getSaveFile))
	mlaEngine.Set("getCursor", js.FuncOf(getCursor))
	mlaEngine.Set("getMode", js.FuncOf(getMode))

	// Register on global scope
	js.Global().Set("mlaEngine", mlaEngine)

	// Signal that WASM is ready
	js.Global().Set("mlaWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func drawJSON(commands []engine.DrawCommand) interface{} {
	data, err := engine.DrawCommandsToJSON(commands)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(data)
}

// --- Command Handlers ---

func loadChart(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errors.New("missing chart JSON"))
	}
	var file chart.SaveFile
	if err := json.Unmarshal([]byte(args[0].String()), &file); err != nil {
		return result(err)
	}
	return result(eng.Load(file))
}

func setCatalog(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errors.New("missing catalog TOML"))
	}
	c, err := config.ParseCatalog(args[0].String())
	if err != nil {
		return result(err)
	}
	eng.SetCatalog(c)
	return result(nil)
}

func importText(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errors.New("usage: importText(importer, text)"))
	}
	im, err := importers.Get(args[0].String())
	if err != nil {
		return result(err)
	}
	return result(eng.Import(context.Background(), im, []byte(args[1].String())))
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 6 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float(), engine.Button(args[2].Int()),
		args[3].Bool(), args[4].Bool(), args[5].Int())
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float())
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return nil
	}
	eng.PointerUp(args[0].Float(), args[1].Float(), engine.Button(args[2].Int()), args[3].Bool())
	return nil
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.KeyDown(args[0].String(), args[1].Bool())
	return nil
}

func documentClick(this js.Value, args []js.Value) interface{} {
	inside := len(args) > 0 && args[0].Bool()
	eng.DocumentClick(inside)
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.Resize(args[0].Float(), args[1].Float())
	return nil
}

func setTool(this js.Value, args []js.Value) interface{} {
	name := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	return result(eng.SetTool(name))
}

func deleteSelection(this js.Value, args []js.Value) interface{} {
	eng.DeleteSelection()
	return nil
}

func setDate(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errors.New("missing date"))
	}
	d, err := time.Parse(time.DateOnly, args[0].String())
	if err != nil {
		return result(err)
	}
	eng.SetDate(d)
	return result(nil)
}

func play(this js.Value, args []js.Value) interface{} {
	dir := history.Forward
	if len(args) > 0 && args[0].String() == "backward" {
		dir = history.Backward
	}
	eng.Play(dir)
	return nil
}

func pause(this js.Value, args []js.Value) interface{} {
	eng.Pause()
	return nil
}

func startLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errors.New("missing layout name"))
	}
	root, easing := "", ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		root = args[1].String()
	}
	if len(args) > 2 && args[2].Type() == js.TypeString {
		easing = args[2].String()
	}
	return result(eng.StartLayout(args[0].String(), root, 0, engine.Easing(easing)))
}

func fitView(this js.Value, args []js.Value) interface{} {
	eng.FitView()
	return nil
}

func tick(this js.Value, args []js.Value) interface{} {
	return drawJSON(eng.Tick())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return drawJSON(eng.Render())
}

func getGraph(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GraphJSON())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectionJSON())
}

func getPlaybackState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PlaybackJSON())
}

func getSaveFile(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(eng.Store().Snapshot())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getCursor(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Cursor())
}

func getMode(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Mode().String())
}

// domEditor shows the text editor as a textarea owned by the host page.
type domEditor struct {
	host js.Value
}

func (d *domEditor) Open(shapeID string, box engine.Rect, text string, fontSize float64) {
	d.host.Call("openEditor", shapeID, box.X, box.Y, box.Width, box.Height, text, fontSize)
}

func (d *domEditor) Value() string {
	return d.host.Call("editorValue").String()
}

func (d *domEditor) RenderedHeight() float64 {
	return d.host.Call("editorHeight").Float()
}

func (d *domEditor) Close() {
	d.host.Call("closeEditor")
}

type hostNotifier struct {
	host js.Value
}

func (n hostNotifier) Notify(err error) {
	n.host.Call("notify", err.Error())
}
