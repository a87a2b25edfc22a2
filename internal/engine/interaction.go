package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/store"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeSelecting
	ModeDragging
	ModeResizing
	ModeDrawing
	ModeDrawingSelectionBox
	ModeEditingText
	ModePanning
)

func (m Mode) String() string {
	switch m {
	case ModeSelecting:
		return "selecting"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	case ModeDrawing:
		return "drawing"
	case ModeDrawingSelectionBox:
		return "drawingSelectionBox"
	case ModeEditingText:
		return "editingText"
	case ModePanning:
		return "panning"
	default:
		return "idle"
	}
}

// TextEditor is the inline text area opened over a text shape.
type TextEditor interface {
	Open(shapeID string, box Rect, text string, fontSize float64)
	Value() string
	// RenderedHeight is the editor's content height in screen pixels.
	RenderedHeight() float64
	Close()
}

// ShapeStyle holds the defaults for newly drawn shapes.
type ShapeStyle struct {
	StrokeColor string
	FillColor   string
	StrokeWidth float64
	FontSize    float64
	TextColor   string
}

func DefaultShapeStyle() ShapeStyle {
	return ShapeStyle{StrokeColor: "#000000", StrokeWidth: 2, FontSize: defaultFont, TextColor: "#000000"}
}

// InteractionOptions wires the machine to its collaborators.
type InteractionOptions struct {
	Editor     TextEditor
	Style      ShapeStyle
	Date       func() time.Time
	NewShapeID func() string
	// Strict turns invariant violations into panics instead of no-ops.
	Strict   bool
	Logger   *slog.Logger
	OnChange func()
	OnAbort  func()
}

// modeState is the working data of one mode. A nil state is idle.
type modeState interface {
	mode() Mode
}

type selectingState struct {
	origin Point
}

type draggingState struct {
	origin     Point
	nodeStart  map[string]Point
	shapeStart map[string]chart.Shape
	moved      map[string]chart.Shape
}

type resizingState struct {
	shapeID string
	handle  Handle
	start   chart.Shape
	preview chart.Shape
}

type drawingState struct {
	anchor Point
	shape  chart.Shape
}

type marqueeState struct {
	anchor Point
	rect   Rect
}

type editingState struct {
	shapeID   string
	disposers []func()
}

type panningState struct {
	origin Point
	start  Viewport
}

func (*selectingState) mode() Mode { return ModeSelecting }
func (*draggingState) mode() Mode  { return ModeDragging }
func (*resizingState) mode() Mode  { return ModeResizing }
func (*drawingState) mode() Mode   { return ModeDrawing }
func (*marqueeState) mode() Mode   { return ModeDrawingSelectionBox }
func (*editingState) mode() Mode   { return ModeEditingText }
func (*panningState) mode() Mode   { return ModePanning }

// Interaction is the pointer and keyboard state machine of the editor.
type Interaction struct {
	store   *store.Store
	surface Surface
	opts    InteractionOptions
	log     *slog.Logger

	state     modeState
	tool      chart.ShapeType
	pointer   Point
	disposers []func()
}

// NewInteraction subscribes to the surface event stream. Call Close to
// release every listener.
func NewInteraction(st *store.Store, surface Surface, opts InteractionOptions) *Interaction {
	if opts.Date == nil {
		opts.Date = time.Now
	}
	if opts.Style == (ShapeStyle{}) {
		opts.Style = DefaultShapeStyle()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	i := &Interaction{store: st, surface: surface, opts: opts, log: opts.Logger}
	i.disposers = []func(){
		surface.On(EventDownNode, i.onDownGraph),
		surface.On(EventDownEdge, i.onDownGraph),
		surface.On(EventDownStage, i.onDownStage),
		surface.On(EventRightClick, i.onRightClick),
		surface.On(EventMove, i.onMove),
		surface.On(EventUp, i.onUp),
		surface.On(EventKeyDown, i.onKeyDown),
	}
	return i
}

// Close ends any gesture and runs every disposer.
func (i *Interaction) Close() {
	if st, ok := i.state.(*editingState); ok {
		i.leaveEditing(st)
	}
	i.state = nil
	for _, d := range i.disposers {
		d()
	}
	i.disposers = nil
}

func (i *Interaction) Mode() Mode {
	if i.state == nil {
		return ModeIdle
	}
	return i.state.mode()
}

func (i *Interaction) Tool() chart.ShapeType { return i.tool }

// SetTool activates a drawing tool; an empty type clears it.
func (i *Interaction) SetTool(t chart.ShapeType) {
	i.tool = t
	i.changed()
}

func (i *Interaction) changed() {
	if i.opts.OnChange != nil {
		i.opts.OnChange()
	}
}

func (i *Interaction) toIdle() {
	i.state = nil
	i.changed()
}

func (i *Interaction) abort(reason string) {
	i.log.Debug("gesture aborted", "mode", i.Mode().String(), "reason", reason)
	i.state = nil
	if i.opts.OnAbort != nil {
		i.opts.OnAbort()
	}
	i.changed()
}

func (i *Interaction) invariant(err error) {
	if i.opts.Strict {
		panic(err)
	}
	i.log.Warn("invariant violated", "error", err)
}

func (i *Interaction) apply(cmds ...store.Command) {
	if err := i.store.Apply(cmds...); err != nil {
		i.log.Warn("store update failed", "error", err)
	}
}

func (i *Interaction) screenShapes() []chart.Shape {
	shapes := i.store.Shapes()
	for idx := range shapes {
		shapes[idx] = ToScreen(shapes[idx], i.surface)
	}
	return shapes
}

// --- pointer down ---

func (i *Interaction) onDownGraph(ev Event) {
	i.pointer = ev.Point
	switch i.state.(type) {
	case nil:
	case *editingState:
		i.commitText()
		return
	default:
		return
	}
	if i.tool != "" {
		i.startDrawing(ev.Point)
		return
	}
	i.selectGraph(ev.Key, ev.Ctrl)
	i.state = &selectingState{origin: ev.Point}
	i.changed()
}

func (i *Interaction) onDownStage(ev Event) {
	i.pointer = ev.Point
	switch i.state.(type) {
	case nil:
	case *editingState:
		i.commitText()
		return
	default:
		return
	}
	p := ev.Point
	if i.tool != "" {
		i.startDrawing(p)
		return
	}

	shapes := i.screenShapes()
	for idx := len(shapes) - 1; idx >= 0; idx-- {
		sh := shapes[idx]
		if !i.store.IsShapeSelected(sh.ID) {
			continue
		}
		if h := HandleAt(sh, p); h != HandleNone {
			i.state = &resizingState{shapeID: sh.ID, handle: h, start: sh, preview: sh}
			i.changed()
			return
		}
	}

	if idx := ShapeAt(shapes, p); idx >= 0 {
		sh := shapes[idx]
		if ev.Clicks >= 2 && sh.Type == chart.ShapeText {
			i.startEditing(sh)
			return
		}
		i.selectShape(sh.ID, ev.Ctrl)
		i.state = &selectingState{origin: p}
		i.changed()
		return
	}

	i.state = &marqueeState{anchor: p, rect: Rect{X: p.X, Y: p.Y}}
	i.changed()
}

func (i *Interaction) onRightClick(ev Event) {
	i.pointer = ev.Point
	if i.state != nil {
		return
	}
	i.state = &panningState{origin: ev.Point, start: i.surface.Viewport()}
	i.changed()
}

func (i *Interaction) selectGraph(key string, ctrl bool) {
	if ctrl {
		i.apply(store.SelectGraph{IDs: []string{key}, Mode: store.Toggle})
		return
	}
	if i.store.IsGraphSelected(key) {
		return
	}
	i.apply(store.SelectGraph{IDs: []string{key}}, store.SelectShapes{})
}

func (i *Interaction) selectShape(id string, ctrl bool) {
	if ctrl {
		i.apply(store.SelectShapes{IDs: []string{id}, Mode: store.Toggle})
		return
	}
	if i.store.IsShapeSelected(id) {
		return
	}
	i.apply(store.SelectShapes{IDs: []string{id}}, store.SelectGraph{})
}

// --- pointer move ---

func (i *Interaction) onMove(ev Event) {
	i.pointer = ev.Point
	p := ev.Point
	switch st := i.state.(type) {
	case *selectingState:
		if p == st.origin {
			return
		}
		i.startDragging(st)
		i.dragTo(p)
	case *draggingState:
		i.dragTo(p)
	case *resizingState:
		i.resizeTo(st, p)
	case *drawingState:
		st.shape = drawTo(st.shape, st.anchor, p)
		i.changed()
	case *marqueeState:
		st.rect = RectFromPoints(st.anchor, p)
		i.changed()
	case *panningState:
		i.surface.SetCamera(st.start.Pan(st.origin, p))
		i.changed()
	case nil:
		// Hover only affects the cursor.
		i.changed()
	}
}

func (i *Interaction) startDragging(sel *selectingState) {
	st := &draggingState{
		origin:     i.surface.ViewportToGraph(sel.origin),
		nodeStart:  make(map[string]Point),
		shapeStart: make(map[string]chart.Shape),
		moved:      make(map[string]chart.Shape),
	}
	for _, key := range i.store.SelectedGraph() {
		if n, ok := i.surface.Node(key); ok {
			st.nodeStart[key] = Point{n.X, n.Y}
		}
	}
	for _, id := range i.store.SelectedShapes() {
		if sh, ok := i.store.Shape(id); ok {
			st.shapeStart[id] = sh
		}
	}
	i.state = st
}

func (i *Interaction) dragTo(p Point) {
	st, ok := i.state.(*draggingState)
	if !ok {
		return
	}
	d := i.surface.ViewportToGraph(p).Sub(st.origin)
	for key, start := range st.nodeStart {
		if !i.surface.HasNode(key) {
			i.abort("node " + key + " removed")
			return
		}
		pos := start.Add(d)
		i.surface.UpdateNode(key, func(n NodeAttrs) NodeAttrs {
			n.X, n.Y = pos.X, pos.Y
			return n
		})
	}
	for id, start := range st.shapeStart {
		if _, ok := i.store.Shape(id); !ok {
			i.abort("shape " + id + " removed")
			return
		}
		st.moved[id] = start.Translate(d.X, d.Y)
	}
	i.changed()
}

func (i *Interaction) resizeTo(st *resizingState, p Point) {
	if _, ok := i.store.Shape(st.shapeID); !ok {
		i.abort("shape " + st.shapeID + " removed")
		return
	}
	preview, err := Resize(st.start, st.handle, p)
	if err != nil {
		i.invariant(fmt.Errorf("resize %s: %w", st.shapeID, err))
		return
	}
	st.preview = preview
	i.changed()
}

func drawTo(s chart.Shape, anchor, p Point) chart.Shape {
	out := s.Clone()
	if out.LinePoints != nil {
		out.LinePoints.X2, out.LinePoints.Y2 = p.X, p.Y
	}
	r := RectFromPoints(anchor, p)
	out.X, out.Y, out.Width, out.Height = r.X, r.Y, r.Width, r.Height
	return out
}

// --- pointer up ---

func (i *Interaction) onUp(ev Event) {
	i.pointer = ev.Point
	p := ev.Point
	switch st := i.state.(type) {
	case *selectingState:
		i.toIdle()
	case *draggingState:
		i.dragTo(p)
		if i.state == st {
			i.commitDrag(st)
		}
	case *resizingState:
		if _, ok := i.store.Shape(st.shapeID); !ok {
			i.abort("shape " + st.shapeID + " removed")
			return
		}
		i.apply(store.PutShape{Shape: ToGraph(st.preview, i.surface)})
		i.toIdle()
	case *drawingState:
		i.finishDrawing(st, p)
	case *marqueeState:
		st.rect = RectFromPoints(st.anchor, p)
		i.finishMarquee(st.rect, ev.Ctrl)
	case *panningState:
		i.toIdle()
	}
}

func (i *Interaction) commitDrag(st *draggingState) {
	d := i.surface.ViewportToGraph(i.pointer).Sub(st.origin)
	moves := make(map[chart.Key]store.Position)
	for key, start := range st.nodeStart {
		k, isLink, ok := i.store.Lookup(key)
		if !ok || isLink {
			continue
		}
		pos := start.Add(d)
		moves[k] = store.Position{X: pos.X, Y: pos.Y}
	}
	cmds := []store.Command{store.MoveEntities{Date: i.opts.Date(), Moves: moves}}
	for _, sh := range st.moved {
		cmds = append(cmds, store.PutShape{Shape: sh})
	}
	i.apply(cmds...)
	i.toIdle()
}

func (i *Interaction) startDrawing(p Point) {
	id := ""
	if i.opts.NewShapeID != nil {
		id = i.opts.NewShapeID()
	}
	style := i.opts.Style
	sh := chart.Shape{
		ID:          id,
		Type:        i.tool,
		X:           p.X,
		Y:           p.Y,
		StrokeColor: style.StrokeColor,
		FillColor:   style.FillColor,
		StrokeWidth: style.StrokeWidth,
		Space:       chart.SpaceScreen,
	}
	switch i.tool {
	case chart.ShapeLine:
		sh.LinePoints = &chart.LinePoints{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
		sh.FillColor = ""
	case chart.ShapeText:
		sh.FontSize = style.FontSize
		sh.TextColor = style.TextColor
	}
	i.apply(store.SelectGraph{}, store.SelectShapes{})
	i.state = &drawingState{anchor: p, shape: sh}
	i.changed()
}

func (i *Interaction) finishDrawing(st *drawingState, p Point) {
	sh := drawTo(st.shape, st.anchor, p)
	keep := sh.Type == chart.ShapeLine || sh.Width > MinDraw || sh.Height > MinDraw
	if !keep {
		i.log.Debug("discarded shape below minimum size", "width", sh.Width, "height", sh.Height)
		i.toIdle()
		return
	}
	g := ToGraph(sh, i.surface)
	i.apply(
		store.PutShape{Shape: g},
		store.SelectShapes{IDs: []string{g.ID}},
		store.SelectGraph{},
	)
	i.tool = ""
	i.toIdle()
}

func (i *Interaction) finishMarquee(r Rect, ctrl bool) {
	var nodes []string
	for _, key := range i.surface.Nodes() {
		n, _ := i.surface.Node(key)
		if n.Hidden {
			continue
		}
		c := i.surface.GraphToViewport(Point{n.X, n.Y})
		closest := Point{clamp(c.X, r.X, r.X+r.Width), clamp(c.Y, r.Y, r.Y+r.Height)}
		if math.Hypot(c.X-closest.X, c.Y-closest.Y) <= n.Size {
			nodes = append(nodes, key)
		}
	}
	var shapes []string
	for _, sh := range i.screenShapes() {
		if IntersectsRect(sh, r) {
			shapes = append(shapes, sh.ID)
		}
	}
	mode := store.Replace
	if ctrl {
		mode = store.Add
	}
	i.apply(store.SelectGraph{IDs: nodes, Mode: mode}, store.SelectShapes{IDs: shapes, Mode: mode})
	i.toIdle()
}

// --- text editing ---

func (i *Interaction) startEditing(screen chart.Shape) {
	if i.opts.Editor == nil {
		i.invariant(fmt.Errorf("edit %s: no text editor", screen.ID))
		return
	}
	size := screen.FontSize
	if size == 0 {
		size = i.opts.Style.FontSize
	}
	st := &editingState{shapeID: screen.ID}
	st.disposers = []func(){
		i.surface.On(EventDocumentClick, func(ev Event) {
			if !ev.InsideEditor {
				i.commitText()
			}
		}),
		i.surface.On(EventKeyDown, func(ev Event) {
			if ev.KeyName == "Escape" {
				i.commitText()
			}
		}),
	}
	i.opts.Editor.Open(screen.ID, Bounds(screen), screen.Text, size)
	i.state = st
	i.changed()
}

func (i *Interaction) leaveEditing(st *editingState) {
	for _, d := range st.disposers {
		d()
	}
	st.disposers = nil
	i.opts.Editor.Close()
}

// commitText writes the editor content back into the shape, even when it
// is unchanged, and rescales the height from the editor's rendered height.
func (i *Interaction) commitText() {
	st, ok := i.state.(*editingState)
	if !ok {
		return
	}
	text := i.opts.Editor.Value()
	rendered := i.opts.Editor.RenderedHeight()
	i.leaveEditing(st)

	sh, ok := i.store.Shape(st.shapeID)
	if !ok {
		i.abort("shape " + st.shapeID + " removed")
		return
	}
	screen := ToScreen(sh, i.surface)
	sh.Text = text
	if rendered > 0 && screen.Height != 0 {
		sh.Height = rendered * sh.Height / screen.Height
	}
	i.apply(store.PutShape{Shape: sh})
	i.toIdle()
}

// --- keyboard ---

func (i *Interaction) onKeyDown(ev Event) {
	if ev.Ctrl && strings.EqualFold(ev.KeyName, "a") {
		keys := append(i.surface.Nodes(), i.surface.Edges()...)
		i.apply(store.SelectGraph{IDs: keys})
		i.changed()
	}
}

// --- rendering support ---

// OverlayState returns the transient shapes of the current gesture merged
// with the store's shapes and selection.
func (i *Interaction) OverlayState() OverlayState {
	out := OverlayState{
		Shapes:   i.store.Shapes(),
		Selected: make(map[string]bool),
		Live:     make(map[string]chart.Shape),
	}
	for _, id := range i.store.SelectedShapes() {
		out.Selected[id] = true
	}
	switch st := i.state.(type) {
	case *draggingState:
		for id, sh := range st.moved {
			out.Live[id] = ToScreen(sh, i.surface)
		}
	case *resizingState:
		out.Live[st.shapeID] = st.preview
	case *drawingState:
		sh := st.shape
		out.InProgress = &sh
	case *marqueeState:
		r := st.rect
		out.Marquee = &r
	case *editingState:
		// The editor covers the text while it is open.
		for idx, sh := range out.Shapes {
			if sh.ID == st.shapeID {
				out.Shapes[idx].Text = ""
			}
		}
	}
	return out
}

// Hover describes what lies under the pointer.
type Hover struct {
	Node   bool
	Shape  bool
	Handle Handle
}

// Cursor is a pure function of mode, tool and hover target.
func Cursor(m Mode, tool chart.ShapeType, h Hover) string {
	switch m {
	case ModeDragging:
		return "move"
	case ModePanning:
		return "grabbing"
	case ModeDrawing, ModeDrawingSelectionBox:
		return "crosshair"
	case ModeEditingText:
		return "text"
	}
	if tool != "" {
		return "crosshair"
	}
	switch h.Handle {
	case HandleTopLeft, HandleBotRight:
		return "nwse-resize"
	case HandleTopRight, HandleBotLeft:
		return "nesw-resize"
	case HandleLineStart, HandleLineEnd:
		return "crosshair"
	}
	if h.Shape {
		return "move"
	}
	if h.Node {
		return "pointer"
	}
	return "default"
}

// Cursor returns the cursor for the last known pointer position.
func (i *Interaction) Cursor() string {
	var h Hover
	if m := i.Mode(); m == ModeIdle || m == ModeResizing {
		if st, ok := i.state.(*resizingState); ok {
			h.Handle = st.handle
		} else {
			shapes := i.screenShapes()
			for idx := len(shapes) - 1; idx >= 0 && h.Handle == HandleNone; idx-- {
				if i.store.IsShapeSelected(shapes[idx].ID) {
					h.Handle = HandleAt(shapes[idx], i.pointer)
				}
			}
			h.Shape = ShapeAt(shapes, i.pointer) >= 0
			if picker, ok := i.surface.(interface{ NodeAt(Point) string }); ok {
				h.Node = picker.NodeAt(i.pointer) != ""
			}
		}
	}
	return Cursor(i.Mode(), i.tool, h)
}
