package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/history"
	"github.com/mla/mla/chart-go/internal/store"
)

// Saver persists a chart snapshot.
type Saver interface {
	Save(ctx context.Context, file chart.SaveFile) error
}

// Searcher runs a free-form query against a remote chart source.
type Searcher interface {
	Search(ctx context.Context, query string) (chart.Batch, error)
}

// Importer turns raw text into a batch of chart objects.
type Importer interface {
	Import(ctx context.Context, raw []byte) (chart.Batch, error)
}

// Notifier shows collaborator failures to the user.
type Notifier interface {
	Notify(err error)
}

// Options configures an Engine.
type Options struct {
	Width, Height float64
	Catalog       Catalog
	Editor        TextEditor
	Notifier      Notifier
	Style         ShapeStyle
	Strict        bool
	Logger        *slog.Logger
	Now           func() time.Time
	NewShapeID    func() string
	Cadence       time.Duration
}

// Engine is the chart editor core. It owns the rendered graph, the
// interaction machine, playback and layout animation over one session
// store. It is not safe for concurrent use; store changes from other
// goroutines only mark it dirty.
type Engine struct {
	store       *store.Store
	stage       *Stage
	projection  *Projection
	interaction *Interaction
	overlay     *Overlay
	animator    *Animator
	player      *history.Player
	raster      *Rasterizer

	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	strict   bool

	// Dirty flag - rendered graph needs re-projection
	dirty     atomic.Bool
	disposers []func()
}

// New creates an engine over st.
func New(st *store.Store, opts Options) (*Engine, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 800, 600
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	measurer, err := NewFontMeasurer()
	if err != nil {
		return nil, err
	}
	raster, err := NewRasterizer()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    st,
		stage:    NewStage(opts.Width, opts.Height),
		overlay:  NewOverlay(measurer),
		raster:   raster,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
		strict:   opts.Strict,
		player:   history.NewPlayer(history.StartOfDay(opts.Now())),
	}
	if opts.Cadence > 0 {
		e.player.SetCadence(opts.Cadence)
	}
	e.projection = NewProjection(e.stage, opts.Catalog)
	e.animator = NewAnimator(e.stage)
	e.interaction = NewInteraction(st, e.stage, InteractionOptions{
		Editor:     opts.Editor,
		Style:      opts.Style,
		Date:       e.player.Date,
		NewShapeID: opts.NewShapeID,
		Strict:     opts.Strict,
		Logger:     opts.Logger,
		OnAbort:    func() { e.dirty.Store(true) },
	})
	e.disposers = append(e.disposers, st.Subscribe(func(c store.Change) {
		if c.Graph {
			e.dirty.Store(true)
		}
	}))
	e.dirty.Store(true)
	e.Sync()
	return e, nil
}

// Close releases every listener, including those of an open text editor.
func (e *Engine) Close() {
	e.animator.Cancel()
	e.interaction.Close()
	for _, d := range e.disposers {
		d()
	}
	e.disposers = nil
}

func (e *Engine) Store() *store.Store                { return e.store }
func (e *Engine) Stage() *Stage                      { return e.stage }
func (e *Engine) Interaction() *Interaction          { return e.interaction }
func (e *Engine) Player() *history.Player            { return e.player }
func (e *Engine) Animator() *Animator                { return e.animator }
func (e *Engine) Mode() Mode                         { return e.interaction.Mode() }
func (e *Engine) Cursor() string                     { return e.interaction.Cursor() }
func (e *Engine) Date() time.Time                    { return e.player.Date() }
func (e *Engine) SetCatalog(c Catalog)               { e.projection.catalog = c; e.dirty.Store(true) }
func (e *Engine) Viewport() Viewport                 { return e.stage.Viewport() }
func (e *Engine) SetCamera(c Camera)                 { e.stage.SetCamera(c) }
func (e *Engine) ToScreen(s chart.Shape) chart.Shape { return ToScreen(s, e.stage) }

// Sync re-projects the store onto the rendered graph if it changed.
func (e *Engine) Sync() {
	if !e.dirty.Swap(false) {
		return
	}
	e.projection.Sync(e.store.Slice(e.player.Date()))
	e.player.SetBoundaries(e.store.Boundaries())
}

// --- Commands (host → engine) ---

// PointerDown forwards a press to the surface, which picks its target.
func (e *Engine) PointerDown(x, y float64, button Button, ctrl, shift bool, clicks int) {
	e.Sync()
	e.stage.PointerDown(Event{Point: Point{x, y}, Button: button, Ctrl: ctrl, Shift: shift, Clicks: clicks})
}

func (e *Engine) PointerMove(x, y float64) {
	e.stage.Emit(Event{Kind: EventMove, Point: Point{x, y}})
}

func (e *Engine) PointerUp(x, y float64, button Button, ctrl bool) {
	e.stage.Emit(Event{Kind: EventUp, Point: Point{x, y}, Button: button, Ctrl: ctrl})
	e.Sync()
}

// KeyDown forwards a key press. Delete removes the selection when idle.
func (e *Engine) KeyDown(key string, ctrl bool) {
	e.stage.Emit(Event{Kind: EventKeyDown, KeyName: key, Ctrl: ctrl})
	if (key == "Delete" || key == "Backspace") && e.Mode() == ModeIdle {
		e.DeleteSelection()
	}
}

// DocumentClick reports a click anywhere in the host document.
func (e *Engine) DocumentClick(insideEditor bool) {
	e.stage.Emit(Event{Kind: EventDocumentClick, InsideEditor: insideEditor})
}

func (e *Engine) Resize(w, h float64) {
	e.stage.Resize(w, h)
}

// SetTool activates a drawing tool by name; "" clears it.
func (e *Engine) SetTool(name string) error {
	t := chart.ShapeType(name)
	switch t {
	case "", chart.ShapeRectangle, chart.ShapeEllipse, chart.ShapeText, chart.ShapeLine:
		e.interaction.SetTool(t)
		return nil
	}
	return fmt.Errorf("unknown tool %q", name)
}

// DeleteSelection removes every selected shape and chart object.
func (e *Engine) DeleteSelection() {
	cmds := []store.Command{store.DeleteShapes{IDs: e.store.SelectedShapes()}}
	for _, key := range e.store.SelectedGraph() {
		if k, isLink, ok := e.store.Lookup(key); ok {
			cmds = append(cmds, store.RemoveObject{Key: k, Link: isLink})
		}
	}
	if err := e.store.Apply(cmds...); err != nil {
		e.log.Warn("delete selection failed", "error", err)
	}
	e.Sync()
}

// SetDate moves the chart to another date.
func (e *Engine) SetDate(d time.Time) {
	e.player.SetDate(d)
	e.dirty.Store(true)
	e.Sync()
}

// Play starts timeline playback.
func (e *Engine) Play(dir history.PlayDirection) {
	e.player.Play(dir, e.now())
}

// Pause stops playback.
func (e *Engine) Pause() {
	e.player.Pause()
}

// Tick advances playback and any layout animation, then renders.
// This is called once per animation frame from the host.
func (e *Engine) Tick() []DrawCommand {
	if e.player.Tick(e.now()) {
		e.dirty.Store(true)
	}
	e.Sync()
	e.animator.Step()
	return e.Render()
}

// StartLayout runs a named layout ("circular", "tree" or "force"),
// replacing any running one. Nodes move over frames ticks shaped by
// easing. Final positions are committed to the store. Outside strict mode
// a failing layout is logged and ignored.
func (e *Engine) StartLayout(name, root string, frames int, easing Easing) error {
	e.Sync()
	var l Layout
	switch name {
	case "circular":
		l = Circular{}
	case "tree":
		l = Tree{Root: root}
	case "force":
		l = Force{}
	default:
		return fmt.Errorf("unknown layout %q", name)
	}
	easing, err := ParseEasing(string(easing))
	if err != nil {
		return err
	}
	if frames <= 0 {
		frames = DefaultLayoutFrames
	}
	err = e.animator.Start(l, frames, easing, e.commitPositions)
	if err != nil && !e.strict {
		e.log.Warn("layout skipped", "layout", name, "error", err)
		return nil
	}
	return err
}

// CancelLayout stops the running layout animation, if any.
func (e *Engine) CancelLayout() {
	e.animator.Cancel()
}

func (e *Engine) commitPositions(pos map[string]Point) {
	moves := make(map[chart.Key]store.Position, len(pos))
	for key, p := range pos {
		if k, isLink, ok := e.store.Lookup(key); ok && !isLink {
			moves[k] = store.Position{X: p.X, Y: p.Y}
		}
	}
	if err := e.store.Apply(store.MoveEntities{Date: e.player.Date(), Moves: moves}); err != nil {
		e.log.Warn("commit layout failed", "error", err)
	}
}

// FitView frames the visible nodes and resets the camera.
func (e *Engine) FitView() {
	e.Sync()
	b := e.stage.GraphBounds()
	for _, sh := range e.store.Shapes() {
		b = b.Union(Bounds(sh))
	}
	e.stage.SetFrame(FrameFor(b.Expand(DefaultNodeSize * 4)))
	e.stage.SetCamera(DefaultCamera())
}

// --- Collaborators ---

func (e *Engine) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	e.log.Error("collaborator failed", "op", op, "error", err)
	if e.notifier != nil {
		e.notifier.Notify(err)
	}
	return err
}

// Save hands the current snapshot to s. The snapshot is taken before the
// call so later edits cannot leak into it.
func (e *Engine) Save(ctx context.Context, s Saver) error {
	file := e.store.Snapshot()
	if err := s.Save(ctx, file); err != nil {
		return e.fail("save", err)
	}
	return nil
}

// Search merges the results of a remote query into the chart.
func (e *Engine) Search(ctx context.Context, s Searcher, query string) error {
	batch, err := s.Search(ctx, query)
	if err != nil {
		return e.fail("search", err)
	}
	return e.merge("search", batch)
}

// Import merges the batch an importer produced from raw.
func (e *Engine) Import(ctx context.Context, im Importer, raw []byte) error {
	batch, err := im.Import(ctx, raw)
	if err != nil {
		return e.fail("import", err)
	}
	return e.merge("import", batch)
}

func (e *Engine) merge(op string, batch chart.Batch) error {
	if batch.ErrorMessage != "" {
		return e.fail(op, errors.New(batch.ErrorMessage))
	}
	if err := chart.ValidateBatch(batch); err != nil {
		return e.fail(op, err)
	}
	if err := e.store.Apply(store.MergeBatch{Batch: batch}); err != nil {
		return e.fail(op, err)
	}
	e.Sync()
	return nil
}

// Load replaces the chart with a saved file and fits the view.
func (e *Engine) Load(file chart.SaveFile) error {
	if err := e.store.Apply(store.Load{File: file}); err != nil {
		return e.fail("load", err)
	}
	e.animator.Cancel()
	e.FitView()
	return nil
}

// --- Queries (engine → host) ---

// Render compiles the graph and the annotation overlay into draw commands.
func (e *Engine) Render() []DrawCommand {
	commands := CompileGraph(e.stage)
	for _, key := range e.store.SelectedGraph() {
		if n, ok := e.stage.Node(key); ok && !n.Hidden {
			c := e.stage.GraphToViewport(Point{n.X, n.Y})
			r := Rect{X: c.X - n.Size - 3, Y: c.Y - n.Size - 3, Width: 2*n.Size + 6, Height: 2*n.Size + 6}
			commands = append(commands, DrawCommand{
				Op:          "path",
				ObjectID:    key,
				Path:        ellipsePath(r),
				Stroke:      selectionColor,
				StrokeWidth: 2,
			})
		}
	}
	return append(commands, e.RenderOverlay()...)
}

// RenderOverlay compiles only the annotation layer.
func (e *Engine) RenderOverlay() []DrawCommand {
	return e.overlay.Compile(e.interaction.OverlayState(), e.stage)
}

// RenderPNG rasterizes the current view.
func (e *Engine) RenderPNG(w io.Writer) error {
	width, height := e.stage.Size()
	return e.raster.EncodePNG(w, e.Render(), int(width), int(height))
}

// GraphJSON returns the rendered nodes and edges for a host-side renderer.
func (e *Engine) GraphJSON() string {
	type node struct {
		Key string `json:"key"`
		NodeAttrs
	}
	type edge struct {
		Key string `json:"key"`
		EdgeAttrs
	}
	out := struct {
		Nodes []node `json:"nodes"`
		Edges []edge `json:"edges"`
	}{Nodes: []node{}, Edges: []edge{}}
	for _, key := range e.stage.Nodes() {
		a, _ := e.stage.Node(key)
		out.Nodes = append(out.Nodes, node{Key: key, NodeAttrs: a})
	}
	for _, key := range e.stage.Edges() {
		a, _ := e.stage.Edge(key)
		out.Edges = append(out.Edges, edge{Key: key, EdgeAttrs: a})
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// SelectionJSON returns both selection sets.
func (e *Engine) SelectionJSON() string {
	data, _ := json.Marshal(map[string][]string{
		"graph":  e.store.SelectedGraph(),
		"shapes": e.store.SelectedShapes(),
	})
	return string(data)
}

// PlaybackJSON returns the current playback state.
func (e *Engine) PlaybackJSON() string {
	data, _ := json.Marshal(map[string]interface{}{
		"date":       e.player.Date(),
		"playing":    e.player.IsPlaying(),
		"boundaries": e.store.Boundaries(),
	})
	return string(data)
}
