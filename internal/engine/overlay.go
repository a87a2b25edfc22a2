package engine

import (
	"math"

	"github.com/mla/mla/chart-go/internal/chart"
)

const (
	selectionColor = "#1e90ff"
	textPadding    = 4.0
	defaultFont    = 14.0
)

var selectionDash = []float64{4, 4}

// OverlayState is everything the annotation layer draws in one pass.
// Shapes are graph space; Live and InProgress are already screen space.
type OverlayState struct {
	Shapes     []chart.Shape
	Selected   map[string]bool
	Live       map[string]chart.Shape
	InProgress *chart.Shape
	Marquee    *Rect
}

// Overlay compiles the annotation layer into draw commands.
type Overlay struct {
	measurer Measurer
}

func NewOverlay(m Measurer) *Overlay {
	return &Overlay{measurer: m}
}

// Compile repaints the whole layer, back to front. It never mutates st.
func (o *Overlay) Compile(st OverlayState, p Projector) []DrawCommand {
	var commands []DrawCommand
	for _, sh := range st.Shapes {
		screen, ok := st.Live[sh.ID]
		if !ok {
			screen = ToScreen(sh, p)
		}
		commands = append(commands, o.shape(screen)...)
		if st.Selected[sh.ID] {
			commands = append(commands, outline(screen)...)
			commands = append(commands, handleCommands(screen)...)
		}
	}
	if st.InProgress != nil {
		commands = append(commands, o.shape(*st.InProgress)...)
		commands = append(commands, outline(*st.InProgress)...)
	}
	if st.Marquee != nil {
		commands = append(commands, DrawCommand{
			Op:          "path",
			ObjectID:    "marquee",
			Path:        rectPath(*st.Marquee),
			Fill:        "#1e90ff1a",
			Stroke:      selectionColor,
			StrokeWidth: 1,
			Dash:        selectionDash,
		})
	}
	return commands
}

func (o *Overlay) shape(s chart.Shape) []DrawCommand {
	b := Bounds(s)
	switch s.Type {
	case chart.ShapeRectangle:
		return []DrawCommand{o.styled(s, rectPath(b))}
	case chart.ShapeEllipse:
		return []DrawCommand{o.styled(s, ellipsePath(b))}
	case chart.ShapeLine:
		if !s.IsLine() {
			return nil
		}
		lp := s.LinePoints
		cmd := o.styled(s, linePath(Point{lp.X1, lp.Y1}, Point{lp.X2, lp.Y2}))
		cmd.Fill = ""
		return []DrawCommand{cmd}
	case chart.ShapeText:
		return o.text(s, b)
	}
	return nil
}

func (o *Overlay) styled(s chart.Shape, path []PathCommand) DrawCommand {
	stroke := s.StrokeColor
	if stroke == "" {
		stroke = "#000000"
	}
	width := s.StrokeWidth
	if width == 0 {
		width = 2
	}
	return DrawCommand{
		Op:          "path",
		ObjectID:    s.ID,
		Path:        path,
		Fill:        s.FillColor,
		Stroke:      stroke,
		StrokeWidth: width,
	}
}

func (o *Overlay) text(s chart.Shape, b Rect) []DrawCommand {
	var commands []DrawCommand
	if s.FillColor != "" {
		commands = append(commands, DrawCommand{Op: "path", ObjectID: s.ID, Path: rectPath(b), Fill: s.FillColor})
	}
	if s.Text == "" || o.measurer == nil {
		return commands
	}
	size := s.FontSize
	if size == 0 {
		size = defaultFont
	}
	color := s.TextColor
	if color == "" {
		color = "#000000"
	}
	lh := o.measurer.LineHeight(size)
	lines := WrapText(s.Text, math.Max(0, b.Width-2*textPadding), b.Height-2*textPadding, size, o.measurer)
	for i, line := range lines {
		if line == "" {
			continue
		}
		commands = append(commands, DrawCommand{
			Op:         "text",
			ObjectID:   s.ID,
			Text:       line,
			X:          b.X + textPadding,
			Y:          b.Y + textPadding + float64(i+1)*lh,
			FontSize:   size,
			FontFamily: s.FontFamily,
			Fill:       color,
		})
	}
	return commands
}

func outline(s chart.Shape) []DrawCommand {
	return []DrawCommand{{
		Op:          "path",
		ObjectID:    s.ID,
		Path:        rectPath(Bounds(s)),
		Stroke:      selectionColor,
		StrokeWidth: 1,
		Dash:        selectionDash,
	}}
}

func handleCommands(s chart.Shape) []DrawCommand {
	hs := handles(s)
	commands := make([]DrawCommand, 0, len(hs))
	for _, h := range hs {
		commands = append(commands, DrawCommand{
			Op:          "path",
			ObjectID:    s.ID + ":" + string(h.handle),
			Path:        rectPath(HandleRect(h.at)),
			Fill:        "#ffffff",
			Stroke:      selectionColor,
			StrokeWidth: 1,
		})
	}
	return commands
}
