package engine

import (
	"encoding/json"
	"math"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
// All coordinates are viewport pixels.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "path" or "text"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Dash        []float64     `json:"dash,omitempty"`        // Line dash pattern
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	Text        string        `json:"text,omitempty"`        // Text for "text" ops
	X           float64       `json:"x,omitempty"`           // Text baseline origin
	Y           float64       `json:"y,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	FontFamily  string        `json:"fontFamily,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []interface{}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// rectPath generates path commands for a rectangle.
func rectPath(r Rect) []PathCommand {
	x, y, w, h := r.X, r.Y, r.Width, r.Height
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// ellipsePath generates path commands for the ellipse inscribed in r using
// bezier curves.
func ellipsePath(r Rect) []PathCommand {
	c := r.Center()
	rx, ry := r.Width/2, r.Height/2

	// Magic number for bezier approximation of a circle/ellipse
	// k = 4 * (sqrt(2) - 1) / 3 ≈ 0.5522847498
	k := 0.5522847498
	kx, ky := rx*k, ry*k
	cx, cy := c.X, c.Y

	// Four bezier curves to approximate an ellipse
	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

func linePath(a, b Point) []PathCommand {
	return []PathCommand{
		{"M", a.X, a.Y},
		{"L", b.X, b.Y},
	}
}

// curvePath draws a quadratic edge whose control point is offset from the
// midpoint by curvature times half the edge length.
func curvePath(a, b Point, curvature float64) []PathCommand {
	mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || curvature == 0 {
		return linePath(a, b)
	}
	nx, ny := -dy/length, dx/length
	off := curvature * length / 2
	return []PathCommand{
		{"M", a.X, a.Y},
		{"Q", mx + nx*off, my + ny*off, b.X, b.Y},
	}
}

// arrowPath draws an arrow head at tip pointing away from from.
func arrowPath(from, tip Point, size float64) []PathCommand {
	angle := math.Atan2(tip.Y-from.Y, tip.X-from.X)
	left := Point{tip.X - size*math.Cos(angle-math.Pi/6), tip.Y - size*math.Sin(angle-math.Pi/6)}
	right := Point{tip.X - size*math.Cos(angle+math.Pi/6), tip.Y - size*math.Sin(angle+math.Pi/6)}
	return []PathCommand{
		{"M", tip.X, tip.Y},
		{"L", left.X, left.Y},
		{"L", right.X, right.Y},
		{"Z"},
	}
}

// CompileGraph emits draw commands for every visible edge and node of the
// stage, edges first.
func CompileGraph(s *Stage) []DrawCommand {
	var commands []DrawCommand
	for _, key := range s.Edges() {
		e, _ := s.Edge(key)
		if e.Hidden {
			continue
		}
		src, ok1 := s.Node(e.Source)
		dst, ok2 := s.Node(e.Target)
		if !ok1 || !ok2 || src.Hidden || dst.Hidden {
			continue
		}
		a := s.GraphToViewport(Point{src.X, src.Y})
		b := s.GraphToViewport(Point{dst.X, dst.Y})
		path := linePath(a, b)
		if e.Type == EdgeCurved {
			path = curvePath(a, b, e.Curvature)
		}
		commands = append(commands, DrawCommand{
			Op:          "path",
			ObjectID:    key,
			Path:        path,
			Stroke:      e.Color,
			StrokeWidth: e.Size,
		})
		if e.Arrow {
			tip := shorten(a, b, dst.Size)
			commands = append(commands, DrawCommand{
				Op:       "path",
				ObjectID: key,
				Path:     arrowPath(a, tip, 4*e.Size+4),
				Fill:     e.Color,
			})
		}
	}
	for _, key := range s.Nodes() {
		n, _ := s.Node(key)
		if n.Hidden {
			continue
		}
		c := s.GraphToViewport(Point{n.X, n.Y})
		r := Rect{X: c.X - n.Size, Y: c.Y - n.Size, Width: 2 * n.Size, Height: 2 * n.Size}
		commands = append(commands, DrawCommand{
			Op:       "path",
			ObjectID: key,
			Path:     ellipsePath(r),
			Fill:     n.Color,
		})
		if n.Label != "" {
			commands = append(commands, DrawCommand{
				Op:       "text",
				ObjectID: key,
				Text:     n.Label,
				X:        c.X + n.Size + 3,
				Y:        c.Y + 4,
				FontSize: 12,
				Fill:     "#000000",
			})
		}
	}
	return commands
}

// shorten moves b towards a by d.
func shorten(a, b Point, d float64) Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length <= d {
		return b
	}
	return Point{X: b.X - dx/length*d, Y: b.Y - dy/length*d}
}
