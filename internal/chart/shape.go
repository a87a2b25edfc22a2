package chart

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeEllipse   ShapeType = "ellipse"
	ShapeText      ShapeType = "text"
	ShapeLine      ShapeType = "line"
)

// Space says which coordinate system a shape's numbers are expressed in.
// It is persisted as the inGraphCoordinates flag.
type Space bool

const (
	SpaceGraph  Space = true
	SpaceScreen Space = false
)

func (s Space) String() string {
	if s == SpaceGraph {
		return "graph"
	}
	return "screen"
}

type LinePoints struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Shape is a free-form annotation drawn on the overlay canvas. At rest a
// shape is in graph space; it is in screen space only while being drawn or
// dragged.
type Shape struct {
	ID          string      `json:"id" validate:"required"`
	Type        ShapeType   `json:"type" validate:"required,oneof=rectangle ellipse text line"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	StrokeColor string      `json:"strokeColor,omitempty"`
	FillColor   string      `json:"fillColor,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty" validate:"gte=0"`
	Text        string      `json:"text,omitempty"`
	FontSize    float64     `json:"fontSize,omitempty" validate:"gte=0"`
	FontFamily  string      `json:"fontFamily,omitempty"`
	TextColor   string      `json:"textColor,omitempty"`
	LinePoints  *LinePoints `json:"linePoints,omitempty" validate:"required_if=Type line"`
	Space       Space       `json:"inGraphCoordinates"`
}

// IsLine reports whether the shape is a line with endpoints.
func (s Shape) IsLine() bool {
	return s.Type == ShapeLine && s.LinePoints != nil
}

// Translate moves the shape by (dx, dy), including both line endpoints.
func (s Shape) Translate(dx, dy float64) Shape {
	s.X += dx
	s.Y += dy
	if s.LinePoints != nil {
		lp := *s.LinePoints
		lp.X1 += dx
		lp.Y1 += dy
		lp.X2 += dx
		lp.Y2 += dy
		s.LinePoints = &lp
	}
	return s
}

// Clone returns a copy that does not share the line points pointer.
func (s Shape) Clone() Shape {
	if s.LinePoints != nil {
		lp := *s.LinePoints
		s.LinePoints = &lp
	}
	return s
}
