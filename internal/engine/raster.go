package engine

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Rasterizer replays draw commands onto an image.
type Rasterizer struct {
	font  *truetype.Font
	faces map[float64]font.Face
}

// NewRasterizer loads the embedded Go Regular font for text commands.
func NewRasterizer() (*Rasterizer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Rasterizer{font: f, faces: make(map[float64]font.Face)}, nil
}

func (r *Rasterizer) face(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[size] = f
	return f
}

// Rasterize draws commands in order on a white canvas of the given size.
func (r *Rasterizer) Rasterize(commands []DrawCommand, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	for _, cmd := range commands {
		switch cmd.Op {
		case "path":
			r.path(dc, cmd)
		case "text":
			r.text(dc, cmd)
		}
	}
	return dc.Image()
}

// EncodePNG rasterizes commands and writes them as PNG.
func (r *Rasterizer) EncodePNG(w io.Writer, commands []DrawCommand, width, height int) error {
	dc := gg.NewContextForImage(r.Rasterize(commands, width, height))
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *Rasterizer) path(dc *gg.Context, cmd DrawCommand) {
	dc.ClearPath()
	for _, pc := range cmd.Path {
		if len(pc) == 0 {
			continue
		}
		op, _ := pc[0].(string)
		switch op {
		case "M":
			if len(pc) >= 3 {
				dc.MoveTo(toFloat64(pc[1]), toFloat64(pc[2]))
			}
		case "L":
			if len(pc) >= 3 {
				dc.LineTo(toFloat64(pc[1]), toFloat64(pc[2]))
			}
		case "Q":
			if len(pc) >= 5 {
				dc.QuadraticTo(toFloat64(pc[1]), toFloat64(pc[2]), toFloat64(pc[3]), toFloat64(pc[4]))
			}
		case "C":
			if len(pc) >= 7 {
				dc.CubicTo(toFloat64(pc[1]), toFloat64(pc[2]), toFloat64(pc[3]), toFloat64(pc[4]), toFloat64(pc[5]), toFloat64(pc[6]))
			}
		case "Z":
			dc.ClosePath()
		}
	}

	if paintable(cmd.Fill) {
		dc.SetHexColor(cmd.Fill)
		dc.FillPreserve()
	}
	if paintable(cmd.Stroke) {
		dc.SetHexColor(cmd.Stroke)
		w := cmd.StrokeWidth
		if w == 0 {
			w = 1
		}
		dc.SetLineWidth(w)
		dc.SetDash(cmd.Dash...)
		dc.StrokePreserve()
		dc.SetDash()
	}
	dc.ClearPath()
}

func (r *Rasterizer) text(dc *gg.Context, cmd DrawCommand) {
	size := cmd.FontSize
	if size == 0 {
		size = defaultFont
	}
	dc.SetFontFace(r.face(size))
	fill := cmd.Fill
	if !paintable(fill) {
		fill = "#000000"
	}
	dc.SetHexColor(fill)
	dc.DrawString(cmd.Text, cmd.X, cmd.Y)
}

func paintable(c string) bool {
	return c != "" && c != "transparent" && c != "none" && strings.HasPrefix(c, "#")
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
