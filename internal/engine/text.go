package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Measurer reports the advance width of a string at a font size.
type Measurer interface {
	Measure(text string, size float64) float64
	LineHeight(size float64) float64
}

// FontMeasurer measures text with an OpenType face, caching one face per
// size.
type FontMeasurer struct {
	font  *opentype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses the embedded Go Regular font.
func NewFontMeasurer() (*FontMeasurer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontMeasurer{font: f, faces: make(map[float64]font.Face)}, nil
}

func (m *FontMeasurer) face(size float64) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil
	}
	m.faces[size] = f
	return f
}

func (m *FontMeasurer) Measure(text string, size float64) float64 {
	f := m.face(size)
	if f == nil {
		return float64(len(text)) * size * 0.6
	}
	return float64(font.MeasureString(f, text)) / 64
}

func (m *FontMeasurer) LineHeight(size float64) float64 {
	f := m.face(size)
	if f == nil {
		return size * 1.2
	}
	return math.Ceil(float64(f.Metrics().Height) / 64)
}

// WrapText splits text on newlines, then greedily word-wraps each line to
// width. Lines stop once their accumulated height would exceed maxHeight.
func WrapText(text string, width, maxHeight, size float64, m Measurer) []string {
	lh := m.LineHeight(size)
	var out []string
	full := func() bool { return float64(len(out)+1)*lh > maxHeight }

	for _, para := range strings.Split(text, "\n") {
		if full() {
			return out
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if line != "" && m.Measure(candidate, size) > width {
				out = append(out, line)
				if full() {
					return out
				}
				line = w
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}
