package engine

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/store"
)

func TestRasterizeFillsPath(t *testing.T) {
	r, err := NewRasterizer()
	require.NoError(t, err)
	img := r.Rasterize([]DrawCommand{
		{Op: "path", Path: rectPath(Rect{X: 10, Y: 10, Width: 20, Height: 20}), Fill: "#ff0000"},
		{Op: "text", Text: "hi", X: 50, Y: 50, FontSize: 12},
	}, 100, 100)

	assert.Equal(t, 100, img.Bounds().Dx())
	red, g, b, _ := img.At(20, 20).RGBA()
	assert.Equal(t, uint32(0xffff), red)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)

	red, g, b, _ = img.At(80, 20).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{red, g, b}, "background is white")
}

func TestRenderPNG(t *testing.T) {
	e, _ := newTestEngine(t)
	put(t, e,
		store.PutEntity{Entity: entity("a", 0, 0)},
		store.PutShape{Shape: rect("s1", 10, 10, 40, 40)},
	)

	var buf bytes.Buffer
	require.NoError(t, e.RenderPNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}
