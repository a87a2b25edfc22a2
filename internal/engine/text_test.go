package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapText(t *testing.T) {
	m := gridMeasurer{}
	assert.Equal(t, []string{"aaa bbb", "ccc"}, WrapText("aaa bbb ccc", 7, 100, 14, m))
	assert.Equal(t, []string{"a", "", "b"}, WrapText("a\n\nb", 7, 100, 14, m))
	assert.Equal(t, []string{"toolongword"}, WrapText("toolongword", 3, 100, 14, m), "single words are never split")
	assert.Equal(t, []string{"aa", "bb"}, WrapText("aa bb cc dd", 2, 25, 14, m), "lines past the height are dropped")
	assert.Empty(t, WrapText("anything", 10, 5, 14, m))
}

func TestFontMeasurer(t *testing.T) {
	m, err := NewFontMeasurer()
	require.NoError(t, err)
	short := m.Measure("ab", 14)
	long := m.Measure("abcdef", 14)
	assert.Greater(t, short, 0.0)
	assert.Greater(t, long, short)
	assert.Greater(t, m.Measure("ab", 28), short)
	assert.Greater(t, m.LineHeight(14), 0.0)
}

func TestBufferEditorHeight(t *testing.T) {
	ed := NewBufferEditor(gridMeasurer{})
	ed.Open("t1", Rect{Width: 10 + 2*textPadding, Height: 40}, "aaaa bbbb cccc", 14)
	assert.Equal(t, 2*10+2*textPadding, ed.RenderedHeight())

	ed.SetValue("x")
	assert.Equal(t, 10+2*textPadding, ed.RenderedHeight())
	id, open := ed.IsOpen()
	assert.True(t, open)
	assert.Equal(t, "t1", id)
}
