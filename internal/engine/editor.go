package engine

// BufferEditor is a TextEditor without a DOM. It wraps text with a
// Measurer to report its rendered height, and is used headless and in
// tests.
type BufferEditor struct {
	measurer Measurer
	open     bool
	shapeID  string
	box      Rect
	size     float64
	value    string
}

func NewBufferEditor(m Measurer) *BufferEditor {
	return &BufferEditor{measurer: m}
}

func (b *BufferEditor) Open(shapeID string, box Rect, text string, fontSize float64) {
	b.open = true
	b.shapeID = shapeID
	b.box = box
	b.size = fontSize
	b.value = text
}

// SetValue replaces the text, as typing would.
func (b *BufferEditor) SetValue(s string) { b.value = s }

func (b *BufferEditor) Value() string { return b.value }

func (b *BufferEditor) RenderedHeight() float64 {
	if b.measurer == nil {
		return 0
	}
	lines := WrapText(b.value, b.box.Width-2*textPadding, 1e9, b.size, b.measurer)
	return float64(len(lines))*b.measurer.LineHeight(b.size) + 2*textPadding
}

func (b *BufferEditor) Close() { b.open = false }

// IsOpen reports whether the editor is shown and for which shape.
func (b *BufferEditor) IsOpen() (string, bool) { return b.shapeID, b.open }
