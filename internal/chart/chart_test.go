package chart

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextGetSetMerge(t *testing.T) {
	ctx := "filename:foo.json,source:import"

	v, ok := ContextGet(ctx, "filename")
	require.True(t, ok)
	assert.Equal(t, "foo.json", v)

	_, ok = ContextGet(ctx, "missing")
	assert.False(t, ok)

	ctx = ContextSet(ctx, "filename", "bar.json")
	assert.Equal(t, "filename:bar.json,source:import", ctx)

	ctx = ContextSet(ctx, "user", "ana")
	assert.Equal(t, "filename:bar.json,source:import,user:ana", ctx)

	merged := ContextMerge("", "a:1,b:2")
	assert.Equal(t, "a:1,b:2", merged)

	merged = ContextMerge(merged, "b:3,c:4")
	assert.Equal(t, "a:1,b:3,c:4", merged)
}

func TestObjectIsEvent(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Object{}.IsEvent(), "both bounds open means always")
	assert.True(t, Object{DateFrom: &d1, DateTo: &d1}.IsEvent())
	assert.False(t, Object{DateFrom: &d1, DateTo: &d2}.IsEvent())
	assert.False(t, Object{DateFrom: &d1}.IsEvent())
}

func TestShapeTranslateMovesLineEndpoints(t *testing.T) {
	s := Shape{
		ID: "s1", Type: ShapeLine, X: 10, Y: 10, Width: 20, Height: 20,
		LinePoints: &LinePoints{X1: 10, Y1: 10, X2: 30, Y2: 30},
	}
	moved := s.Translate(-5, -5)

	assert.Equal(t, 5.0, moved.X)
	assert.Equal(t, LinePoints{X1: 5, Y1: 5, X2: 25, Y2: 25}, *moved.LinePoints)
	assert.Equal(t, 10.0, s.LinePoints.X1, "original must not be mutated")
}

func TestValidate(t *testing.T) {
	err := Validate(Shape{ID: "s1", Type: "hexagon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of")

	err = Validate(Shape{ID: "s1", Type: ShapeLine})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LinePoints is required")

	err = Validate(Link{Object: Object{ID: "l1", TypeID: "knows"}, FromEntityID: "a"})
	require.Error(t, err)

	assert.NoError(t, Validate(Entity{Object: Object{ID: "e1", TypeID: "person"}}))
}

func TestValidateBatch(t *testing.T) {
	b := Batch{
		Entities: []Entity{{Object: Object{ID: "e1", TypeID: "person"}}},
		Events:   []Entity{{Object: Object{ID: "", TypeID: "meeting"}}},
	}
	err := ValidateBatch(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 0")
}

func TestSaveFileFieldNames(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	file := SaveFile{
		Entities: []Entity{{Object: Object{ID: "a", TypeID: "person", GID: 3, PosX: 1, PosY: 2, DateFrom: &from}}},
		Links: []Link{{Object: Object{ID: "l", TypeID: "knows", GID: 4},
			FromEntityID: "a", FromEntityTypeID: "person", ToEntityID: "b", ToEntityTypeID: "person", Direction: DirectionTo}},
		Shapes: []Shape{{ID: "s", Type: ShapeLine, Space: SpaceGraph, LinePoints: &LinePoints{X2: 5}}},
	}
	data, err := json.Marshal(file)
	require.NoError(t, err)

	var raw struct {
		Entities []map[string]any
		Links    []map[string]any
		Shapes   []map[string]any
		Context  *string
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotNil(t, raw.Context)
	entity, link, shape := raw.Entities[0], raw.Links[0], raw.Shapes[0]
	for _, key := range []string{"Id", "TypeId", "GID", "PosX", "PosY", "DateFrom"} {
		assert.Contains(t, entity, key)
	}
	for _, key := range []string{"FromEntityId", "FromEntityTypeId", "ToEntityId", "ToEntityTypeId", "Direction"} {
		assert.Contains(t, link, key)
	}
	for _, key := range []string{"id", "type", "linePoints", "inGraphCoordinates"} {
		assert.Contains(t, shape, key)
	}

	var back SaveFile
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, int64(3), back.Entities[0].GID)
	assert.True(t, back.Entities[0].DateFrom.Equal(from))
}
