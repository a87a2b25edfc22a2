package chartstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/metrics"
)

func person(id, label string) chart.Entity {
	return chart.Entity{Object: chart.Object{ID: id, TypeID: "person", LabelShort: label}}
}

func knows(id, from, to string) chart.Link {
	return chart.Link{
		Object:       chart.Object{ID: id, TypeID: "knows"},
		FromEntityID: from, FromEntityTypeID: "person",
		ToEntityID: to, ToEntityTypeID: "person",
		Direction: chart.DirectionTo,
	}
}

func sampleFile() chart.SaveFile {
	return chart.SaveFile{
		Entities: []chart.Entity{person("a", "Alice"), person("b", "Bob"), person("c", "Carol")},
		Links:    []chart.Link{knows("l1", "a", "b")},
		Shapes: []chart.Shape{{
			ID: "s1", Type: chart.ShapeRectangle, Width: 10, Height: 10, Space: chart.SpaceGraph,
		}},
		Context: "filename:test.json",
	}
}

func TestCreateSeedsEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemory(), nil)

	c, err := svc.Create(ctx, "case 1")
	require.NoError(t, err)
	assert.Contains(t, c.ID, "chart_")

	snap, err := svc.Load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Empty(t, snap.File.Entities)
	name, _ := chart.ContextGet(snap.File.Context, "filename")
	assert.Equal(t, "case 1", name)
}

func TestSaveAndLoadVersions(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewCollector("test")
	svc := NewService(NewMemory(), m)
	c, err := svc.Create(ctx, "case")
	require.NoError(t, err)

	v, err := svc.Save(ctx, c.ID, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	snap, err := svc.Load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)
	assert.Len(t, snap.File.Entities, 3)
	assert.Equal(t, chart.SpaceGraph, snap.File.Shapes[0].Space)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChartsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBOperations.WithLabelValues("save", "ok")))
}

func TestSaveRejectsInvalidFile(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewCollector("test")
	svc := NewService(NewMemory(), m)
	c, err := svc.Create(ctx, "case")
	require.NoError(t, err)

	bad := sampleFile()
	bad.Links[0].FromEntityID = ""
	_, err = svc.Save(ctx, c.ID, bad)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBOperations.WithLabelValues("save", "error")))

	_, err = svc.Save(ctx, "chart_missing", sampleFile())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetListDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemory(), nil)
	a, _ := svc.Create(ctx, "a")
	_, _ = svc.Create(ctx, "b")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
	_, err = svc.Load(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemory(), nil)
	c, _ := svc.Create(ctx, "case")
	_, err := svc.Save(ctx, c.ID, sampleFile())
	require.NoError(t, err)

	b, err := svc.Search(ctx, c.ID, "ALI")
	require.NoError(t, err)
	require.Len(t, b.Links, 1)
	ids := []string{}
	for _, e := range b.Entities {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids, "link endpoints come along")

	b, err = svc.Search(ctx, c.ID, "carol")
	require.NoError(t, err)
	assert.Empty(t, b.Links)
	require.Len(t, b.Entities, 1)

	b, err = svc.Search(ctx, c.ID, "  ")
	require.NoError(t, err)
	assert.Empty(t, b.Entities)
}

func TestBinding(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemory(), nil)
	c, _ := svc.Create(ctx, "case")
	bind := svc.Bind(c.ID)

	require.NoError(t, bind.Save(ctx, sampleFile()))
	b, err := bind.Search(ctx, "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, b.Entities)
}
