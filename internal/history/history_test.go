package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func entity(gid int64, from, to *time.Time) chart.Entity {
	return chart.Entity{Object: chart.Object{ID: "e1", TypeID: "person", GID: gid, DateFrom: from, DateTo: to}}
}

func TestCurrentStartInclusive(t *testing.T) {
	versions := []chart.Entity{
		entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 6, 1))),
		entity(2, ptr(day(2024, 6, 1)), nil),
	}

	v, ok := Current(versions, day(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.GID)

	v, ok = Current(versions, day(2025, 1, 1))
	require.True(t, ok)
	assert.Equal(t, int64(2), v.GID)

	v, ok = Current(versions, day(2024, 6, 1))
	require.True(t, ok)
	assert.Equal(t, int64(2), v.GID)

	_, ok = Current(versions, day(2023, 12, 31))
	assert.False(t, ok, "before the first bounded start nothing is current")
}

func TestCurrentOpenStartAndGap(t *testing.T) {
	versions := []chart.Entity{
		entity(1, nil, ptr(day(2024, 1, 1))),
		entity(2, ptr(day(2024, 3, 1)), ptr(day(2024, 4, 1))),
	}

	v, ok := Current(versions, day(1900, 1, 1))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.GID)

	_, ok = Current(versions, day(2024, 2, 1))
	assert.False(t, ok, "gap between bounded versions")

	_, ok = Current(versions, day(2024, 4, 1))
	assert.False(t, ok, "end is exclusive")
}

func TestCurrentExactlyOneInsideUnion(t *testing.T) {
	versions := []chart.Entity{
		entity(1, nil, ptr(day(2024, 1, 1))),
		entity(2, ptr(day(2024, 1, 1)), ptr(day(2024, 2, 1))),
		entity(3, ptr(day(2024, 2, 1)), nil),
	}
	for d := day(2023, 12, 1); d.Before(day(2024, 3, 1)); d = d.Add(12 * time.Hour) {
		count := 0
		for _, v := range versions {
			from, to := v.Span()
			if Contains(from, to, d) {
				count++
			}
		}
		assert.Equal(t, 1, count, "date %s", d)
		_, ok := Current(versions, d)
		assert.True(t, ok)
	}
}

func TestEventVersions(t *testing.T) {
	at := day(2024, 5, 5)
	always := entity(1, nil, nil)
	instant := entity(2, ptr(at), ptr(at))

	assert.True(t, IsEvent(always))
	assert.True(t, IsEvent(instant))

	_, ok := Current([]chart.Entity{always}, day(1999, 1, 1))
	assert.True(t, ok)

	_, ok = Current([]chart.Entity{instant}, at)
	assert.True(t, ok)
	_, ok = Current([]chart.Entity{instant}, at.Add(time.Hour))
	assert.False(t, ok)
}

func TestSplitClosesPrevious(t *testing.T) {
	today := time.Date(2024, 7, 10, 15, 30, 0, 0, time.UTC)

	closed, next, err := Split(entity(1, ptr(day(2024, 1, 1)), nil), today)
	require.NoError(t, err)
	require.NotNil(t, closed.DateTo)
	assert.Equal(t, day(2024, 7, 10), *closed.DateTo)
	assert.Equal(t, day(2024, 7, 10), *next.DateFrom)
	assert.Nil(t, next.DateTo)
	assert.False(t, Overlaps([]chart.Entity{closed}, entity(2, next.DateFrom, next.DateTo)))

	closed, next, err = Split(entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 2, 1))), today)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 1), *closed.DateTo)
	assert.Equal(t, day(2024, 2, 1), *next.DateFrom)

	_, _, err = Split(entity(1, ptr(day(2025, 1, 1)), nil), today)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestToHistoryAndToEvent(t *testing.T) {
	now := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	ev := entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 1, 1)))

	h := ToHistory(ev, now)
	assert.Equal(t, now, *h.DateFrom)
	assert.Nil(t, h.DateTo)
	assert.False(t, IsEvent(h))

	back := ToEvent(entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 9, 1))))
	assert.True(t, IsEvent(back))
	assert.Equal(t, day(2024, 1, 1), *back.DateTo)
}

func TestClampSpan(t *testing.T) {
	v := ClampSpan(entity(1, ptr(day(2024, 9, 1)), ptr(day(2024, 3, 1))))
	assert.Equal(t, day(2024, 3, 1), *v.DateFrom)
}

func TestOverlaps(t *testing.T) {
	versions := []chart.Entity{
		entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 6, 1))),
	}
	assert.False(t, Overlaps(versions, entity(2, ptr(day(2024, 6, 1)), nil)))
	assert.True(t, Overlaps(versions, entity(2, ptr(day(2024, 5, 1)), nil)))
	assert.True(t, Overlaps(versions, entity(2, nil, nil)), "an always-valid version overlaps every other version")
	assert.False(t, Overlaps(versions, entity(1, nil, nil)), "same version id is ignored")
}

func TestRemove(t *testing.T) {
	versions := []chart.Entity{entity(1, nil, nil), entity(2, nil, nil)}
	out, ok := Remove(versions, 1)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].GID)

	_, ok = Remove(versions, 9)
	assert.False(t, ok)
}

func TestBoundariesAndStep(t *testing.T) {
	versions := []chart.Entity{
		entity(1, ptr(day(2024, 1, 1)), ptr(day(2024, 1, 11))),
		entity(2, ptr(day(2024, 1, 11)), ptr(day(2024, 1, 31))),
	}
	b := Boundaries(versions)
	require.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 11), day(2024, 1, 31)}, b)

	d, ok := Step(b, day(2024, 1, 1), Forward)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 11), d)

	d, ok = Step(b, d, Forward)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 31), d)

	_, ok = Step(b, d, Forward)
	assert.False(t, ok)

	d, ok = Step(b, day(2024, 1, 31), Backward)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 11), d)

	_, ok = Step(b, day(2024, 1, 1), Backward)
	assert.False(t, ok)

	d, ok = Step(b, day(2023, 6, 1), Forward)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 1), d)
}

func TestPlayerStopsAtEnd(t *testing.T) {
	b := []time.Time{day(2024, 1, 1), day(2024, 1, 2)}
	p := NewPlayer(day(2024, 1, 1))
	p.SetBoundaries(b)
	p.SetCadence(time.Second)

	start := time.Unix(0, 0)
	p.Play(Forward, start)

	assert.False(t, p.Tick(start.Add(500*time.Millisecond)), "cadence not yet elapsed")
	assert.True(t, p.Tick(start.Add(time.Second)))
	assert.Equal(t, day(2024, 1, 2), p.Date())

	assert.False(t, p.Tick(start.Add(2*time.Second)))
	assert.False(t, p.IsPlaying())
}
