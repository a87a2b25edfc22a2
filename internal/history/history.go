// Package history resolves versioned chart objects against a point in time
// and edits their validity intervals.
package history

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidSplit = errors.New("split instant precedes version start")
	ErrOverlap      = errors.New("version interval overlaps another version")
	ErrNotFound     = errors.New("version not found")
)

// Versioned is implemented by every chart object version.
type Versioned interface {
	Span() (from, to *time.Time)
	VersionID() int64
}

// Version is a Versioned value that can be copied with a new interval.
type Version[T any] interface {
	Versioned
	WithSpan(from, to *time.Time) T
}

// Contains reports whether d lies in [from, to). An open start extends to
// -inf and an open end to +inf. A zero-duration interval contains only its
// own instant.
func Contains(from, to *time.Time, d time.Time) bool {
	if from != nil && to != nil && from.Equal(*to) {
		return d.Equal(*from)
	}
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && !d.Before(*to) {
		return false
	}
	return true
}

// Current returns the version valid at d. When intervals overlap the one
// with the latest start wins; a gap between bounded versions yields none.
func Current[T Versioned](versions []T, d time.Time) (T, bool) {
	var (
		best  T
		found bool
		start *time.Time
	)
	for _, v := range versions {
		from, to := v.Span()
		if !Contains(from, to, d) {
			continue
		}
		if !found || laterStart(from, start) {
			best, found, start = v, true, from
		}
	}
	return best, found
}

func laterStart(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// IsEvent reports whether v has zero duration (both bounds absent included).
func IsEvent(v Versioned) bool {
	from, to := v.Span()
	if from == nil || to == nil {
		return from == nil && to == nil
	}
	return from.Equal(*to)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Split closes prev and opens a successor. The split instant is prev's end
// or, when prev is open-ended, the start of today.
func Split[T Version[T]](prev T, today time.Time) (closed, next T, err error) {
	from, to := prev.Span()
	at := StartOfDay(today)
	if to != nil {
		at = *to
	}
	if from != nil && at.Before(*from) {
		return closed, next, ErrInvalidSplit
	}
	at2 := at
	closed = prev.WithSpan(from, &at)
	next = prev.WithSpan(&at2, nil)
	return closed, next, nil
}

// ToHistory turns an event into a durable record starting now.
func ToHistory[T Version[T]](v T, now time.Time) T {
	return v.WithSpan(&now, nil)
}

// ToEvent collapses a record to the single instant of its start.
func ToEvent[T Version[T]](v T) T {
	from, _ := v.Span()
	if from == nil {
		return v.WithSpan(nil, nil)
	}
	at := *from
	return v.WithSpan(from, &at)
}

// ClampSpan returns v with DateFrom moved back to DateTo when an edit pushed
// it past the end.
func ClampSpan[T Version[T]](v T) T {
	from, to := v.Span()
	if from != nil && to != nil && from.After(*to) {
		at := *to
		return v.WithSpan(&at, to)
	}
	return v
}

// Overlaps reports whether candidate overlaps any other version in versions.
// Versions sharing candidate's version id are ignored.
func Overlaps[T Versioned](versions []T, candidate T) bool {
	cf, ct := candidate.Span()
	for _, v := range versions {
		if v.VersionID() == candidate.VersionID() {
			continue
		}
		vf, vt := v.Span()
		if intersects(cf, ct, vf, vt) {
			return true
		}
	}
	return false
}

func intersects(af, at, bf, bt *time.Time) bool {
	aZero := af != nil && at != nil && af.Equal(*at)
	bZero := bf != nil && bt != nil && bf.Equal(*bt)
	switch {
	case aZero && bZero:
		return af.Equal(*bf)
	case aZero:
		return Contains(bf, bt, *af)
	case bZero:
		return Contains(af, at, *bf)
	}
	// [af, at) and [bf, bt) overlap unless one ends before the other starts.
	if at != nil && bf != nil && !at.After(*bf) {
		return false
	}
	if bt != nil && af != nil && !bt.After(*af) {
		return false
	}
	return true
}

// Remove drops the version with the given id. The second result is false
// when no such version exists.
func Remove[T Versioned](versions []T, gid int64) ([]T, bool) {
	out := make([]T, 0, len(versions))
	removed := false
	for _, v := range versions {
		if v.VersionID() == gid {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

// Sort orders versions by start; open starts come first.
func Sort[T Versioned](versions []T) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, _ := versions[i].Span()
		b, _ := versions[j].Span()
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
}

// Boundaries returns the sorted distinct interval bounds of all versions.
func Boundaries[T Versioned](versions []T) []time.Time {
	var out []time.Time
	seen := make(map[int64]bool)
	add := func(t *time.Time) {
		if t == nil {
			return
		}
		k := t.UnixNano()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, *t)
	}
	for _, v := range versions {
		from, to := v.Span()
		add(from)
		add(to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
