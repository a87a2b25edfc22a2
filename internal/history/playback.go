package history

import (
	"sort"
	"time"
)

type PlayDirection int

const (
	Forward PlayDirection = iota
	Backward
)

// DefaultCadence is the wall-clock time between two playback steps.
const DefaultCadence = 1500 * time.Millisecond

// Step moves d by the duration of the active interval between boundaries.
// The second result is false when no further interval exists in dir.
func Step(boundaries []time.Time, d time.Time, dir PlayDirection) (time.Time, bool) {
	n := len(boundaries)
	if n == 0 {
		return d, false
	}

	if dir == Forward {
		// largest i with b[i] <= d
		i := sort.Search(n, func(k int) bool { return boundaries[k].After(d) }) - 1
		switch {
		case i < 0:
			return boundaries[0], true
		case i == n-1:
			return d, false
		}
		return d.Add(boundaries[i+1].Sub(boundaries[i])), true
	}

	// smallest j with b[j] >= d
	j := sort.Search(n, func(k int) bool { return !boundaries[k].Before(d) })
	switch {
	case j == n:
		return boundaries[n-1], true
	case j == 0:
		return d, false
	}
	return d.Add(-boundaries[j].Sub(boundaries[j-1])), true
}

// Player animates the current chart date along the version boundaries.
// It is driven by Tick from the host's frame loop.
type Player struct {
	date       time.Time
	boundaries []time.Time
	direction  PlayDirection
	cadence    time.Duration
	playing    bool
	lastStep   time.Time
}

// NewPlayer creates a stopped player positioned at date.
func NewPlayer(date time.Time) *Player {
	return &Player{
		date:    date,
		cadence: DefaultCadence,
	}
}

// SetBoundaries replaces the set of instants playback moves between.
func (p *Player) SetBoundaries(b []time.Time) {
	p.boundaries = b
}

// SetCadence changes the time between steps. Non-positive values are ignored.
func (p *Player) SetCadence(d time.Duration) {
	if d > 0 {
		p.cadence = d
	}
}

// SetDate moves the playhead without affecting the playing state.
func (p *Player) SetDate(d time.Time) {
	p.date = d
}

// Date returns the current playhead date.
func (p *Player) Date() time.Time {
	return p.date
}

// Play starts playback in dir.
func (p *Player) Play(dir PlayDirection, now time.Time) {
	p.direction = dir
	p.playing = true
	p.lastStep = now
}

// Pause stops playback.
func (p *Player) Pause() {
	p.playing = false
}

// IsPlaying returns whether playback is active.
func (p *Player) IsPlaying() bool {
	return p.playing
}

// Tick steps the playhead once the cadence has elapsed. It returns true when
// the date changed. Playback stops when no interval is left in its direction.
func (p *Player) Tick(now time.Time) bool {
	if !p.playing || now.Sub(p.lastStep) < p.cadence {
		return false
	}
	p.lastStep = now

	next, ok := Step(p.boundaries, p.date, p.direction)
	if !ok {
		p.playing = false
		return false
	}
	p.date = next
	return true
}
