package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoRoot is returned by the tree layout when its root is not rendered.
var ErrNoRoot = errors.New("tree layout: root node not found")

// Layout computes target graph positions for the rendered nodes.
type Layout interface {
	Name() string
	Positions(s Surface) (map[string]Point, error)
}

// Easing shapes the interpolation factor of an animation frame.
type Easing string

const (
	EaseLinear     Easing = "linear"
	EaseInOut      Easing = "easeInOut"
	EaseCubicOut   Easing = "cubicOut"
	EaseCubicInOut Easing = "cubicInOut"
	EaseElasticOut Easing = "elasticOut"
)

// ParseEasing maps an easing name to its Easing. The empty name selects
// EaseCubicInOut.
func ParseEasing(name string) (Easing, error) {
	switch e := Easing(name); e {
	case "":
		return EaseCubicInOut, nil
	case EaseLinear, EaseInOut, EaseCubicOut, EaseCubicInOut, EaseElasticOut:
		return e, nil
	default:
		return "", fmt.Errorf("unknown easing %q", name)
	}
}

// DefaultLayoutFrames is the animation length used when none is given.
const DefaultLayoutFrames = 30

// applyEasing applies an easing function to interpolation factor t (0-1).
func applyEasing(t float64, easing Easing) float64 {
	switch easing {
	case EaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EaseCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case EaseCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2

	case EaseElasticOut:
		if t == 0 || t == 1 {
			return t
		}
		c4 := (2 * math.Pi) / 3
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1

	default: // linear
		return t
	}
}

type animation struct {
	layout string
	start  map[string]Point
	target map[string]Point
	frame  int
	frames int
	easing Easing
	done   func(map[string]Point)
}

// Animator runs at most one layout animation over a surface. Frames are
// advanced by Step, usually once per render tick.
type Animator struct {
	surface Surface
	active  *animation
}

func NewAnimator(s Surface) *Animator {
	return &Animator{surface: s}
}

// Start computes the layout and animates towards it over frames steps,
// cancelling any running animation first. done receives the final
// positions once the last frame has been applied.
func (a *Animator) Start(l Layout, frames int, easing Easing, done func(map[string]Point)) error {
	a.Cancel()
	target, err := l.Positions(a.surface)
	if err != nil {
		return fmt.Errorf("%s layout: %w", l.Name(), err)
	}
	if frames <= 0 {
		frames = 1
	}
	start := make(map[string]Point, len(target))
	for key := range target {
		if n, ok := a.surface.Node(key); ok {
			start[key] = Point{n.X, n.Y}
		}
	}
	a.active = &animation{
		layout: l.Name(),
		start:  start,
		target: target,
		frames: frames,
		easing: easing,
		done:   done,
	}
	return nil
}

// Cancel stops the running animation where it is. It is safe to call when
// nothing runs.
func (a *Animator) Cancel() {
	a.active = nil
}

// Running reports the name of the active layout, if any.
func (a *Animator) Running() (string, bool) {
	if a.active == nil {
		return "", false
	}
	return a.active.layout, true
}

// Step applies the next frame. It returns false once nothing is running.
func (a *Animator) Step() bool {
	an := a.active
	if an == nil {
		return false
	}
	an.frame++
	t := applyEasing(float64(an.frame)/float64(an.frames), an.easing)
	for key, to := range an.target {
		from, ok := an.start[key]
		if !ok {
			continue
		}
		p := Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}
		a.surface.UpdateNode(key, func(n NodeAttrs) NodeAttrs {
			n.X, n.Y = p.X, p.Y
			return n
		})
	}
	if an.frame < an.frames {
		return true
	}
	a.active = nil
	if an.done != nil {
		an.done(an.target)
	}
	return false
}

func visibleNodes(s Surface) []string {
	var out []string
	for _, key := range s.Nodes() {
		if n, ok := s.Node(key); ok && !n.Hidden {
			out = append(out, key)
		}
	}
	return out
}

func centroid(s Surface, keys []string) Point {
	var c Point
	if len(keys) == 0 {
		return c
	}
	for _, key := range keys {
		n, _ := s.Node(key)
		c.X += n.X
		c.Y += n.Y
	}
	return Point{X: c.X / float64(len(keys)), Y: c.Y / float64(len(keys))}
}

func neighbours(s Surface) map[string][]string {
	adj := make(map[string][]string)
	for _, key := range s.Edges() {
		e, _ := s.Edge(key)
		if e.Hidden || e.Source == e.Target {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for k := range adj {
		sort.Strings(adj[k])
	}
	return adj
}

// Circular places nodes evenly on a circle around their centroid.
type Circular struct {
	// Spacing is the arc length between neighbours on the circle.
	Spacing float64
}

func (Circular) Name() string { return "circular" }

func (c Circular) Positions(s Surface) (map[string]Point, error) {
	keys := visibleNodes(s)
	out := make(map[string]Point, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	spacing := c.Spacing
	if spacing <= 0 {
		spacing = 60
	}
	center := centroid(s, keys)
	radius := math.Max(spacing, spacing*float64(len(keys))/(2*math.Pi))
	for idx, key := range keys {
		angle := 2 * math.Pi * float64(idx) / float64(len(keys))
		out[key] = Point{X: center.X + radius*math.Cos(angle), Y: center.Y + radius*math.Sin(angle)}
	}
	return out, nil
}

// Tree places nodes in breadth-first levels below Root. Nodes unreachable
// from the root keep their position.
type Tree struct {
	Root       string
	LevelGap   float64
	SiblingGap float64
}

func (Tree) Name() string { return "tree" }

func (t Tree) Positions(s Surface) (map[string]Point, error) {
	root, ok := s.Node(t.Root)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRoot, t.Root)
	}
	levelGap, siblingGap := t.LevelGap, t.SiblingGap
	if levelGap <= 0 {
		levelGap = 80
	}
	if siblingGap <= 0 {
		siblingGap = 60
	}

	adj := neighbours(s)
	depth := map[string]int{t.Root: 0}
	levels := [][]string{{t.Root}}
	queue := []string{t.Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := depth[next]; seen {
				continue
			}
			if n, ok := s.Node(next); !ok || n.Hidden {
				continue
			}
			d := depth[cur] + 1
			depth[next] = d
			if d == len(levels) {
				levels = append(levels, nil)
			}
			levels[d] = append(levels[d], next)
			queue = append(queue, next)
		}
	}

	out := make(map[string]Point, len(depth))
	for d, level := range levels {
		width := float64(len(level)-1) * siblingGap
		for idx, key := range level {
			out[key] = Point{
				X: root.X - width/2 + float64(idx)*siblingGap,
				Y: root.Y + float64(d)*levelGap,
			}
		}
	}
	return out, nil
}

// Force is a Fruchterman-Reingold spring embedder run for a fixed number
// of iterations from the current positions, so results are deterministic.
type Force struct {
	Iterations int
	Distance   float64
}

func (Force) Name() string { return "force" }

func (f Force) Positions(s Surface) (map[string]Point, error) {
	keys := visibleNodes(s)
	pos := make(map[string]Point, len(keys))
	for idx, key := range keys {
		n, _ := s.Node(key)
		p := Point{n.X, n.Y}
		// Separate coincident nodes so forces have a direction.
		p.X += float64(idx) * 1e-3
		pos[key] = p
	}
	if len(keys) < 2 {
		return pos, nil
	}
	iterations := f.Iterations
	if iterations <= 0 {
		iterations = 100
	}
	k := f.Distance
	if k <= 0 {
		k = 80
	}
	adj := neighbours(s)
	temp := k * math.Sqrt(float64(len(keys)))

	for it := 0; it < iterations; it++ {
		disp := make(map[string]Point, len(keys))
		for i, a := range keys {
			for _, b := range keys[i+1:] {
				d := pos[a].Sub(pos[b])
				dist := math.Max(math.Hypot(d.X, d.Y), 0.01)
				rep := k * k / dist
				dx, dy := d.X/dist*rep, d.Y/dist*rep
				disp[a] = disp[a].Add(Point{dx, dy})
				disp[b] = disp[b].Sub(Point{dx, dy})
			}
		}
		for _, a := range keys {
			for _, b := range adj[a] {
				if _, ok := pos[b]; !ok || b < a {
					continue
				}
				d := pos[a].Sub(pos[b])
				dist := math.Max(math.Hypot(d.X, d.Y), 0.01)
				att := dist * dist / k
				dx, dy := d.X/dist*att, d.Y/dist*att
				disp[a] = disp[a].Sub(Point{dx, dy})
				disp[b] = disp[b].Add(Point{dx, dy})
			}
		}
		for _, key := range keys {
			d := disp[key]
			length := math.Hypot(d.X, d.Y)
			if length == 0 {
				continue
			}
			step := math.Min(length, temp)
			pos[key] = pos[key].Add(Point{d.X / length * step, d.Y / length * step})
		}
		temp *= 0.95
	}
	return pos, nil
}
