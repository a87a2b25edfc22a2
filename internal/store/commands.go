package store

import (
	"fmt"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/history"
)

// PutEntity adds a new version (GID 0) or replaces an existing version
// wholesale (matching GID). Overlapping intervals are rejected.
type PutEntity struct {
	Entity chart.Entity
}

func (c PutEntity) apply(s *Store) (Change, error) {
	e := history.ClampSpan(c.Entity)
	k := e.Key()
	versions, existed := s.entities[k]

	if e.GID == 0 {
		e.GID = s.gid()
	} else if !hasVersion(versions, e.GID) {
		return Change{}, fmt.Errorf("put entity: %w", notFound(k))
	}
	if history.Overlaps(versions, e) {
		return Change{}, fmt.Errorf("put entity %s: %w", k.ID, history.ErrOverlap)
	}

	s.entities[k] = upsertVersion(versions, e)
	if !existed {
		s.entityOrder = append(s.entityOrder, k)
		s.byRenderKey[k.String()] = k
	}
	return Change{Graph: true}, nil
}

// PutLink is PutEntity for links.
type PutLink struct {
	Link chart.Link
}

func (c PutLink) apply(s *Store) (Change, error) {
	l := history.ClampSpan(c.Link)
	if l.Direction == "" {
		l.Direction = chart.DirectionNone
	}
	k := l.Key()
	versions, existed := s.links[k]

	if l.GID == 0 {
		l.GID = s.gid()
	} else if !hasVersion(versions, l.GID) {
		return Change{}, fmt.Errorf("put link: %w", notFound(k))
	}
	if history.Overlaps(versions, l) {
		return Change{}, fmt.Errorf("put link %s: %w", k.ID, history.ErrOverlap)
	}

	s.links[k] = upsertVersion(versions, l)
	if !existed {
		s.linkOrder = append(s.linkOrder, k)
		s.byRenderKey[k.String()] = k
	}
	return Change{Graph: true}, nil
}

// RemoveVersion deletes one version. Removing the last version removes the
// object and drops it from the selection.
type RemoveVersion struct {
	Key  chart.Key
	GID  int64
	Link bool
}

func (c RemoveVersion) apply(s *Store) (Change, error) {
	var remaining int
	if c.Link {
		out, ok := history.Remove(s.links[c.Key], c.GID)
		if !ok {
			return Change{}, fmt.Errorf("remove version: %w", notFound(c.Key))
		}
		s.links[c.Key] = out
		remaining = len(out)
	} else {
		out, ok := history.Remove(s.entities[c.Key], c.GID)
		if !ok {
			return Change{}, fmt.Errorf("remove version: %w", notFound(c.Key))
		}
		s.entities[c.Key] = out
		remaining = len(out)
	}
	if remaining > 0 {
		return Change{Graph: true}, nil
	}
	return RemoveObject{Key: c.Key, Link: c.Link}.apply(s)
}

// RemoveObject deletes an entity or link with all of its versions.
type RemoveObject struct {
	Key  chart.Key
	Link bool
}

func (c RemoveObject) apply(s *Store) (Change, error) {
	if c.Link {
		if _, ok := s.links[c.Key]; !ok {
			return Change{}, fmt.Errorf("remove object: %w", notFound(c.Key))
		}
		delete(s.links, c.Key)
		s.linkOrder = removeKey(s.linkOrder, c.Key)
	} else {
		if _, ok := s.entities[c.Key]; !ok {
			return Change{}, fmt.Errorf("remove object: %w", notFound(c.Key))
		}
		delete(s.entities, c.Key)
		s.entityOrder = removeKey(s.entityOrder, c.Key)
	}
	delete(s.byRenderKey, c.Key.String())
	change := Change{Graph: true}
	if s.selectedGraph[c.Key.String()] {
		delete(s.selectedGraph, c.Key.String())
		change.Selection = true
	}
	return change, nil
}

// SplitVersion closes the version current at Date and opens a successor.
type SplitVersion struct {
	Key  chart.Key
	Date time.Time
	Link bool
}

func (c SplitVersion) apply(s *Store) (Change, error) {
	if c.Link {
		cur, ok := history.Current(s.links[c.Key], c.Date)
		if !ok {
			return Change{}, fmt.Errorf("split version: %w", notFound(c.Key))
		}
		closed, next, err := history.Split(cur, c.Date)
		if err != nil {
			return Change{}, fmt.Errorf("split version: %w", err)
		}
		next.GID = s.gid()
		versions := upsertVersion(s.links[c.Key], closed)
		if history.Overlaps(versions, next) {
			return Change{}, fmt.Errorf("split version: %w", history.ErrOverlap)
		}
		s.links[c.Key] = upsertVersion(versions, next)
		return Change{Graph: true}, nil
	}

	cur, ok := history.Current(s.entities[c.Key], c.Date)
	if !ok {
		return Change{}, fmt.Errorf("split version: %w", notFound(c.Key))
	}
	closed, next, err := history.Split(cur, c.Date)
	if err != nil {
		return Change{}, fmt.Errorf("split version: %w", err)
	}
	next.GID = s.gid()
	versions := upsertVersion(s.entities[c.Key], closed)
	if history.Overlaps(versions, next) {
		return Change{}, fmt.Errorf("split version: %w", history.ErrOverlap)
	}
	s.entities[c.Key] = upsertVersion(versions, next)
	return Change{Graph: true}, nil
}

// Position is a graph-space point.
type Position struct {
	X, Y float64
}

// MoveEntities commits dragged positions. Only entities whose current
// version actually changed receive a new version id.
type MoveEntities struct {
	Date  time.Time
	Moves map[chart.Key]Position
}

func (c MoveEntities) apply(s *Store) (Change, error) {
	var change Change
	for _, k := range s.entityOrder {
		pos, ok := c.Moves[k]
		if !ok {
			continue
		}
		cur, ok := history.Current(s.entities[k], c.Date)
		if !ok {
			continue
		}
		if cur.PosX == pos.X && cur.PosY == pos.Y {
			continue
		}
		prevGID := cur.GID
		cur.PosX, cur.PosY = pos.X, pos.Y
		cur.GID = s.gid()
		s.entities[k] = replaceVersion(s.entities[k], prevGID, cur)
		change.Graph = true
	}
	return change, nil
}

// PutShape inserts a shape on top or replaces it in place.
type PutShape struct {
	Shape chart.Shape
}

func (c PutShape) apply(s *Store) (Change, error) {
	sh := c.Shape.Clone()
	if i := s.shapeIndex(sh.ID); i >= 0 {
		s.shapes[i] = sh
	} else {
		s.shapes = append(s.shapes, sh)
	}
	return Change{Shapes: true}, nil
}

// DeleteShapes removes shapes by id and drops them from the selection.
type DeleteShapes struct {
	IDs []string
}

func (c DeleteShapes) apply(s *Store) (Change, error) {
	drop := make(map[string]bool, len(c.IDs))
	for _, id := range c.IDs {
		drop[id] = true
	}
	var change Change
	kept := s.shapes[:0]
	for _, sh := range s.shapes {
		if drop[sh.ID] {
			change.Shapes = true
			continue
		}
		kept = append(kept, sh)
	}
	s.shapes = kept
	for id := range drop {
		if s.selectedShapes[id] {
			delete(s.selectedShapes, id)
			change.Selection = true
		}
	}
	return change, nil
}

type SelectMode int

const (
	Replace SelectMode = iota
	Add
	Toggle
)

// SelectGraph changes the node/link selection.
type SelectGraph struct {
	IDs  []string
	Mode SelectMode
}

func (c SelectGraph) apply(s *Store) (Change, error) {
	s.selectedGraph = applySelection(s.selectedGraph, c.IDs, c.Mode)
	return Change{Selection: true}, nil
}

// SelectShapes changes the shape selection.
type SelectShapes struct {
	IDs  []string
	Mode SelectMode
}

func (c SelectShapes) apply(s *Store) (Change, error) {
	s.selectedShapes = applySelection(s.selectedShapes, c.IDs, c.Mode)
	return Change{Selection: true}, nil
}

func applySelection(cur map[string]bool, ids []string, mode SelectMode) map[string]bool {
	if mode == Replace {
		cur = make(map[string]bool, len(ids))
	}
	for _, id := range ids {
		if mode == Toggle && cur[id] {
			delete(cur, id)
			continue
		}
		cur[id] = true
	}
	return cur
}

// MergeBatch merges an import or search batch. An incoming version replaces
// the existing versions of the same object it overlaps.
type MergeBatch struct {
	Batch chart.Batch
}

func (c MergeBatch) apply(s *Store) (Change, error) {
	var change Change
	entities := append(append([]chart.Entity(nil), c.Batch.Entities...), c.Batch.Events...)
	for _, e := range entities {
		e.GID = 0
		e = history.ClampSpan(e)
		if versions, ok := s.entities[e.Key()]; ok {
			var kept []chart.Entity
			for _, v := range versions {
				if !history.Overlaps([]chart.Entity{v}, e) {
					kept = append(kept, v)
				}
			}
			s.entities[e.Key()] = kept
		}
		ch, err := PutEntity{Entity: e}.apply(s)
		if err != nil {
			return change, err
		}
		change = change.merge(ch)
	}
	for _, l := range c.Batch.Links {
		l.GID = 0
		l = history.ClampSpan(l)
		if versions, ok := s.links[l.Key()]; ok {
			var kept []chart.Link
			for _, v := range versions {
				if !history.Overlaps([]chart.Link{v}, l) {
					kept = append(kept, v)
				}
			}
			s.links[l.Key()] = kept
		}
		ch, err := PutLink{Link: l}.apply(s)
		if err != nil {
			return change, err
		}
		change = change.merge(ch)
	}
	return change, nil
}

// MergeContext merges key:value pairs into the save context.
type MergeContext struct {
	Context string
}

func (c MergeContext) apply(s *Store) (Change, error) {
	s.context = chart.ContextMerge(s.context, c.Context)
	return Change{}, nil
}

// Load replaces the whole store content with a saved chart. Saved version
// ids are kept so every store loading the same file agrees on them;
// versions saved without one get fresh ids above the highest loaded. The
// file is built into a fresh store and only swapped in once it loads
// cleanly.
type Load struct {
	File chart.SaveFile
}

func (c Load) apply(s *Store) (Change, error) {
	next := New()
	next.context = c.File.Context

	seen := make(map[int64]bool, len(c.File.Entities)+len(c.File.Links))
	claim := func(gid int64) error {
		switch {
		case gid == 0:
			return nil
		case gid < 0:
			return fmt.Errorf("load: negative version id %d", gid)
		case seen[gid]:
			return fmt.Errorf("load: %w: %d", ErrDuplicateGID, gid)
		}
		seen[gid] = true
		if gid > next.nextGID {
			next.nextGID = gid
		}
		return nil
	}
	for _, e := range c.File.Entities {
		if err := claim(e.GID); err != nil {
			return Change{}, err
		}
	}
	for _, l := range c.File.Links {
		if err := claim(l.GID); err != nil {
			return Change{}, err
		}
	}

	for _, e := range c.File.Entities {
		if err := next.restoreEntity(e); err != nil {
			return Change{}, fmt.Errorf("load: %w", err)
		}
	}
	for _, l := range c.File.Links {
		if err := next.restoreLink(l); err != nil {
			return Change{}, fmt.Errorf("load: %w", err)
		}
	}
	for _, sh := range c.File.Shapes {
		sh.Space = chart.SpaceGraph
		next.shapes = append(next.shapes, sh.Clone())
	}

	s.swap(next.checkpoint())
	return Change{Graph: true, Shapes: true, Selection: true}, nil
}

// restoreEntity inserts a saved version under its own id.
func (s *Store) restoreEntity(e chart.Entity) error {
	if e.GID == 0 {
		_, err := PutEntity{Entity: e}.apply(s)
		return err
	}
	e = history.ClampSpan(e)
	k := e.Key()
	versions, existed := s.entities[k]
	if history.Overlaps(versions, e) {
		return fmt.Errorf("put entity %s: %w", k.ID, history.ErrOverlap)
	}
	s.entities[k] = upsertVersion(versions, e)
	if !existed {
		s.entityOrder = append(s.entityOrder, k)
		s.byRenderKey[k.String()] = k
	}
	return nil
}

func (s *Store) restoreLink(l chart.Link) error {
	if l.GID == 0 {
		_, err := PutLink{Link: l}.apply(s)
		return err
	}
	l = history.ClampSpan(l)
	if l.Direction == "" {
		l.Direction = chart.DirectionNone
	}
	k := l.Key()
	versions, existed := s.links[k]
	if history.Overlaps(versions, l) {
		return fmt.Errorf("put link %s: %w", k.ID, history.ErrOverlap)
	}
	s.links[k] = upsertVersion(versions, l)
	if !existed {
		s.linkOrder = append(s.linkOrder, k)
		s.byRenderKey[k.String()] = k
	}
	return nil
}

func hasVersion[T history.Versioned](versions []T, gid int64) bool {
	for _, v := range versions {
		if v.VersionID() == gid {
			return true
		}
	}
	return false
}

func upsertVersion[T history.Versioned](versions []T, v T) []T {
	out := make([]T, 0, len(versions)+1)
	replaced := false
	for _, cur := range versions {
		if cur.VersionID() == v.VersionID() {
			out = append(out, v)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, v)
	}
	history.Sort(out)
	return out
}

func replaceVersion[T history.Versioned](versions []T, gid int64, v T) []T {
	out := make([]T, len(versions))
	for i, cur := range versions {
		if cur.VersionID() == gid {
			out[i] = v
			continue
		}
		out[i] = cur
	}
	return out
}

func removeKey(keys []chart.Key, k chart.Key) []chart.Key {
	out := keys[:0]
	for _, cur := range keys {
		if cur != k {
			out = append(out, cur)
		}
	}
	return out
}
