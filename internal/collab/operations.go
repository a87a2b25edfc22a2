package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/history"
	"github.com/mla/mla/chart-go/internal/store"
)

var ErrInvalidOperation = errors.New("invalid operation")

// ChartState holds the authoritative chart of a room.
type ChartState struct {
	mu        sync.Mutex
	store     *store.Store
	serverSeq int64
	dirty     bool
}

// NewChartState creates the state of a room from a saved chart.
func NewChartState(file chart.SaveFile) (*ChartState, error) {
	st := store.New()
	if err := st.Apply(store.Load{File: file}); err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}
	return &ChartState{store: st}, nil
}

// Sync returns the chart and the sequence number it reflects.
func (cs *ChartState) Sync() DocSyncPayload {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return DocSyncPayload{File: cs.store.Snapshot(), ServerSeq: cs.serverSeq}
}

// ApplyOperation applies op and returns its server sequence number.
func (cs *ChartState) ApplyOperation(op Operation) (int64, error) {
	cmd, err := toCommand(op)
	if err != nil {
		return 0, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.store.Apply(cmd); err != nil {
		return 0, err
	}
	cs.serverSeq++
	cs.dirty = true
	return cs.serverSeq, nil
}

// Has reports whether the chart contains an object with renderKey.
func (c *ChartState) Has(renderKey string) bool {
	_, _, ok := c.store.Lookup(renderKey)
	return ok
}

// TakeDirty returns the chart if it changed since the last call.
func (cs *ChartState) TakeDirty() (chart.SaveFile, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if !cs.dirty {
		return chart.SaveFile{}, false
	}
	cs.dirty = false
	return cs.store.Snapshot(), true
}

// MarkDirty flags the chart for the next save, after a failed one.
func (cs *ChartState) MarkDirty() {
	cs.mu.Lock()
	cs.dirty = true
	cs.mu.Unlock()
}

// toCommand maps an operation onto the store command that performs it.
func toCommand(op Operation) (store.Command, error) {
	switch op.Type {
	case OpEntityPut:
		if op.Entity == nil {
			return nil, missing(op, "entity")
		}
		if err := chart.Validate(*op.Entity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		return store.PutEntity{Entity: *op.Entity}, nil

	case OpLinkPut:
		if op.Link == nil {
			return nil, missing(op, "link")
		}
		if err := chart.Validate(*op.Link); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		return store.PutLink{Link: *op.Link}, nil

	case OpEntitiesMove:
		if op.Date == nil {
			return nil, missing(op, "date")
		}
		moves := make(map[chart.Key]store.Position, len(op.Moves))
		for _, m := range op.Moves {
			moves[chart.Key{ID: m.ID, TypeID: m.TypeID}] = store.Position{X: m.X, Y: m.Y}
		}
		return store.MoveEntities{Date: *op.Date, Moves: moves}, nil

	case OpVersionSplit:
		if op.Key == nil || op.Date == nil {
			return nil, missing(op, "key and date")
		}
		return store.SplitVersion{Key: *op.Key, Date: history.StartOfDay(*op.Date), Link: op.IsLink}, nil

	case OpVersionRemove:
		if op.Key == nil || op.GID == 0 {
			return nil, missing(op, "key and gid")
		}
		return store.RemoveVersion{Key: *op.Key, GID: op.GID, Link: op.IsLink}, nil

	case OpObjectRemove:
		if op.Key == nil {
			return nil, missing(op, "key")
		}
		return store.RemoveObject{Key: *op.Key, Link: op.IsLink}, nil

	case OpShapePut:
		if op.Shape == nil {
			return nil, missing(op, "shape")
		}
		if err := chart.Validate(*op.Shape); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		return store.PutShape{Shape: *op.Shape}, nil

	case OpShapesDelete:
		return store.DeleteShapes{IDs: op.ShapeIDs}, nil

	case OpContextMerge:
		return store.MergeContext{Context: op.Context}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}
}

func missing(op Operation, field string) error {
	return fmt.Errorf("%w: %s needs %s", ErrInvalidOperation, op.Type, field)
}

func serverTimestamp() int64 {
	return time.Now().UnixMilli()
}
