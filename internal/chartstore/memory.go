package chartstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Memory implements Queries in process. It backs tests and the server
// when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	charts    map[string]ChartRow
	snapshots map[string][]SnapshotRow
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		charts:    make(map[string]ChartRow),
		snapshots: make(map[string][]SnapshotRow),
		now:       time.Now,
	}
}

func (m *Memory) CreateChart(_ context.Context, id, name string) (ChartRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c := ChartRow{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	m.charts[id] = c
	return c, nil
}

func (m *Memory) GetChart(_ context.Context, id string) (ChartRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charts[id]
	if !ok {
		return ChartRow{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListCharts(_ context.Context) ([]ChartRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ChartRow, 0, len(m.charts))
	for _, c := range m.charts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteChart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.charts[id]; !ok {
		return ErrNotFound
	}
	delete(m.charts, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) CreateSnapshot(_ context.Context, id, chartID string, doc json.RawMessage) (SnapshotRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charts[chartID]
	if !ok {
		return SnapshotRow{}, ErrNotFound
	}
	now := m.now()
	s := SnapshotRow{
		ID:        id,
		ChartID:   chartID,
		Version:   len(m.snapshots[chartID]) + 1,
		Document:  append(json.RawMessage(nil), doc...),
		CreatedAt: now,
	}
	m.snapshots[chartID] = append(m.snapshots[chartID], s)
	c.UpdatedAt = now
	m.charts[chartID] = c
	return s, nil
}

func (m *Memory) GetLatestSnapshot(_ context.Context, chartID string) (SnapshotRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots[chartID]
	if len(snaps) == 0 {
		return SnapshotRow{}, ErrNotFound
	}
	return snaps[len(snaps)-1], nil
}
