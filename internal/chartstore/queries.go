package chartstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("chart not found")
	ErrInvalid  = errors.New("invalid chart")
)

// ChartRow is a stored chart header.
type ChartRow struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SnapshotRow is one saved version of a chart document.
type SnapshotRow struct {
	ID        string
	ChartID   string
	Version   int
	Document  json.RawMessage
	CreatedAt time.Time
}

// Queries is the persistence surface the service runs on. Lookups of
// missing rows return ErrNotFound.
type Queries interface {
	CreateChart(ctx context.Context, id, name string) (ChartRow, error)
	GetChart(ctx context.Context, id string) (ChartRow, error)
	ListCharts(ctx context.Context) ([]ChartRow, error)
	DeleteChart(ctx context.Context, id string) error
	// CreateSnapshot stores doc as the next version of the chart.
	CreateSnapshot(ctx context.Context, id, chartID string, doc json.RawMessage) (SnapshotRow, error)
	GetLatestSnapshot(ctx context.Context, chartID string) (SnapshotRow, error)
}
