// Package chartstore persists charts as versioned snapshots of their save
// file and answers searches over them.
package chartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/metrics"
	"github.com/mla/mla/chart-go/internal/typeid"
)

type Service struct {
	queries Queries
	metrics *metrics.Collector
}

// NewService creates a service over queries. collector may be nil.
func NewService(queries Queries, collector *metrics.Collector) *Service {
	return &Service{queries: queries, metrics: collector}
}

type Chart struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Snapshot is a loaded chart version.
type Snapshot struct {
	ID      string         `json:"id"`
	Version int            `json:"version"`
	File    chart.SaveFile `json:"file"`
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveDB(op, start, err)
	}
}

func (s *Service) Create(ctx context.Context, name string) (_ *Chart, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())

	chartID := typeid.NewChartID()
	row, err := s.queries.CreateChart(ctx, chartID, name)
	if err != nil {
		return nil, fmt.Errorf("create chart: %w", err)
	}

	// Seed an empty snapshot so Load works on a fresh chart.
	empty := chart.SaveFile{Context: chart.ContextSet("", "filename", name)}
	doc, err := json.Marshal(empty)
	if err != nil {
		return nil, fmt.Errorf("marshal empty chart: %w", err)
	}
	if _, err := s.queries.CreateSnapshot(ctx, typeid.NewSnapshotID(), chartID, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}
	return rowToChart(row), nil
}

func (s *Service) Get(ctx context.Context, chartID string) (*Chart, error) {
	row, err := s.queries.GetChart(ctx, chartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chart: %w", err)
	}
	return rowToChart(row), nil
}

func (s *Service) List(ctx context.Context) ([]Chart, error) {
	rows, err := s.queries.ListCharts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}
	charts := make([]Chart, len(rows))
	for i, r := range rows {
		charts[i] = *rowToChart(r)
	}
	return charts, nil
}

func (s *Service) Delete(ctx context.Context, chartID string) error {
	if err := s.queries.DeleteChart(ctx, chartID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete chart: %w", err)
	}
	return nil
}

// Save validates file and stores it as the chart's next version.
func (s *Service) Save(ctx context.Context, chartID string, file chart.SaveFile) (_ int, err error) {
	defer func(start time.Time) { s.observe("save", start, err) }(time.Now())

	if err := validateFile(file); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	doc, err := json.Marshal(file)
	if err != nil {
		return 0, fmt.Errorf("marshal chart: %w", err)
	}
	snap, err := s.queries.CreateSnapshot(ctx, typeid.NewSnapshotID(), chartID, doc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("save chart: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ChartsSaved.Inc()
	}
	slog.Info("chart saved", "chart", chartID, "version", snap.Version,
		"entities", len(file.Entities), "links", len(file.Links), "shapes", len(file.Shapes))
	return snap.Version, nil
}

// Load returns the latest saved version of a chart.
func (s *Service) Load(ctx context.Context, chartID string) (_ *Snapshot, err error) {
	defer func(start time.Time) { s.observe("load", start, err) }(time.Now())

	row, err := s.queries.GetLatestSnapshot(ctx, chartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load chart: %w", err)
	}
	var file chart.SaveFile
	if err := json.Unmarshal(row.Document, &file); err != nil {
		return nil, fmt.Errorf("decode chart %s v%d: %w", chartID, row.Version, err)
	}
	if s.metrics != nil {
		s.metrics.ChartsLoaded.Inc()
	}
	return &Snapshot{ID: row.ID, Version: row.Version, File: file}, nil
}

// Search finds entity versions of the latest save whose id, labels or
// property values contain query, case-insensitively. Links touching a
// match are returned with their other endpoint so they can be drawn.
// Matching events are returned separately.
func (s *Service) Search(ctx context.Context, chartID, query string) (chart.Batch, error) {
	snap, err := s.Load(ctx, chartID)
	if err != nil {
		return chart.Batch{}, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chart.Batch{}, nil
	}

	file := snap.File
	hit := make(map[chart.Key]bool)
	for _, e := range file.Entities {
		if matches(e.Object, q) {
			hit[e.Key()] = true
		}
	}

	var b chart.Batch
	keep := make(map[chart.Key]bool)
	for _, l := range file.Links {
		if hit[l.FromKey()] || hit[l.ToKey()] || matches(l.Object, q) {
			b.Links = append(b.Links, l)
			keep[l.FromKey()] = true
			keep[l.ToKey()] = true
		}
	}
	for _, e := range file.Entities {
		switch {
		case hit[e.Key()] && e.IsEvent() && e.DateFrom != nil:
			b.Events = append(b.Events, e)
		case hit[e.Key()] || keep[e.Key()]:
			b.Entities = append(b.Entities, e)
		}
	}
	return b, nil
}

func matches(o chart.Object, q string) bool {
	fields := []string{o.ID, o.LabelShort, o.LabelLong, o.LabelChart}
	for _, p := range o.Properties {
		fields = append(fields, p.Value)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func validateFile(file chart.SaveFile) error {
	for i, e := range file.Entities {
		if err := chart.Validate(e); err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
	}
	for i, l := range file.Links {
		if err := chart.Validate(l); err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
	}
	for i, sh := range file.Shapes {
		if err := chart.Validate(sh); err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
	}
	return nil
}

// Bind returns the save and search collaborators of one chart.
func (s *Service) Bind(chartID string) *Binding {
	return &Binding{service: s, chartID: chartID}
}

// Binding ties the service to one chart so an editor engine can save to
// and search it.
type Binding struct {
	service *Service
	chartID string
}

func (b *Binding) Save(ctx context.Context, file chart.SaveFile) error {
	_, err := b.service.Save(ctx, b.chartID, file)
	return err
}

func (b *Binding) Search(ctx context.Context, query string) (chart.Batch, error) {
	return b.service.Search(ctx, b.chartID, query)
}

func rowToChart(r ChartRow) *Chart {
	return &Chart{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
