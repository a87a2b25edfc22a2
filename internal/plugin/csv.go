package plugin

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/typeid"
)

// CSVImporter reads one object per row. The header names the columns; the
// recognised ones are kind (entity, link or event), id, type, label, x, y,
// color, from, from_type, to, to_type, direction, date_from and date_to.
// Rows without an id get a generated one. Dates are RFC 3339 or
// YYYY-MM-DD.
type CSVImporter struct {
	// Comma is the field separator; zero means ','.
	Comma rune
}

func (c CSVImporter) Import(ctx context.Context, raw []byte) (chart.Batch, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	if c.Comma != 0 {
		r.Comma = c.Comma
	}
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return chart.Batch{}, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["type"]; !ok {
		return chart.Batch{ErrorMessage: "csv: missing type column"}, nil
	}

	var b chart.Batch
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return chart.Batch{}, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return chart.Batch{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := csvRow{cols: cols, rec: rec}
		if err := addRow(&b, row); err != nil {
			return chart.Batch{ErrorMessage: fmt.Sprintf("csv line %d: %v", line, err)}, nil
		}
	}
	return b, nil
}

type csvRow struct {
	cols map[string]int
	rec  []string
}

func (r csvRow) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r csvRow) float(col string) (float64, error) {
	s := r.get(col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return v, nil
}

func (r csvRow) date(col string) (*time.Time, error) {
	s := r.get(col)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: unrecognised date %q", col, s)
}

func (r csvRow) object(prefix string) (chart.Object, error) {
	o := chart.Object{
		ID:         r.get("id"),
		TypeID:     r.get("type"),
		LabelShort: r.get("label"),
		Color:      r.get("color"),
	}
	if o.ID == "" {
		o.ID = typeid.New(prefix)
	}
	var err error
	if o.PosX, err = r.float("x"); err != nil {
		return o, err
	}
	if o.PosY, err = r.float("y"); err != nil {
		return o, err
	}
	if o.DateFrom, err = r.date("date_from"); err != nil {
		return o, err
	}
	if o.DateTo, err = r.date("date_to"); err != nil {
		return o, err
	}
	return o, nil
}

func addRow(b *chart.Batch, r csvRow) error {
	kind := strings.ToLower(r.get("kind"))
	switch kind {
	case "", "entity":
		o, err := r.object(typeid.PrefixEntity)
		if err != nil {
			return err
		}
		b.Entities = append(b.Entities, chart.Entity{Object: o})
	case "event":
		o, err := r.object(typeid.PrefixEntity)
		if err != nil {
			return err
		}
		if o.DateFrom == nil {
			return errors.New("event without date_from")
		}
		o.DateTo = o.DateFrom
		b.Events = append(b.Events, chart.Entity{Object: o})
	case "link":
		o, err := r.object(typeid.PrefixLink)
		if err != nil {
			return err
		}
		l := chart.Link{
			Object:           o,
			FromEntityID:     r.get("from"),
			FromEntityTypeID: r.get("from_type"),
			ToEntityID:       r.get("to"),
			ToEntityTypeID:   r.get("to_type"),
			Direction:        chart.Direction(strings.ToUpper(r.get("direction"))),
		}
		if l.Direction == "" {
			l.Direction = chart.DirectionNone
		}
		if l.FromEntityID == "" || l.ToEntityID == "" {
			return errors.New("link without from and to")
		}
		b.Links = append(b.Links, l)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}
