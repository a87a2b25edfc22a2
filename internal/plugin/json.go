package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mla/mla/chart-go/internal/chart"
)

// JSONImporter reads a batch in its own JSON shape:
// {"Entities": [...], "Links": [...], "Events": [...]}.
type JSONImporter struct{}

func (JSONImporter) Import(ctx context.Context, raw []byte) (chart.Batch, error) {
	if err := ctx.Err(); err != nil {
		return chart.Batch{}, err
	}
	var b chart.Batch
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&b); err != nil {
		return chart.Batch{}, fmt.Errorf("decode json batch: %w", err)
	}
	for i := range b.Events {
		if b.Events[i].DateFrom != nil && b.Events[i].DateTo == nil {
			b.Events[i].DateTo = b.Events[i].DateFrom
		}
	}
	return b, nil
}
