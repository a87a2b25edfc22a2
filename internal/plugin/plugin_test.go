package plugin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
)

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"csv", "json"}, r.Names())

	_, err := r.Get("xml")
	assert.ErrorIs(t, err, ErrUnknownImporter)

	err = r.Register("json", JSONImporter{})
	assert.ErrorIs(t, err, ErrDuplicateImporter)

	require.NoError(t, r.Register("noop", ImporterFunc(func(context.Context, []byte) (chart.Batch, error) {
		return chart.Batch{ErrorMessage: "nothing"}, nil
	})))
	im, err := r.Get("noop")
	require.NoError(t, err)
	b, err := im.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "nothing", b.ErrorMessage)
}

func TestJSONImporter(t *testing.T) {
	raw := `{
		"Entities": [{"Id": "a", "TypeId": "person", "PosX": 1}],
		"Links": [{"Id": "l", "TypeId": "knows", "FromEntityId": "a", "FromEntityTypeId": "person",
			"ToEntityId": "b", "ToEntityTypeId": "person", "Direction": "TO"}],
		"Events": [{"Id": "e", "TypeId": "meeting", "DateFrom": "2024-03-01T00:00:00Z"}]
	}`
	b, err := JSONImporter{}.Import(context.Background(), []byte(raw))
	require.NoError(t, err)
	require.Len(t, b.Entities, 1)
	assert.Equal(t, 1.0, b.Entities[0].PosX)
	require.Len(t, b.Links, 1)
	assert.Equal(t, chart.DirectionTo, b.Links[0].Direction)
	require.Len(t, b.Events, 1)
	assert.True(t, b.Events[0].IsEvent(), "events get a zero-length span")
	require.NoError(t, chart.ValidateBatch(b))

	_, err = JSONImporter{}.Import(context.Background(), []byte("{"))
	assert.Error(t, err)
}

func TestCSVImporter(t *testing.T) {
	raw := strings.Join([]string{
		"kind,id,type,label,x,y,from,from_type,to,to_type,direction,date_from,date_to",
		"entity,a,person,Alice,10,20,,,,,,2024-01-01,",
		"entity,,person,Bob,,,,,,,,,",
		"link,l1,knows,,,,a,person,b,person,to,,",
		"event,ev,meeting,Kickoff,,,,,,,,2024-02-01T09:00:00Z,",
	}, "\n")
	b, err := CSVImporter{}.Import(context.Background(), []byte(raw))
	require.NoError(t, err)
	assert.Empty(t, b.ErrorMessage)

	require.Len(t, b.Entities, 2)
	alice := b.Entities[0]
	assert.Equal(t, "Alice", alice.LabelShort)
	assert.Equal(t, 10.0, alice.PosX)
	require.NotNil(t, alice.DateFrom)
	assert.True(t, alice.DateFrom.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, alice.DateTo)
	assert.True(t, strings.HasPrefix(b.Entities[1].ID, "ent_"), "missing ids are generated")

	require.Len(t, b.Links, 1)
	assert.Equal(t, chart.DirectionTo, b.Links[0].Direction)
	assert.Equal(t, "b", b.Links[0].ToEntityID)

	require.Len(t, b.Events, 1)
	assert.True(t, b.Events[0].IsEvent())
	require.NoError(t, chart.ValidateBatch(b))
}

func TestCSVImporterReportsBadRows(t *testing.T) {
	b, err := CSVImporter{}.Import(context.Background(), []byte("kind,type,x\nentity,person,abc\n"))
	require.NoError(t, err)
	assert.Contains(t, b.ErrorMessage, "line 2")
	assert.Empty(t, b.Entities)

	b, err = CSVImporter{}.Import(context.Background(), []byte("kind,id\nentity,a\n"))
	require.NoError(t, err)
	assert.Contains(t, b.ErrorMessage, "missing type column")

	b, err = CSVImporter{Comma: ';'}.Import(context.Background(), []byte("kind;type;from;to\nlink;knows;;\n"))
	require.NoError(t, err)
	assert.Contains(t, b.ErrorMessage, "link without from and to")
}

func TestCSVImporterHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CSVImporter{}.Import(ctx, []byte("type\nperson\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
