package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/analysis"
	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/store"
)

func writeChart(t *testing.T, file chart.SaveFile) string {
	t.Helper()
	data, err := json.Marshal(file)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chart.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func sampleChart() chart.SaveFile {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ent := func(id string, x float64) chart.Entity {
		return chart.Entity{Object: chart.Object{ID: id, TypeID: "person", LabelShort: id, PosX: x}}
	}
	late := ent("late", 90)
	late.DateFrom = &day
	return chart.SaveFile{
		Entities: []chart.Entity{ent("a", 0), ent("b", 40), ent("c", 80), late},
		Links: []chart.Link{
			{Object: chart.Object{ID: "ab", TypeID: "knows"}, FromEntityID: "a", FromEntityTypeID: "person", ToEntityID: "b", ToEntityTypeID: "person", Direction: chart.DirectionTo},
			{Object: chart.Object{ID: "bc", TypeID: "knows"}, FromEntityID: "b", FromEntityTypeID: "person", ToEntityID: "c", ToEntityTypeID: "person", Direction: chart.DirectionTo},
		},
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSliceCommand(t *testing.T) {
	path := writeChart(t, sampleChart())

	out, err := run(t, "slice", path, "--date", "2024-01-01")
	require.NoError(t, err)
	var before store.Slice
	require.NoError(t, json.Unmarshal([]byte(out), &before))
	assert.Len(t, before.Entities, 3)
	assert.Len(t, before.Links, 2)

	out, err = run(t, "slice", path, "--date", "2024-07-01")
	require.NoError(t, err)
	var after store.Slice
	require.NoError(t, json.Unmarshal([]byte(out), &after))
	assert.Len(t, after.Entities, 4)

	_, err = run(t, "slice", path, "--date", "June")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	path := writeChart(t, sampleChart())
	out := filepath.Join(t.TempDir(), "chart.png")

	_, err := run(t, "render", path, "-o", out, "--width", "320", "--height", "240", "--layout", "circular")
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestImportCommand(t *testing.T) {
	path := writeChart(t, sampleChart())
	input := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"kind,id,type,label,from,from_type,to,to_type\n"+
			"entity,d,person,Dana,,,,\n"+
			"link,cd,knows,,c,person,d,person\n"), 0644))
	merged := filepath.Join(t.TempDir(), "merged.json")

	out, err := run(t, "import", path, input, "--importer", "csv", "-o", merged)
	require.NoError(t, err)
	assert.Contains(t, out, "merged 1 entities, 1 links")

	file, err := readSaveFile(merged)
	require.NoError(t, err)
	assert.Len(t, file.Entities, 5)
	assert.Len(t, file.Links, 3)

	_, err = run(t, "import", path, input, "--importer", "xml")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("kind,id,type\nplanet,x,person\n"), 0644))
	_, err = run(t, "import", path, bad)
	assert.ErrorContains(t, err, "unknown kind")
}

func TestAnalyzeCommands(t *testing.T) {
	path := writeChart(t, sampleChart())

	out, err := run(t, "analyze", "degree", path, "--date", "2024-01-01")
	require.NoError(t, err)
	var scores []analysis.Score
	require.NoError(t, json.Unmarshal([]byte(out), &scores))
	require.NotEmpty(t, scores)
	assert.Equal(t, "bperson", scores[0].Key)

	out, err = run(t, "analyze", "path", path, "aperson", "cperson", "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "aperson\ta\nbperson\tb\ncperson\tc\n", out)

	out, err = run(t, "analyze", "reachable", path, "aperson", "--hops", "1", "--date", "2024-01-01")
	require.NoError(t, err)
	var dist map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &dist))
	assert.Equal(t, map[string]int{"aperson": 0, "bperson": 1}, dist)

	_, err = run(t, "analyze", "path", path, "aperson", "nobody", "--date", "2024-01-01")
	assert.ErrorIs(t, err, analysis.ErrUnknownNode)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", writeChart(t, sampleChart()))
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 4 entity versions, 2 link versions, 0 shapes")

	broken := sampleChart()
	broken.Links[0].ToEntityID = ""
	_, err = run(t, "validate", writeChart(t, broken))
	assert.ErrorContains(t, err, "link 0")
}
