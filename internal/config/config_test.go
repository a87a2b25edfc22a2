package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
[entities.person]
icon = "person.png"
color = "#1e90ff"
show = true
size = 12

[links.knows]
color = "#888888"
show = true

[[properties.person]]
type_id = "email"
label = "E-mail"
required = true
`

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Strict)
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(sampleCatalog)
	require.NoError(t, err)

	v, ok := c.EntityView("person")
	require.True(t, ok)
	assert.Equal(t, "person.png", v.Icon)
	assert.Equal(t, 12.0, v.Size)
	assert.True(t, v.Show)

	_, ok = c.LinkView("missing")
	assert.False(t, ok)

	props := c.PropertyConfig("person")
	require.Len(t, props, 1)
	assert.Equal(t, "email", props[0].TypeID)
	assert.True(t, props[0].Required)
}

func TestParseCatalogRejectsInvalidProperty(t *testing.T) {
	_, err := ParseCatalog("[[properties.person]]\nlabel = \"no type\"\n")
	assert.Error(t, err)
}

func TestCatalogWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	reloaded := make(chan *Catalog, 4)
	w, err := WatchCatalog(path, func(c *Catalog) { reloaded <- c })
	require.NoError(t, err)
	defer w.Close()

	v, _ := w.EntityView("person")
	assert.Equal(t, "#1e90ff", v.Color)

	require.NoError(t, os.WriteFile(path, []byte("[entities.person]\ncolor = \"#ff0000\"\nshow = true\n"), 0o644))
	select {
	case c := <-reloaded:
		assert.Equal(t, "#ff0000", c.Entities["person"].Color)
	case <-time.After(3 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	v, _ = w.EntityView("person")
	assert.Equal(t, "#ff0000", v.Color)
}

func TestCatalogWatcherKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))
	w, err := WatchCatalog(path, nil)
	require.NoError(t, err)
	defer w.Close()

	w.reload()
	before := w.Current()
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))
	w.reload()
	assert.Same(t, before, w.Current())
}
