package chartstore

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when MLA_TEST_DATABASE_URL is set.
func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("MLA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MLA_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	pg := NewPostgres(pool)
	require.NoError(t, pg.Migrate(ctx))
	svc := NewService(pg, nil)

	c, err := svc.Create(ctx, "integration")
	require.NoError(t, err)
	defer svc.Delete(ctx, c.ID)

	v, err := svc.Save(ctx, c.ID, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	snap, err := svc.Load(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, snap.File.Links, 1)

	_, err = pg.GetChart(ctx, "chart_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
