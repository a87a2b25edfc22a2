package chartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS charts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chart_snapshots (
	id         TEXT PRIMARY KEY,
	chart_id   TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (chart_id, version)
);
`

// Postgres implements Queries on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies Schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) CreateChart(ctx context.Context, id, name string) (ChartRow, error) {
	var c ChartRow
	err := p.pool.QueryRow(ctx,
		`INSERT INTO charts (id, name) VALUES ($1, $2)
		 RETURNING id, name, created_at, updated_at`,
		id, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (p *Postgres) GetChart(ctx context.Context, id string) (ChartRow, error) {
	var c ChartRow
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM charts WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func (p *Postgres) ListCharts(ctx context.Context) ([]ChartRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM charts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChartRow, error) {
		var c ChartRow
		err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

func (p *Postgres) DeleteChart(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM charts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSnapshot locks the chart row so concurrent saves get distinct
// versions.
func (p *Postgres) CreateSnapshot(ctx context.Context, id, chartID string, doc json.RawMessage) (SnapshotRow, error) {
	var s SnapshotRow
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM charts WHERE id = $1 FOR UPDATE`, chartID).Scan(&locked)
		if err != nil {
			return notFound(err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO chart_snapshots (id, chart_id, version, document)
			 VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM chart_snapshots WHERE chart_id = $2), $3)
			 RETURNING id, chart_id, version, document, created_at`,
			id, chartID, doc,
		).Scan(&s.ID, &s.ChartID, &s.Version, &s.Document, &s.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE charts SET updated_at = now() WHERE id = $1`, chartID)
		return err
	})
	return s, err
}

func (p *Postgres) GetLatestSnapshot(ctx context.Context, chartID string) (SnapshotRow, error) {
	var s SnapshotRow
	err := p.pool.QueryRow(ctx,
		`SELECT id, chart_id, version, document, created_at FROM chart_snapshots
		 WHERE chart_id = $1 ORDER BY version DESC LIMIT 1`, chartID,
	).Scan(&s.ID, &s.ChartID, &s.Version, &s.Document, &s.CreatedAt)
	return s, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
