package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"upc-catalog/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS catalog_records (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  image TEXT NOT NULL,
  weight DOUBLE PRECISION NOT NULL,
  weight_unit TEXT NOT NULL,
  retailers JSONB NOT NULL DEFAULT '[]'::jsonb
)`

type postgresBackend struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to Postgres and ensures the catalog table exists
func OpenPostgres(ctx context.Context, dsn string) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return newCatalog(&postgresBackend{pool: pool}), nil
}

func (p *postgresBackend) get(ctx context.Context, id string) (*types.CatalogRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE id = $1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan get: %w", err)
	}
	return record, nil
}

func (p *postgresBackend) mutate(ctx context.Context, id string, fn mutateFunc) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO catalog_records (`+recordColumns+`)
		VALUES ($1, '', '', 0, '', '[]'::jsonb)
		ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("reserve row: %w", err)
	}

	var existing *types.CatalogRecord
	if tag.RowsAffected() == 0 {
		row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE id = $1 FOR UPDATE`, id)
		existing, err = scanRecord(row)
		if err != nil {
			return fmt.Errorf("scan for update: %w", err)
		}
	}

	next, err := fn(existing)
	if err != nil {
		return err
	}

	retailers, err := json.Marshal(next.Retailers)
	if err != nil {
		return fmt.Errorf("marshal retailers for %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE catalog_records
		SET title = $2, image = $3, weight = $4, weight_unit = $5, retailers = $6::jsonb
		WHERE id = $1`,
		id, next.Title, next.Image, next.Weight, next.WeightUnit, string(retailers),
	); err != nil {
		return fmt.Errorf("exec update for %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *postgresBackend) delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM catalog_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgresBackend) list(ctx context.Context) ([]types.CatalogRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+recordColumns+` FROM catalog_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []types.CatalogRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (p *postgresBackend) countByRetailer(ctx context.Context) ([]types.Count, error) {
	return p.counts(ctx, `
		SELECT offer->>'retailer', COUNT(*)
		FROM catalog_records, jsonb_array_elements(retailers) AS offer
		GROUP BY 1
		ORDER BY 1`)
}

func (p *postgresBackend) countByWeightUnit(ctx context.Context) ([]types.Count, error) {
	return p.counts(ctx, `
		SELECT weight_unit, COUNT(*)
		FROM catalog_records
		GROUP BY weight_unit
		ORDER BY weight_unit`)
}

func (p *postgresBackend) counts(ctx context.Context, query string) ([]types.Count, error) {
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}
	defer rows.Close()

	out := []types.Count{}
	for rows.Next() {
		var c types.Count
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, fmt.Errorf("count scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *postgresBackend) close() error {
	p.pool.Close()
	return nil
}
