package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// CatalogDB is the plants table: the read-mostly species catalog.
type CatalogDB struct {
	db *DB
}

var _ repository.CatalogRepository = (*CatalogDB)(nil)

// Catalog returns the catalog repository.
func (db *DB) Catalog() *CatalogDB {
	return &CatalogDB{db: db}
}

const catalogColumns = `id, common_name, scientific_name, icon_image, spacing`

func scanCatalogPlant(row interface{ Scan(...any) error }, p *model.CatalogPlant) error {
	return row.Scan(&p.ID, &p.CommonName, &p.ScientificName, &p.IconImage, &p.Spacing)
}

func (c *CatalogDB) List(ctx context.Context) ([]model.CatalogPlant, error) {
	rows, err := c.db.conn.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM plants ORDER BY common_name, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing catalog: %w", err)
	}
	defer rows.Close()

	plants := make([]model.CatalogPlant, 0)
	for rows.Next() {
		var p model.CatalogPlant
		if err := scanCatalogPlant(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning catalog row: %w", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating catalog: %w", err)
	}
	return plants, nil
}

func (c *CatalogDB) GetByID(ctx context.Context, id int64) (*model.CatalogPlant, error) {
	var p model.CatalogPlant
	err := scanCatalogPlant(c.db.conn.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM plants WHERE id = ?`, id,
	), &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("plant", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting catalog plant %d: %w", id, err)
	}
	return &p, nil
}

// GetMany looks up several catalog rows at once. Unknown IDs are simply absent
// from the result; the caller decides whether that is an error.
func (c *CatalogDB) GetMany(ctx context.Context, ids []int64) (map[int64]model.CatalogPlant, error) {
	out := make(map[int64]model.CatalogPlant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := c.db.conn.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM plants WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: looking up catalog plants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.CatalogPlant
		if err := scanCatalogPlant(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning catalog row: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating catalog: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates catalog rows by ID in one transaction. Rows not in
// plants are left alone, since beds may still reference them.
func (c *CatalogDB) Upsert(ctx context.Context, plants []model.CatalogPlant) error {
	return c.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO plants (id, common_name, scientific_name, icon_image, spacing)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				common_name = excluded.common_name,
				scientific_name = excluded.scientific_name,
				icon_image = excluded.icon_image,
				spacing = excluded.spacing`)
		if err != nil {
			return fmt.Errorf("sqlite: preparing catalog upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range plants {
			if _, err := stmt.ExecContext(ctx,
				p.ID, p.CommonName, p.ScientificName, p.IconImage, p.Spacing,
			); err != nil {
				return fmt.Errorf("sqlite: upserting catalog plant %d: %w", p.ID, err)
			}
		}
		return nil
	})
}
