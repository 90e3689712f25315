package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// BedDB is the garden_beds table. Every query joins gardens so a bed is only
// visible to the owner of its garden.
type BedDB struct {
	db *DB
}

var _ repository.BedRepository = (*BedDB)(nil)

// Beds returns the bed repository.
func (db *DB) Beds() *BedDB {
	return &BedDB{db: db}
}

const bedColumns = `gb.id, gb.garden_id, gb.name, gb.width, gb.height,
	gb.top_position, gb.left_position, gb.created_at, gb.updated_at`

// scanBed reads a row and converts the stored (top, left) pair back into a Position.
func scanBed(row interface{ Scan(...any) error }, b *model.Bed) error {
	var top, left int
	if err := row.Scan(
		&b.ID,
		&b.GardenID,
		&b.Name,
		&b.Width,
		&b.Height,
		&top,
		&left,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return err
	}
	pos, err := layout.PositionFromWire(top, left)
	if err != nil {
		return fmt.Errorf("bed %s: %w", b.ID, err)
	}
	b.Position = pos
	return nil
}

// Create inserts bed into its garden. The garden and its beds are read in the
// same transaction and handed to check first; only the owner's garden is
// visible, anything else is reported as not found.
func (r *BedDB) Create(ctx context.Context, ownerID string, bed *model.Bed, check repository.BedCheck) error {
	now := time.Now().UTC()
	bed.ID = xid.New().String()
	bed.CreatedAt = now
	bed.UpdatedAt = now
	top, left := bed.Position.Wire()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		state, err := gardenState(ctx, tx, ownerID, bed.GardenID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(state); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO garden_beds (id, garden_id, name, width, height, top_position, left_position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bed.ID,
			bed.GardenID,
			bed.Name,
			bed.Width,
			bed.Height,
			top,
			left,
			bed.CreatedAt,
			bed.UpdatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting bed: %w", err)
		}
		return nil
	})
}

// GetByID returns the bed without its plants.
func (r *BedDB) GetByID(ctx context.Context, ownerID, gardenID, bedID string) (*model.Bed, error) {
	var bed model.Bed
	err := scanBed(r.db.conn.QueryRowContext(ctx,
		`SELECT `+bedColumns+`
		 FROM garden_beds gb
		 JOIN gardens g ON gb.garden_id = g.id
		 WHERE g.user_id = ? AND g.id = ? AND gb.id = ?`,
		ownerID, gardenID, bedID,
	), &bed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("bed", bedID)
		}
		return nil, fmt.Errorf("sqlite: getting bed %s: %w", bedID, err)
	}
	return &bed, nil
}

// ListByGarden returns the garden's beds in creation order, each with its plants.
func (r *BedDB) ListByGarden(ctx context.Context, ownerID, gardenID string) ([]model.Bed, error) {
	return bedsWithPlants(ctx, r.db.conn, ownerID, gardenID)
}

// bedsWithPlants reads the beds first and fully closes them, then reads every
// plant in the garden in one query and attaches them by bed_id. With a single
// pooled connection the first result set must be closed before the second
// query can run.
func bedsWithPlants(ctx context.Context, q querier, ownerID, gardenID string) ([]model.Bed, error) {
	beds, err := listBeds(ctx, q, ownerID, gardenID)
	if err != nil {
		return nil, err
	}
	if len(beds) == 0 {
		return beds, nil
	}

	plants, err := listPlants(ctx, q,
		`JOIN gardens g ON gb.garden_id = g.id WHERE g.user_id = ? AND g.id = ?`,
		ownerID, gardenID,
	)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(beds))
	for i := range beds {
		index[beds[i].ID] = i
		beds[i].Plants = []model.PlantInBed{}
	}
	for _, p := range plants {
		if i, ok := index[p.BedID]; ok {
			beds[i].Plants = append(beds[i].Plants, p)
		}
	}
	return beds, nil
}

func listBeds(ctx context.Context, q querier, ownerID, gardenID string) ([]model.Bed, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+bedColumns+`
		 FROM garden_beds gb
		 JOIN gardens g ON gb.garden_id = g.id
		 WHERE g.user_id = ? AND g.id = ?
		 ORDER BY gb.created_at, gb.rowid`,
		ownerID, gardenID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing beds: %w", err)
	}
	defer rows.Close()

	beds := make([]model.Bed, 0)
	for rows.Next() {
		var bed model.Bed
		if err := scanBed(rows, &bed); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bed row: %w", err)
		}
		beds = append(beds, bed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating beds: %w", err)
	}
	return beds, nil
}

// Update runs, in one transaction:
//  1. read the garden, its beds and their plants, scoped by owner
//  2. hand plan a copy of the bed to edit
//  3. write the bed row
//  4. delete the plants plan dropped
//
// Plants that are not dropped are never rewritten, so they keep their IDs,
// positions and planted dates.
func (r *BedDB) Update(ctx context.Context, ownerID, gardenID, bedID string, plan repository.BedPlan) (*model.Bed, error) {
	var updated model.Bed
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		state, err := gardenState(ctx, tx, ownerID, gardenID)
		if err != nil {
			return err
		}
		current, ok := findBed(state.Beds, bedID)
		if !ok {
			return apperror.NotFound("bed", bedID)
		}

		updated = current
		updated.Plants = append([]model.PlantInBed{}, current.Plants...)
		dropped, err := plan(state, &updated)
		if err != nil {
			return err
		}
		updated.ID, updated.GardenID = current.ID, current.GardenID
		updated.UpdatedAt = time.Now().UTC()

		if err := updateBed(ctx, tx, ownerID, &updated); err != nil {
			return err
		}
		return deletePlants(ctx, tx, bedID, dropped)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func findBed(beds []model.Bed, id string) (model.Bed, bool) {
	for _, b := range beds {
		if b.ID == id {
			return b, true
		}
	}
	return model.Bed{}, false
}

func updateBed(ctx context.Context, q querier, ownerID string, bed *model.Bed) error {
	top, left := bed.Position.Wire()
	result, err := q.ExecContext(ctx,
		`UPDATE garden_beds
		 SET name = ?, width = ?, height = ?, top_position = ?, left_position = ?, updated_at = ?
		 WHERE id = ? AND garden_id = ?
		 AND EXISTS (SELECT 1 FROM gardens WHERE id = ? AND user_id = ?)`,
		bed.Name,
		bed.Width,
		bed.Height,
		top,
		left,
		bed.UpdatedAt,
		bed.ID,
		bed.GardenID,
		bed.GardenID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating bed %s: %w", bed.ID, err)
	}
	return checkAffected(result, apperror.NotFound("bed", bed.ID))
}

// Delete removes the bed and its plants in one transaction.
func (r *BedDB) Delete(ctx context.Context, ownerID, gardenID, bedID string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM plants_in_beds WHERE bed_id IN (
				SELECT gb.id FROM garden_beds gb
				JOIN gardens g ON gb.garden_id = g.id
				WHERE g.user_id = ? AND g.id = ? AND gb.id = ?)`,
			ownerID, gardenID, bedID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting plants of bed %s: %w", bedID, err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM garden_beds
			 WHERE id = ? AND garden_id = ?
			 AND EXISTS (SELECT 1 FROM gardens WHERE id = ? AND user_id = ?)`,
			bedID, gardenID, gardenID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting bed %s: %w", bedID, err)
		}
		return checkAffected(result, apperror.NotFound("bed", bedID))
	})
}
