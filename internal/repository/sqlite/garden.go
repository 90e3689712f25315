package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// GardenDB is the gardens table and the owner of the single-active-garden rule.
//
// ACTIVATION INVARIANT:
// A user has at most one garden with is_active = 1. Every write that can flip
// the flag does all of its steps inside withTx, so a failure at any step rolls
// back to the state before the call. No in-process lock is involved; SQLite's
// transaction isolation is the only ordering mechanism, which also holds when
// several server processes share the database file.
type GardenDB struct {
	db *DB
}

var _ repository.GardenRepository = (*GardenDB)(nil)

// Gardens returns the garden repository.
func (db *DB) Gardens() *GardenDB {
	return &GardenDB{db: db}
}

const gardenColumns = `id, user_id, garden_name, width, height, is_active, created_at, updated_at`

func scanGarden(row interface{ Scan(...any) error }, g *model.Garden) error {
	return row.Scan(
		&g.ID,
		&g.OwnerID,
		&g.Name,
		&g.Width,
		&g.Height,
		&g.IsActive,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
}

// CreateAndActivate runs, in one transaction:
//  1. deactivate every garden owned by garden.OwnerID
//  2. insert garden with is_active = 1
func (g *GardenDB) CreateAndActivate(ctx context.Context, garden *model.Garden) error {
	now := time.Now().UTC()
	garden.ID = xid.New().String()
	garden.IsActive = true
	garden.CreatedAt = now
	garden.UpdatedAt = now

	return g.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE gardens SET is_active = 0 WHERE user_id = ? AND is_active = 1`,
			garden.OwnerID,
		); err != nil {
			return fmt.Errorf("sqlite: deactivating gardens of %s: %w", garden.OwnerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gardens (id, user_id, garden_name, width, height, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
			garden.ID,
			garden.OwnerID,
			garden.Name,
			garden.Width,
			garden.Height,
			garden.CreatedAt,
			garden.UpdatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting garden: %w", err)
		}
		return nil
	})
}

// GetByID returns the garden only if ownerID owns it.
func (g *GardenDB) GetByID(ctx context.Context, ownerID, gardenID string) (*model.Garden, error) {
	var garden model.Garden
	err := scanGarden(g.db.conn.QueryRowContext(ctx,
		`SELECT `+gardenColumns+` FROM gardens WHERE id = ? AND user_id = ?`,
		gardenID, ownerID,
	), &garden)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("garden", gardenID)
		}
		return nil, fmt.Errorf("sqlite: getting garden %s: %w", gardenID, err)
	}
	return &garden, nil
}

// ListByOwner returns the owner's gardens, newest first.
func (g *GardenDB) ListByOwner(ctx context.Context, ownerID string) ([]model.Garden, error) {
	rows, err := g.db.conn.QueryContext(ctx,
		`SELECT `+gardenColumns+` FROM gardens WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing gardens: %w", err)
	}
	defer rows.Close()

	gardens := make([]model.Garden, 0)
	for rows.Next() {
		var garden model.Garden
		if err := scanGarden(rows, &garden); err != nil {
			return nil, fmt.Errorf("sqlite: scanning garden row: %w", err)
		}
		gardens = append(gardens, garden)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating gardens: %w", err)
	}
	return gardens, nil
}

// Update is setActive plus the ordinary field update, in one transaction:
//  1. read the garden and its beds, scoped by owner
//  2. hand plan a copy of the garden to edit
//  3. if the planned garden is active, deactivate the owner's other gardens
//  4. update the garden row
//  5. move the beds plan named to the unplaced state
//
// A garden ownerID does not own is not found at step 1, before anything is written.
func (g *GardenDB) Update(ctx context.Context, ownerID, gardenID string, plan repository.GardenPlan) (*model.Garden, error) {
	var garden model.Garden
	err := g.db.withTx(ctx, func(tx *sql.Tx) error {
		state, err := gardenState(ctx, tx, ownerID, gardenID)
		if err != nil {
			return err
		}
		garden = state.Garden
		unplaceBedIDs, err := plan(state, &garden)
		if err != nil {
			return err
		}
		garden.ID, garden.OwnerID = state.Garden.ID, state.Garden.OwnerID
		garden.UpdatedAt = time.Now().UTC()

		if garden.IsActive {
			if _, err := tx.ExecContext(ctx,
				`UPDATE gardens SET is_active = 0 WHERE user_id = ? AND id != ?`,
				garden.OwnerID, garden.ID,
			); err != nil {
				return fmt.Errorf("sqlite: deactivating other gardens of %s: %w", garden.OwnerID, err)
			}
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE gardens
			 SET garden_name = ?, width = ?, height = ?, is_active = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			garden.Name,
			garden.Width,
			garden.Height,
			garden.IsActive,
			garden.UpdatedAt,
			garden.ID,
			garden.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating garden %s: %w", garden.ID, err)
		}
		if err := checkAffected(result, apperror.NotFound("garden", garden.ID)); err != nil {
			return err
		}

		if len(unplaceBedIDs) == 0 {
			return nil
		}
		args := make([]any, 0, len(unplaceBedIDs)+2)
		args = append(args, garden.UpdatedAt, garden.ID)
		for _, id := range unplaceBedIDs {
			args = append(args, id)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE garden_beds SET top_position = -1, left_position = -1, updated_at = ?
			 WHERE garden_id = ? AND id IN (`+placeholders(len(unplaceBedIDs))+`)`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("sqlite: unplacing beds of garden %s: %w", garden.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &garden, nil
}

// gardenState reads the garden and its beds with their plants through q. Run
// inside a transaction, the checks made against it hold until commit.
func gardenState(ctx context.Context, q querier, ownerID, gardenID string) (repository.GardenState, error) {
	var state repository.GardenState
	err := scanGarden(q.QueryRowContext(ctx,
		`SELECT `+gardenColumns+` FROM gardens WHERE id = ? AND user_id = ?`,
		gardenID, ownerID,
	), &state.Garden)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state, apperror.NotFound("garden", gardenID)
		}
		return state, fmt.Errorf("sqlite: reading garden %s: %w", gardenID, err)
	}
	state.Beds, err = bedsWithPlants(ctx, q, ownerID, gardenID)
	if err != nil {
		return state, err
	}
	return state, nil
}

// Delete runs, in one transaction:
//  1. read the garden's active flag, scoped by owner
//  2. delete its plants, beds and the garden row
//  3. if it was active, activate the owner's most recently created remaining garden
//
// Deleting an inactive garden leaves activation alone. Deleting the last garden
// leaves the owner with none active.
func (g *GardenDB) Delete(ctx context.Context, ownerID, gardenID string) error {
	return g.db.withTx(ctx, func(tx *sql.Tx) error {
		var wasActive bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM gardens WHERE id = ? AND user_id = ?`,
			gardenID, ownerID,
		).Scan(&wasActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("garden", gardenID)
			}
			return fmt.Errorf("sqlite: reading garden %s: %w", gardenID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM plants_in_beds WHERE bed_id IN (SELECT id FROM garden_beds WHERE garden_id = ?)`,
			gardenID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting plants of garden %s: %w", gardenID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM garden_beds WHERE garden_id = ?`, gardenID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting beds of garden %s: %w", gardenID, err)
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM gardens WHERE id = ? AND user_id = ?`, gardenID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting garden %s: %w", gardenID, err)
		}
		if err := checkAffected(result, apperror.NotFound("garden", gardenID)); err != nil {
			return err
		}

		if !wasActive {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE gardens SET is_active = 1 WHERE id = (
				SELECT id FROM gardens WHERE user_id = ?
				ORDER BY created_at DESC, rowid DESC LIMIT 1)`,
			ownerID,
		); err != nil {
			return fmt.Errorf("sqlite: activating next garden of %s: %w", ownerID, err)
		}
		return nil
	})
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
