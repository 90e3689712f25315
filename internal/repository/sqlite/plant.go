package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// PlantDB is the plants_in_beds table.
type PlantDB struct {
	db *DB
}

var _ repository.PlantRepository = (*PlantDB)(nil)

// Plants returns the plants-in-beds repository.
func (db *DB) Plants() *PlantDB {
	return &PlantDB{db: db}
}

// ReplaceForBed is the full-overwrite save. In one transaction it:
//  1. reads the bed, scoped by owner through its garden
//  2. hands it to check
//  3. deletes every plant in the bed
//  4. inserts plants
//
// IDs and planted dates are written back into the plants slice.
func (r *PlantDB) ReplaceForBed(ctx context.Context, ownerID, gardenID, bedID string, plants []model.PlantInBed, check repository.PlantCheck) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var bed model.Bed
		err := scanBed(tx.QueryRowContext(ctx,
			`SELECT `+bedColumns+`
			 FROM garden_beds gb
			 JOIN gardens g ON gb.garden_id = g.id
			 WHERE g.user_id = ? AND g.id = ? AND gb.id = ?`,
			ownerID, gardenID, bedID,
		), &bed)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("bed", bedID)
			}
			return fmt.Errorf("sqlite: reading bed %s: %w", bedID, err)
		}
		if check != nil {
			if err := check(&bed); err != nil {
				return err
			}
		}
		return replacePlants(ctx, tx, bedID, plants)
	})
}

// deletePlants removes the named plants of the bed and leaves the rest alone.
func deletePlants(ctx context.Context, tx *sql.Tx, bedID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, bedID)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM plants_in_beds WHERE bed_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("sqlite: deleting plants of bed %s: %w", bedID, err)
	}
	return nil
}

// replacePlants must run inside a transaction that already owns the bed.
func replacePlants(ctx context.Context, tx *sql.Tx, bedID string, plants []model.PlantInBed) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM plants_in_beds WHERE bed_id = ?`, bedID); err != nil {
		return fmt.Errorf("sqlite: clearing plants of bed %s: %w", bedID, err)
	}
	if len(plants) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plants_in_beds (id, bed_id, plant_id, x_position, y_position, plant_role, planted_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing plant insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range plants {
		p := &plants[i]
		p.ID = xid.New().String()
		p.BedID = bedID
		if p.PlantedDate.IsZero() {
			p.PlantedDate = now
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.BedID, p.PlantID, p.X, p.Y, p.Role, p.PlantedDate,
		); err != nil {
			return fmt.Errorf("sqlite: inserting plant %d into bed %s: %w", p.PlantID, bedID, err)
		}
	}
	return nil
}

// ListForBed returns the bed's plants joined with their catalog rows.
func (r *PlantDB) ListForBed(ctx context.Context, ownerID, gardenID, bedID string) ([]model.PlantInBed, error) {
	return listPlants(ctx, r.db.conn,
		`JOIN gardens g ON gb.garden_id = g.id WHERE g.user_id = ? AND g.id = ? AND gb.id = ?`,
		ownerID, gardenID, bedID,
	)
}

// listPlants runs the plant/catalog join with a caller-supplied tail. The tail
// may join gardens as g; garden_beds is gb.
func listPlants(ctx context.Context, q querier, tail string, args ...any) ([]model.PlantInBed, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT pb.id, pb.bed_id, pb.plant_id, pb.x_position, pb.y_position, pb.plant_role, pb.planted_date,
		        p.common_name, p.scientific_name, p.icon_image, p.spacing
		 FROM plants_in_beds pb
		 JOIN garden_beds gb ON pb.bed_id = gb.id
		 JOIN plants p ON pb.plant_id = p.id
		 `+tail+`
		 ORDER BY pb.rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plants: %w", err)
	}
	defer rows.Close()

	plants := make([]model.PlantInBed, 0)
	for rows.Next() {
		var p model.PlantInBed
		if err := rows.Scan(
			&p.ID, &p.BedID, &p.PlantID, &p.X, &p.Y, &p.Role, &p.PlantedDate,
			&p.CommonName, &p.ScientificName, &p.IconImage, &p.Spacing,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning plant row: %w", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating plants: %w", err)
	}
	return plants, nil
}
