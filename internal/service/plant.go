package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// PlantService saves and lists the plants of a bed.
type PlantService struct {
	beds    repository.BedRepository
	plants  repository.PlantRepository
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

func NewPlantService(
	beds repository.BedRepository,
	plants repository.PlantRepository,
	catalog repository.CatalogRepository,
	logger *slog.Logger,
) *PlantService {
	return &PlantService{
		beds:    beds,
		plants:  plants,
		catalog: catalog,
		logger:  logger,
	}
}

// List returns the bed's plants joined with their catalog rows.
func (s *PlantService) List(ctx context.Context, ownerID, gardenID, bedID string) ([]model.PlantInBed, error) {
	if _, err := s.beds.GetByID(ctx, ownerID, gardenID, bedID); err != nil {
		return nil, err
	}
	plants, err := s.plants.ListForBed(ctx, ownerID, gardenID, bedID)
	if err != nil {
		return nil, fmt.Errorf("listing plants of bed %s: %w", bedID, err)
	}
	if plants == nil {
		plants = []model.PlantInBed{}
	}
	return plants, nil
}

// Save replaces the bed's whole plant set with plants.
//
// The new set is laid out from scratch on an empty bed-sized grid in the
// order given, against the bed as stored inside the write transaction. The
// first plant that is out of bounds or collides with an earlier one fails the
// save with a validation error naming its index, and nothing is written.
// Concurrent saves are last-write-wins.
func (s *PlantService) Save(ctx context.Context, ownerID, gardenID, bedID string, plants []model.PlantInBed) ([]model.PlantInBed, error) {
	ids := make([]int64, len(plants))
	for i, p := range plants {
		ids[i] = p.PlantID
	}
	species, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("looking up catalog plants: %w", err)
	}

	for i := range plants {
		p := &plants[i]
		field := plantField(i)

		cp, ok := species[p.PlantID]
		if !ok {
			return nil, apperror.ValidationFailed(field+".plant_id",
				fmt.Sprintf("%s: unknown catalog plant %d", field, p.PlantID))
		}
		p.Role = strings.TrimSpace(p.Role)
		if len(p.Role) > MaxRoleLength {
			return nil, apperror.ValidationFailed(field+".plant_role",
				fmt.Sprintf("%s: plant_role must be %d characters or less", field, MaxRoleLength))
		}
		p.BedID = bedID
		p.CommonName = cp.CommonName
		p.ScientificName = cp.ScientificName
		p.IconImage = cp.IconImage
		p.Spacing = cp.Spacing
		if !layout.IsStandardSpacing(cp.Spacing) {
			s.logger.Warn("plant spacing has no exact footprint",
				slog.Int64("plant_id", cp.ID),
				slog.Int("spacing", cp.Spacing),
			)
		}
	}

	if plants == nil {
		plants = []model.PlantInBed{}
	}
	err = s.plants.ReplaceForBed(ctx, ownerID, gardenID, bedID, plants, func(bed *model.Bed) error {
		return layOutPlants(bed, plants)
	})
	if err != nil {
		return nil, fmt.Errorf("saving plants of bed %s: %w", bedID, err)
	}

	s.logger.Info("bed plants saved",
		slog.String("bed", bedID),
		slog.Int("count", len(plants)),
	)
	return plants, nil
}

// layOutPlants places plants, in order, on an empty grid the size of bed.
func layOutPlants(bed *model.Bed, plants []model.PlantInBed) error {
	grid, err := layout.New[int](bed.Width, bed.Height)
	if err != nil {
		return err
	}
	for i := range plants {
		if err := grid.Add(i, plants[i].Footprint()); err != nil {
			return placementFailed(plantField(i), err)
		}
	}
	return nil
}

func plantField(i int) string {
	return "plants[" + strconv.Itoa(i) + "]"
}
