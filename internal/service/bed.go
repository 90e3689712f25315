package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// BedService places beds inside gardens and reconciles a bed's plants when
// the bed is resized.
type BedService struct {
	gardens repository.GardenRepository
	beds    repository.BedRepository
	plants  repository.PlantRepository
	logger  *slog.Logger
}

func NewBedService(
	gardens repository.GardenRepository,
	beds repository.BedRepository,
	plants repository.PlantRepository,
	logger *slog.Logger,
) *BedService {
	return &BedService{
		gardens: gardens,
		beds:    beds,
		plants:  plants,
		logger:  logger,
	}
}

// List returns the garden's beds with their plants. An unknown or foreign
// garden is reported as not found rather than as an empty list.
func (s *BedService) List(ctx context.Context, ownerID, gardenID string) ([]model.Bed, error) {
	if _, err := s.gardens.GetByID(ctx, ownerID, gardenID); err != nil {
		return nil, err
	}
	beds, err := s.beds.ListByGarden(ctx, ownerID, gardenID)
	if err != nil {
		return nil, fmt.Errorf("listing beds: %w", err)
	}
	if beds == nil {
		beds = []model.Bed{}
	}
	return beds, nil
}

// Get returns one bed with its plants.
func (s *BedService) Get(ctx context.Context, ownerID, gardenID, bedID string) (*model.Bed, error) {
	bed, err := s.beds.GetByID(ctx, ownerID, gardenID, bedID)
	if err != nil {
		return nil, err
	}
	plants, err := s.plants.ListForBed(ctx, ownerID, gardenID, bedID)
	if err != nil {
		return nil, fmt.Errorf("listing plants of bed %s: %w", bedID, err)
	}
	bed.Plants = plants
	return bed, nil
}

// Create adds a bed to the garden. Without top_position/left_position the
// bed starts unplaced; with them it must fit the garden and not overlap any
// placed bed. The garden is checked as it stands inside the insert
// transaction.
func (s *BedService) Create(ctx context.Context, ownerID, gardenID string, in model.BedInput) (*model.Bed, error) {
	if in.Name == nil || in.Width == nil || in.Height == nil {
		return nil, apperror.ValidationFailed("bed", "name, width and height are required")
	}
	name, err := requireName("name", *in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkSide("width", *in.Width); err != nil {
		return nil, err
	}
	if err := checkSide("height", *in.Height); err != nil {
		return nil, err
	}
	pos, err := positionFromInput(in, layout.Unplaced())
	if err != nil {
		return nil, err
	}

	bed := &model.Bed{
		GardenID: gardenID,
		Name:     name,
		Width:    *in.Width,
		Height:   *in.Height,
		Position: pos,
		Plants:   []model.PlantInBed{},
	}
	err = s.beds.Create(ctx, ownerID, bed, func(state repository.GardenState) error {
		if err := fitsGarden(&state.Garden, bed.Width, bed.Height); err != nil {
			return err
		}
		return checkPlacement(state, bed)
	})
	if err != nil {
		return nil, fmt.Errorf("creating bed: %w", err)
	}

	s.logger.Info("bed created",
		slog.String("id", bed.ID),
		slog.String("garden", gardenID),
		slog.String("position", bed.Position.String()),
	)
	return bed, nil
}

// Update renames, moves, unplaces or resizes a bed. Absent fields keep their
// stored value.
//
// When the bed shrinks, plants that no longer fit are dropped. Unless confirm
// is set the update is refused with ErrConfirmationRequired listing them. A
// confirmed shrink deletes exactly those plants in the same transaction as
// the bed write; the rest keep their IDs and positions.
func (s *BedService) Update(ctx context.Context, ownerID, gardenID, bedID string, in model.BedInput, confirm bool) (*model.BedUpdate, error) {
	if in.Name != nil {
		if _, err := requireName("name", *in.Name); err != nil {
			return nil, err
		}
	}
	if in.Width != nil {
		if err := checkSide("width", *in.Width); err != nil {
			return nil, err
		}
	}
	if in.Height != nil {
		if err := checkSide("height", *in.Height); err != nil {
			return nil, err
		}
	}

	var dropped []model.PlantInBed
	bed, err := s.beds.Update(ctx, ownerID, gardenID, bedID, func(state repository.GardenState, bed *model.Bed) ([]string, error) {
		var err error
		dropped, err = s.planBedUpdate(state, bed, in, confirm)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(dropped))
		for i := range dropped {
			ids[i] = dropped[i].ID
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating bed %s: %w", bedID, err)
	}

	if len(dropped) > 0 {
		s.logger.Info("bed shrunk",
			slog.String("id", bedID),
			slog.Int("width", bed.Width),
			slog.Int("height", bed.Height),
			slog.Int("dropped_plants", len(dropped)),
		)
	}
	if bed.Plants == nil {
		bed.Plants = []model.PlantInBed{}
	}
	return &model.BedUpdate{Bed: bed, DroppedPlants: dropped}, nil
}

// planBedUpdate applies in to bed, the stored copy, and returns the plants a
// shrink drops. bed.Plants is left holding the survivors.
func (s *BedService) planBedUpdate(state repository.GardenState, bed *model.Bed, in model.BedInput, confirm bool) ([]model.PlantInBed, error) {
	if in.Name != nil {
		name, err := requireName("name", *in.Name)
		if err != nil {
			return nil, err
		}
		bed.Name = name
	}
	oldW, oldH := bed.Width, bed.Height
	if in.Width != nil {
		bed.Width = *in.Width
	}
	if in.Height != nil {
		bed.Height = *in.Height
	}
	if bed.Width != oldW || bed.Height != oldH {
		if err := fitsGarden(&state.Garden, bed.Width, bed.Height); err != nil {
			return nil, err
		}
	}

	var err error
	if bed.Position, err = positionFromInput(in, bed.Position); err != nil {
		return nil, err
	}
	if err := checkPlacement(state, bed); err != nil {
		return nil, err
	}

	if bed.Width >= oldW && bed.Height >= oldH {
		return nil, nil
	}
	kept, dropped, err := s.reconcilePlants(bed, oldW, oldH)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 && !confirm {
		return nil, apperror.ConfirmationRequired(
			fmt.Sprintf("resizing the bed to %dx%d removes %d plant(s)", bed.Width, bed.Height, len(dropped)),
			ResizeImpact{Width: bed.Width, Height: bed.Height, DroppedPlants: dropped},
		)
	}
	bed.Plants = kept
	return dropped, nil
}

// Delete removes the bed and its plants.
func (s *BedService) Delete(ctx context.Context, ownerID, gardenID, bedID string) error {
	if err := s.beds.Delete(ctx, ownerID, gardenID, bedID); err != nil {
		return fmt.Errorf("deleting bed %s: %w", bedID, err)
	}
	s.logger.Info("bed deleted", slog.String("id", bedID), slog.String("garden", gardenID))
	return nil
}

// checkPlacement validates a placed bed against the garden bounds and every
// other placed bed in state. Unplaced beds always pass.
func checkPlacement(state repository.GardenState, bed *model.Bed) error {
	fp, placed := bed.Footprint()
	if !placed {
		return nil
	}
	occupants := make([]layout.Footprint, 0, len(state.Beds))
	for _, b := range state.Beds {
		if b.ID == bed.ID {
			continue
		}
		if other, ok := b.Footprint(); ok {
			occupants = append(occupants, other)
		}
	}
	return placementFailed("position", layout.Check(state.Garden.Width, state.Garden.Height, occupants, fp))
}

// reconcilePlants splits the bed's plants into those that survive the resize
// from oldW x oldH and those that are dropped. Positions are never adjusted.
func (s *BedService) reconcilePlants(bed *model.Bed, oldW, oldH int) (kept, dropped []model.PlantInBed, err error) {
	items := make([]layout.Item[int], len(bed.Plants))
	for i := range bed.Plants {
		items[i] = layout.Item[int]{Key: i, Footprint: bed.Plants[i].Footprint()}
	}
	grid, rejected, err := layout.Build(oldW, oldH, items)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rejected {
		s.logger.Warn("stored plant violates its bed layout",
			slog.String("bed", bed.ID),
			slog.String("plant", bed.Plants[r.Item.Key].ID),
			slog.String("error", r.Err.Error()),
		)
	}

	removed, err := grid.Resize(bed.Width, bed.Height)
	if err != nil {
		return nil, nil, err
	}
	for _, it := range grid.Items() {
		kept = append(kept, bed.Plants[it.Key])
	}
	for _, it := range removed {
		dropped = append(dropped, bed.Plants[it.Key])
	}
	for _, r := range rejected {
		dropped = append(dropped, bed.Plants[r.Item.Key])
	}
	return kept, dropped, nil
}

// positionFromInput resolves the requested position. top and left must be
// given together; with neither, current is kept.
func positionFromInput(in model.BedInput, current layout.Position) (layout.Position, error) {
	switch {
	case in.Top == nil && in.Left == nil:
		return current, nil
	case in.Top == nil || in.Left == nil:
		return layout.Position{}, apperror.ValidationFailed("position",
			"top_position and left_position must be given together")
	}
	pos, err := layout.PositionFromWire(*in.Top, *in.Left)
	if err != nil {
		return layout.Position{}, apperror.ValidationFailed("position", err.Error())
	}
	return pos, nil
}

// fitsGarden rejects a bed that could never be placed in the garden.
func fitsGarden(garden *model.Garden, width, height int) error {
	if width > garden.Width || height > garden.Height {
		return apperror.ValidationFailed("size",
			fmt.Sprintf("bed %dx%d does not fit garden %dx%d", width, height, garden.Width, garden.Height))
	}
	return nil
}
