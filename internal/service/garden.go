// Package service contains the business rules of the garden planner.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)      → parses query params and bodies, writes responses
//	Service (rules)     → validates, runs placement checks, asks for confirmation
//	Repository (SQLite) → owner-scoped reads and transactional writes
//
// Services take repository interfaces, never *sqlite.DB, so the tests in
// this package run against in-memory fakes.
//
// Every method takes the requesting owner's ID. Records owned by someone
// else surface as apperror.ErrNotFound from the repository.
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

// GardenService handles garden lifecycle and garden resizing.
type GardenService struct {
	gardens repository.GardenRepository
	logger  *slog.Logger
}

func NewGardenService(gardens repository.GardenRepository, logger *slog.Logger) *GardenService {
	return &GardenService{
		gardens: gardens,
		logger:  logger,
	}
}

// Create validates in and stores it as the owner's new active garden.
// Name, width and height are all required.
func (s *GardenService) Create(ctx context.Context, ownerID string, in model.GardenInput) (*model.Garden, error) {
	if in.Name == nil || in.Width == nil || in.Height == nil {
		return nil, apperror.ValidationFailed("garden", "garden_name, width and height are required")
	}
	name, err := requireName("garden_name", *in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkSide("width", *in.Width); err != nil {
		return nil, err
	}
	if err := checkSide("height", *in.Height); err != nil {
		return nil, err
	}

	garden := &model.Garden{
		OwnerID: ownerID,
		Name:    name,
		Width:   *in.Width,
		Height:  *in.Height,
	}
	if err := s.gardens.CreateAndActivate(ctx, garden); err != nil {
		return nil, fmt.Errorf("creating garden: %w", err)
	}

	s.logger.Info("garden created",
		slog.String("id", garden.ID),
		slog.String("owner", ownerID),
		slog.Int("width", garden.Width),
		slog.Int("height", garden.Height),
	)
	return garden, nil
}

func (s *GardenService) Get(ctx context.Context, ownerID, gardenID string) (*model.Garden, error) {
	return s.gardens.GetByID(ctx, ownerID, gardenID)
}

// List returns the owner's gardens, newest first.
func (s *GardenService) List(ctx context.Context, ownerID string) ([]model.Garden, error) {
	gardens, err := s.gardens.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing gardens: %w", err)
	}
	if gardens == nil {
		gardens = []model.Garden{}
	}
	return gardens, nil
}

// Update applies the non-nil fields of in.
//
// Setting is_active=true makes this the owner's only active garden.
// Shrinking the garden moves every placed bed that no longer fits into the
// unplaced state. That is destructive for the layout, so unless confirm is
// set the update is refused with ErrConfirmationRequired listing those beds.
// A garden can never shrink below the size of one of its beds.
func (s *GardenService) Update(ctx context.Context, ownerID, gardenID string, in model.GardenInput, confirm bool) (*model.GardenUpdate, error) {
	if in.Name != nil {
		if _, err := requireName("garden_name", *in.Name); err != nil {
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

	var unplaced []model.Bed
	garden, err := s.gardens.Update(ctx, ownerID, gardenID, func(state repository.GardenState, garden *model.Garden) ([]string, error) {
		var err error
		unplaced, err = s.planGardenUpdate(state, garden, in, confirm)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(unplaced))
		for i := range unplaced {
			ids[i] = unplaced[i].ID
			unplaced[i].Position = layout.Unplaced()
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating garden %s: %w", gardenID, err)
	}

	if len(unplaced) > 0 {
		s.logger.Info("garden shrunk",
			slog.String("id", gardenID),
			slog.Int("width", garden.Width),
			slog.Int("height", garden.Height),
			slog.Int("unplaced_beds", len(unplaced)),
		)
	}
	return &model.GardenUpdate{Garden: garden, UnplacedBeds: unplaced}, nil
}

// planGardenUpdate applies in to garden, the stored copy, and returns the
// placed beds a shrink pushes out.
func (s *GardenService) planGardenUpdate(state repository.GardenState, garden *model.Garden, in model.GardenInput, confirm bool) ([]model.Bed, error) {
	if in.Name != nil {
		name, err := requireName("garden_name", *in.Name)
		if err != nil {
			return nil, err
		}
		garden.Name = name
	}
	if in.Width != nil {
		garden.Width = *in.Width
	}
	if in.Height != nil {
		garden.Height = *in.Height
	}
	if in.IsActive != nil {
		garden.IsActive = *in.IsActive
	}

	oldW, oldH := state.Garden.Width, state.Garden.Height
	if garden.Width >= oldW && garden.Height >= oldH {
		return nil, nil
	}
	for _, b := range state.Beds {
		if b.Width > garden.Width || b.Height > garden.Height {
			return nil, apperror.ValidationFailed("size", fmt.Sprintf(
				"garden %dx%d is smaller than bed %q (%dx%d); shrink or delete the bed first",
				garden.Width, garden.Height, b.Name, b.Width, b.Height))
		}
	}

	unplaced, err := s.bedsOutside(state.Beds, oldW, oldH, garden.Width, garden.Height)
	if err != nil {
		return nil, err
	}
	if len(unplaced) > 0 && !confirm {
		return nil, apperror.ConfirmationRequired(
			fmt.Sprintf("resizing the garden to %dx%d unplaces %d bed(s)", garden.Width, garden.Height, len(unplaced)),
			ResizeImpact{Width: garden.Width, Height: garden.Height, UnplacedBeds: unplaced},
		)
	}
	return unplaced, nil
}

// bedsOutside returns the placed beds that would not survive resizing the
// garden from oldW x oldH to newW x newH.
func (s *GardenService) bedsOutside(beds []model.Bed, oldW, oldH, newW, newH int) ([]model.Bed, error) {
	byID := make(map[string]model.Bed, len(beds))
	items := make([]layout.Item[string], 0, len(beds))
	for _, b := range beds {
		if fp, ok := b.Footprint(); ok {
			byID[b.ID] = b
			items = append(items, layout.Item[string]{Key: b.ID, Footprint: fp})
		}
	}

	grid, rejected, err := layout.Build(oldW, oldH, items)
	if err != nil {
		return nil, err
	}
	_, dropped := grid.PlanResize(newW, newH)

	out := make([]model.Bed, 0, len(dropped)+len(rejected))
	for _, it := range dropped {
		out = append(out, byID[it.Key])
	}
	// Stored beds that already violate the layout are reconciled too.
	for _, r := range rejected {
		if !r.Item.Footprint.Within(newW, newH) {
			s.logger.Warn("stored bed outside its garden",
				slog.String("bed", r.Item.Key),
				slog.String("error", r.Err.Error()),
			)
			out = append(out, byID[r.Item.Key])
		}
	}
	return out, nil
}

// Delete removes the garden with its beds and plants. If it was the active
// garden, the owner's most recently created remaining garden takes over.
func (s *GardenService) Delete(ctx context.Context, ownerID, gardenID string) error {
	if err := s.gardens.Delete(ctx, ownerID, gardenID); err != nil {
		return fmt.Errorf("deleting garden %s: %w", gardenID, err)
	}
	s.logger.Info("garden deleted", slog.String("id", gardenID), slog.String("owner", ownerID))
	return nil
}
