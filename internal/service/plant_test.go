package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
)

func newTestPlantService(store *fakeStore) *PlantService {
	store.catalog[1] = model.CatalogPlant{ID: 1, CommonName: "Basil", Spacing: 1}
	store.catalog[2] = model.CatalogPlant{ID: 2, CommonName: "Odd", Spacing: 2}
	store.catalog[4] = model.CatalogPlant{ID: 4, CommonName: "Tomato", Spacing: 4}
	store.catalog[9] = model.CatalogPlant{ID: 9, CommonName: "Zucchini", Spacing: 9}
	return NewPlantService(store.Beds(), store.Plants(), store.Catalog(), discardLogger())
}

func TestPlantSave_FullOverwrite(t *testing.T) {
	store := newFakeStore()
	svc := newTestPlantService(store)
	ctx := context.Background()
	g := seedGarden(t, store, owner, 10, 10)
	b := seedBed(t, store, g, 5, 5, layout.PlacedAt(0, 0))

	saved, err := svc.Save(ctx, owner, g.ID, b.ID, []model.PlantInBed{
		{PlantID: 4, X: 0, Y: 0, Role: " main "},
		{PlantID: 9, X: 2, Y: 2},
		{PlantID: 1, X: 0, Y: 4},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "Tomato", saved[0].CommonName)
	assert.Equal(t, 4, saved[0].Spacing)
	assert.Equal(t, "main", saved[0].Role)
	assert.Equal(t, b.ID, saved[1].BedID)

	saved, err = svc.Save(ctx, owner, g.ID, b.ID, []model.PlantInBed{{PlantID: 1, X: 4, Y: 4}})
	require.NoError(t, err)

	plants, err := svc.List(ctx, owner, g.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, plants, 1, "a save replaces the previous set")
	assert.Equal(t, saved[0].ID, plants[0].ID)

	saved, err = svc.Save(ctx, owner, g.ID, b.ID, nil)
	require.NoError(t, err)
	assert.NotNil(t, saved)
	plants, err = svc.List(ctx, owner, g.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, plants)
}

func TestPlantSave_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		plants []model.PlantInBed
		field  string
		reason error
	}{
		{
			name:   "unknown catalog plant",
			plants: []model.PlantInBed{{PlantID: 1}, {PlantID: 404, X: 2}},
			field:  "plants[1].plant_id",
		},
		{
			name:   "collision names the later plant",
			plants: []model.PlantInBed{{PlantID: 4, X: 0, Y: 0}, {PlantID: 1, X: 1, Y: 1}},
			field:  "plants[1]",
			reason: layout.ErrOverlap,
		},
		{
			name:   "footprint past the edge",
			plants: []model.PlantInBed{{PlantID: 9, X: 3, Y: 0}},
			field:  "plants[0]",
			reason: layout.ErrOutOfBounds,
		},
		{
			name:   "negative position",
			plants: []model.PlantInBed{{PlantID: 1, X: -1, Y: 0}},
			field:  "plants[0]",
			reason: layout.ErrOutOfBounds,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestPlantService(store)
			g := seedGarden(t, store, owner, 10, 10)
			b := seedBed(t, store, g, 5, 5, layout.PlacedAt(0, 0))
			store.setPlants(b.ID, []model.PlantInBed{{PlantID: 1, X: 0, Y: 0}})

			_, err := svc.Save(context.Background(), owner, g.ID, b.ID, tc.plants)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.field, appErr.Field)
			if tc.reason != nil {
				conflict, ok := appErr.Details.(PlacementConflict)
				require.True(t, ok)
				assert.Equal(t, tc.reason.Error(), conflict.Reason)
			}

			assert.Len(t, store.plants[b.ID], 1, "a rejected save leaves the stored set alone")
		})
	}
}

// Spacing 2 is not a square; the plant takes a single cell.
func TestPlantSave_NonSquareSpacingFallsBackToOneCell(t *testing.T) {
	store := newFakeStore()
	svc := newTestPlantService(store)
	g := seedGarden(t, store, owner, 10, 10)
	b := seedBed(t, store, g, 2, 1, layout.PlacedAt(0, 0))

	saved, err := svc.Save(context.Background(), owner, g.ID, b.ID, []model.PlantInBed{
		{PlantID: 2, X: 0, Y: 0},
		{PlantID: 2, X: 1, Y: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, layout.Footprint{X: 1, Y: 0, W: 1, H: 1}, saved[1].Footprint())
}

func TestPlantSave_ForeignBed(t *testing.T) {
	store := newFakeStore()
	svc := newTestPlantService(store)
	g := seedGarden(t, store, "someone-else", 10, 10)
	b := seedBed(t, store, g, 5, 5, layout.Unplaced())

	_, err := svc.Save(context.Background(), owner, g.ID, b.ID, []model.PlantInBed{{PlantID: 1}})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.List(context.Background(), owner, g.ID, b.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCatalogImport_ReportsNonStandardSpacing(t *testing.T) {
	store := newFakeStore()
	svc := NewCatalogService(store.Catalog(), discardLogger())
	ctx := context.Background()

	warnings, err := svc.Import(ctx, []model.CatalogPlant{
		{ID: 1, CommonName: "Basil", Spacing: 1},
		{ID: 2, CommonName: "Odd", Spacing: 2},
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(2), warnings[0].PlantID)

	plants, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plants, 2, "flagged rows are still imported")

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// The bed shrinks between the request arriving and the write. The plants are
// laid out against the stored size at write time.
func TestPlantSave_UsesBedSizeAtWriteTime(t *testing.T) {
	store := newFakeStore()
	g := seedGarden(t, store, owner, 10, 10)
	b := seedBed(t, store, g, 5, 5, layout.PlacedAt(0, 0))
	plants := &racingPlants{fakePlants: store.Plants(), interleave: func() {
		store.beds[b.ID].bed.Width, store.beds[b.ID].bed.Height = 2, 2
	}}
	store.catalog[1] = model.CatalogPlant{ID: 1, CommonName: "Basil", Spacing: 1}
	svc := NewPlantService(store.Beds(), plants, store.Catalog(), discardLogger())

	_, err := svc.Save(context.Background(), owner, g.ID, b.ID, []model.PlantInBed{{PlantID: 1, X: 4, Y: 4}})
	require.ErrorIs(t, err, apperror.ErrValidation)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	conflict := appErr.Details.(PlacementConflict)
	assert.Equal(t, layout.ErrOutOfBounds.Error(), conflict.Reason)
	assert.Empty(t, store.plants[b.ID])
}
