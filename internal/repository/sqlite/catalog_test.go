package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
)

func TestCatalogUpsertAndList(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	plants, err := db.Catalog().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, testCatalog, plants, "ordered by common name")

	// re-import with a changed row and a new one
	require.NoError(t, db.Catalog().Upsert(ctx, []model.CatalogPlant{
		{ID: 2, CommonName: "Tomato", ScientificName: "Solanum lycopersicum", Spacing: 9},
		{ID: 4, CommonName: "Carrot", Spacing: 1},
	}))

	plants, err = db.Catalog().List(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 4)

	tomato, err := db.Catalog().GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, tomato.Spacing)
	assert.Empty(t, tomato.IconImage)
}

func TestCatalogGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Catalog().GetByID(context.Background(), 77)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCatalogGetMany(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	got, err := db.Catalog().GetMany(context.Background(), []int64{3, 1, 3, 99})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Zucchini", got[3].CommonName)
	assert.Equal(t, "Basil", got[1].CommonName)

	empty, err := db.Catalog().GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
