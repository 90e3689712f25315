// Package repository declares the storage interfaces the services depend on.
//
// Every garden, bed and plant method takes the requesting owner's ID and scopes
// its query by it. A record that exists but belongs to someone else behaves
// exactly like a missing one: apperror.ErrNotFound.
//
// Layout rules are enforced inside the write transaction. The mutating bed,
// garden and plant methods read the current state in the transaction and hand
// it to a caller-supplied check or plan; an error from it rolls the whole call
// back. Checks and plans must not call back into the repository.
package repository

import (
	"context"

	"github.com/sakif/garden-planner/internal/model"
)

// GardenState is a garden and its beds, each with its plants, as read inside
// a write transaction.
type GardenState struct {
	Garden model.Garden
	Beds   []model.Bed
}

// BedCheck inspects the garden before a bed is inserted into it.
type BedCheck func(state GardenState) error

// BedPlan edits bed, the stored copy with its plants, in place and names the
// plants to delete along with the update.
type BedPlan func(state GardenState, bed *model.Bed) (dropPlantIDs []string, err error)

// GardenPlan edits garden in place and names the beds to move to the
// unplaced state along with the update.
type GardenPlan func(state GardenState, garden *model.Garden) (unplaceBedIDs []string, err error)

// PlantCheck inspects the bed, without its plants, before its plant set is
// replaced.
type PlantCheck func(bed *model.Bed) error

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// UpsertGitHub creates the account on first GitHub sign-in and refreshes the
	// profile on later ones. The internal ID never changes.
	UpsertGitHub(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	// Delete removes the account and everything it owns.
	Delete(ctx context.Context, id string) error
}

// GardenRepository is the persistence side of garden activation. Each mutating
// method is one transaction: either every step commits or none does.
type GardenRepository interface {
	// CreateAndActivate deactivates all of garden.OwnerID's gardens and inserts
	// garden as the active one.
	CreateAndActivate(ctx context.Context, garden *model.Garden) error
	GetByID(ctx context.Context, ownerID, gardenID string) (*model.Garden, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Garden, error)
	// Update runs plan against the garden's current state and writes the result.
	// When the planned garden is active the owner's other gardens are
	// deactivated, and the beds plan names are unplaced, in the same transaction.
	Update(ctx context.Context, ownerID, gardenID string, plan GardenPlan) (*model.Garden, error)
	// Delete removes the garden with its beds and plants. If it was active, the
	// owner's most recently created remaining garden becomes active.
	Delete(ctx context.Context, ownerID, gardenID string) error
}

type BedRepository interface {
	// Create inserts bed once check accepts the garden's current state. A nil
	// check accepts anything.
	Create(ctx context.Context, ownerID string, bed *model.Bed, check BedCheck) error
	GetByID(ctx context.Context, ownerID, gardenID, bedID string) (*model.Bed, error)
	// ListByGarden returns the garden's beds, each with its plants.
	ListByGarden(ctx context.Context, ownerID, gardenID string) ([]model.Bed, error)
	// Update runs plan against the bed and its garden, then writes the bed and
	// deletes the plants plan names. Every other plant keeps its ID and position.
	Update(ctx context.Context, ownerID, gardenID, bedID string, plan BedPlan) (*model.Bed, error)
	Delete(ctx context.Context, ownerID, gardenID, bedID string) error
}

type PlantRepository interface {
	// ReplaceForBed deletes every plant in the bed and inserts plants, in one
	// transaction, once check accepts the bed. A nil check accepts anything.
	ReplaceForBed(ctx context.Context, ownerID, gardenID, bedID string, plants []model.PlantInBed, check PlantCheck) error
	ListForBed(ctx context.Context, ownerID, gardenID, bedID string) ([]model.PlantInBed, error)
}

type CatalogRepository interface {
	List(ctx context.Context) ([]model.CatalogPlant, error)
	GetByID(ctx context.Context, id int64) (*model.CatalogPlant, error)
	// GetMany returns the rows that exist among ids, keyed by ID.
	GetMany(ctx context.Context, ids []int64) (map[int64]model.CatalogPlant, error)
	Upsert(ctx context.Context, plants []model.CatalogPlant) error
}
