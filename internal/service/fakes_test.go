package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================

// fakeStore backs the garden, bed, plant and catalog fakes with plain maps.
// It mirrors the owner scoping of the SQLite repositories: anything not owned
// by the caller is apperror.ErrNotFound.
type fakeStore struct {
	gardens map[string]*gardenRec
	beds    map[string]*bedRec
	plants  map[string][]model.PlantInBed // by bed ID
	catalog map[int64]model.CatalogPlant
	seq     int

	// calls records mutating repository calls, e.g. "beds.Update".
	calls []string
	// failOn makes the named call fail with failErr.
	failOn  string
	failErr error
}

type gardenRec struct {
	garden model.Garden
	seq    int
}

type bedRec struct {
	bed model.Bed
	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		gardens: make(map[string]*gardenRec),
		beds:    make(map[string]*bedRec),
		plants:  make(map[string][]model.PlantInBed),
		catalog: make(map[int64]model.CatalogPlant),
	}
}

func (s *fakeStore) nextID(prefix string) (string, int) {
	s.seq++
	return prefix + strconv.Itoa(s.seq), s.seq
}

func (s *fakeStore) record(call string) error {
	s.calls = append(s.calls, call)
	if s.failOn == call {
		return s.failErr
	}
	return nil
}

func (s *fakeStore) called(call string) bool {
	for _, c := range s.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (s *fakeStore) ownedGarden(ownerID, gardenID string) (*gardenRec, bool) {
	rec, ok := s.gardens[gardenID]
	if !ok || rec.garden.OwnerID != ownerID {
		return nil, false
	}
	return rec, true
}

func (s *fakeStore) ownedBed(ownerID, gardenID, bedID string) (*bedRec, bool) {
	if _, ok := s.ownedGarden(ownerID, gardenID); !ok {
		return nil, false
	}
	rec, ok := s.beds[bedID]
	if !ok || rec.bed.GardenID != gardenID {
		return nil, false
	}
	return rec, true
}

func (s *fakeStore) plantsOf(bedID string) []model.PlantInBed {
	return append([]model.PlantInBed{}, s.plants[bedID]...)
}

func (s *fakeStore) setPlants(bedID string, plants []model.PlantInBed) {
	stored := make([]model.PlantInBed, len(plants))
	for i := range plants {
		if plants[i].ID == "" {
			plants[i].ID, _ = s.nextID("p")
		}
		plants[i].BedID = bedID
		stored[i] = plants[i]
		if cp, ok := s.catalog[plants[i].PlantID]; ok {
			stored[i].Spacing = cp.Spacing
			stored[i].CommonName = cp.CommonName
		}
	}
	s.plants[bedID] = stored
}

// bedsOf returns the garden's beds in creation order, each with its plants.
func (s *fakeStore) bedsOf(gardenID string) []model.Bed {
	var recs []*bedRec
	for _, rec := range s.beds {
		if rec.bed.GardenID == gardenID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]model.Bed, len(recs))
	for i, rec := range recs {
		out[i] = rec.bed
		out[i].Plants = s.plantsOf(rec.bed.ID)
	}
	return out
}

// state is what the SQLite repositories read inside their write transaction.
func (s *fakeStore) state(ownerID, gardenID string) (repository.GardenState, error) {
	rec, ok := s.ownedGarden(ownerID, gardenID)
	if !ok {
		return repository.GardenState{}, apperror.NotFound("garden", gardenID)
	}
	return repository.GardenState{Garden: rec.garden, Beds: s.bedsOf(gardenID)}, nil
}

// Gardens, Beds, Plants and Catalog expose the store through the repository
// interfaces. They are separate types because the interfaces share method names.
func (s *fakeStore) Gardens() *fakeGardens { return &fakeGardens{s} }
func (s *fakeStore) Beds() *fakeBeds       { return &fakeBeds{s} }
func (s *fakeStore) Plants() *fakePlants   { return &fakePlants{s} }
func (s *fakeStore) Catalog() *fakeCatalog { return &fakeCatalog{s} }

// =========================================================================
// GARDENS
// =========================================================================

type fakeGardens struct{ s *fakeStore }

var _ repository.GardenRepository = (*fakeGardens)(nil)

func (f *fakeGardens) CreateAndActivate(_ context.Context, garden *model.Garden) error {
	if err := f.s.record("gardens.CreateAndActivate"); err != nil {
		return err
	}
	for _, rec := range f.s.gardens {
		if rec.garden.OwnerID == garden.OwnerID {
			rec.garden.IsActive = false
		}
	}
	var seq int
	garden.ID, seq = f.s.nextID("g")
	garden.IsActive = true
	garden.CreatedAt = time.Now()
	garden.UpdatedAt = garden.CreatedAt
	f.s.gardens[garden.ID] = &gardenRec{garden: *garden, seq: seq}
	return nil
}

func (f *fakeGardens) GetByID(_ context.Context, ownerID, gardenID string) (*model.Garden, error) {
	rec, ok := f.s.ownedGarden(ownerID, gardenID)
	if !ok {
		return nil, apperror.NotFound("garden", gardenID)
	}
	g := rec.garden
	return &g, nil
}

func (f *fakeGardens) ListByOwner(_ context.Context, ownerID string) ([]model.Garden, error) {
	var recs []*gardenRec
	for _, rec := range f.s.gardens {
		if rec.garden.OwnerID == ownerID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	out := make([]model.Garden, len(recs))
	for i, rec := range recs {
		out[i] = rec.garden
	}
	return out, nil
}

func (f *fakeGardens) Update(_ context.Context, ownerID, gardenID string, plan repository.GardenPlan) (*model.Garden, error) {
	if err := f.s.record("gardens.Update"); err != nil {
		return nil, err
	}
	state, err := f.s.state(ownerID, gardenID)
	if err != nil {
		return nil, err
	}
	garden := state.Garden
	unplaceBedIDs, err := plan(state, &garden)
	if err != nil {
		return nil, err
	}

	if garden.IsActive {
		for _, other := range f.s.gardens {
			if other.garden.OwnerID == ownerID {
				other.garden.IsActive = false
			}
		}
	}
	f.s.gardens[gardenID].garden = garden
	for _, id := range unplaceBedIDs {
		if b, ok := f.s.beds[id]; ok && b.bed.GardenID == gardenID {
			b.bed.Position = layout.Unplaced()
		}
	}
	return &garden, nil
}

func (f *fakeGardens) Delete(_ context.Context, ownerID, gardenID string) error {
	if err := f.s.record("gardens.Delete"); err != nil {
		return err
	}
	rec, ok := f.s.ownedGarden(ownerID, gardenID)
	if !ok {
		return apperror.NotFound("garden", gardenID)
	}
	for id, b := range f.s.beds {
		if b.bed.GardenID == gardenID {
			delete(f.s.plants, id)
			delete(f.s.beds, id)
		}
	}
	delete(f.s.gardens, gardenID)

	if rec.garden.IsActive {
		var newest *gardenRec
		for _, other := range f.s.gardens {
			if other.garden.OwnerID == ownerID && (newest == nil || other.seq > newest.seq) {
				newest = other
			}
		}
		if newest != nil {
			newest.garden.IsActive = true
		}
	}
	return nil
}

// =========================================================================
// BEDS
// =========================================================================

type fakeBeds struct{ s *fakeStore }

var _ repository.BedRepository = (*fakeBeds)(nil)

func (f *fakeBeds) Create(_ context.Context, ownerID string, bed *model.Bed, check repository.BedCheck) error {
	if err := f.s.record("beds.Create"); err != nil {
		return err
	}
	state, err := f.s.state(ownerID, bed.GardenID)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(state); err != nil {
			return err
		}
	}
	var seq int
	bed.ID, seq = f.s.nextID("b")
	stored := *bed
	stored.Plants = nil
	f.s.beds[bed.ID] = &bedRec{bed: stored, seq: seq}
	return nil
}

func (f *fakeBeds) GetByID(_ context.Context, ownerID, gardenID, bedID string) (*model.Bed, error) {
	rec, ok := f.s.ownedBed(ownerID, gardenID, bedID)
	if !ok {
		return nil, apperror.NotFound("bed", bedID)
	}
	b := rec.bed
	return &b, nil
}

func (f *fakeBeds) ListByGarden(_ context.Context, ownerID, gardenID string) ([]model.Bed, error) {
	if _, ok := f.s.ownedGarden(ownerID, gardenID); !ok {
		return []model.Bed{}, nil
	}
	return f.s.bedsOf(gardenID), nil
}

func (f *fakeBeds) Update(_ context.Context, ownerID, gardenID, bedID string, plan repository.BedPlan) (*model.Bed, error) {
	if err := f.s.record("beds.Update"); err != nil {
		return nil, err
	}
	state, err := f.s.state(ownerID, gardenID)
	if err != nil {
		return nil, err
	}
	rec, ok := f.s.ownedBed(ownerID, gardenID, bedID)
	if !ok {
		return nil, apperror.NotFound("bed", bedID)
	}
	bed := rec.bed
	bed.Plants = f.s.plantsOf(bedID)
	dropped, err := plan(state, &bed)
	if err != nil {
		return nil, err
	}

	rec.bed = bed
	rec.bed.ID, rec.bed.GardenID, rec.bed.Plants = bedID, gardenID, nil
	drop := make(map[string]bool, len(dropped))
	for _, id := range dropped {
		drop[id] = true
	}
	var remaining []model.PlantInBed
	for _, p := range f.s.plants[bedID] {
		if !drop[p.ID] {
			remaining = append(remaining, p)
		}
	}
	f.s.plants[bedID] = remaining
	return &bed, nil
}

func (f *fakeBeds) Delete(_ context.Context, ownerID, gardenID, bedID string) error {
	if err := f.s.record("beds.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.ownedBed(ownerID, gardenID, bedID); !ok {
		return apperror.NotFound("bed", bedID)
	}
	delete(f.s.plants, bedID)
	delete(f.s.beds, bedID)
	return nil
}

// =========================================================================
// PLANTS
// =========================================================================

type fakePlants struct{ s *fakeStore }

var _ repository.PlantRepository = (*fakePlants)(nil)

func (f *fakePlants) ReplaceForBed(_ context.Context, ownerID, gardenID, bedID string, plants []model.PlantInBed, check repository.PlantCheck) error {
	if err := f.s.record("plants.ReplaceForBed"); err != nil {
		return err
	}
	rec, ok := f.s.ownedBed(ownerID, gardenID, bedID)
	if !ok {
		return apperror.NotFound("bed", bedID)
	}
	if check != nil {
		bed := rec.bed
		if err := check(&bed); err != nil {
			return err
		}
	}
	f.s.setPlants(bedID, plants)
	return nil
}

func (f *fakePlants) ListForBed(_ context.Context, ownerID, gardenID, bedID string) ([]model.PlantInBed, error) {
	if _, ok := f.s.ownedBed(ownerID, gardenID, bedID); !ok {
		return []model.PlantInBed{}, nil
	}
	return f.s.plantsOf(bedID), nil
}

// =========================================================================
// INTERLEAVED WRITES
// =========================================================================

// racingBeds, racingGardens and racingPlants run interleave before the
// wrapped write, standing in for another request that commits between a
// service call starting and its write.
type racingBeds struct {
	*fakeBeds
	interleave func()
}

func (r *racingBeds) Create(ctx context.Context, ownerID string, bed *model.Bed, check repository.BedCheck) error {
	r.interleave()
	return r.fakeBeds.Create(ctx, ownerID, bed, check)
}

func (r *racingBeds) Update(ctx context.Context, ownerID, gardenID, bedID string, plan repository.BedPlan) (*model.Bed, error) {
	r.interleave()
	return r.fakeBeds.Update(ctx, ownerID, gardenID, bedID, plan)
}

type racingGardens struct {
	*fakeGardens
	interleave func()
}

func (r *racingGardens) Update(ctx context.Context, ownerID, gardenID string, plan repository.GardenPlan) (*model.Garden, error) {
	r.interleave()
	return r.fakeGardens.Update(ctx, ownerID, gardenID, plan)
}

type racingPlants struct {
	*fakePlants
	interleave func()
}

func (r *racingPlants) ReplaceForBed(ctx context.Context, ownerID, gardenID, bedID string, plants []model.PlantInBed, check repository.PlantCheck) error {
	r.interleave()
	return r.fakePlants.ReplaceForBed(ctx, ownerID, gardenID, bedID, plants, check)
}

// =========================================================================
// CATALOG
// =========================================================================

type fakeCatalog struct{ s *fakeStore }

var _ repository.CatalogRepository = (*fakeCatalog)(nil)

func (f *fakeCatalog) List(_ context.Context) ([]model.CatalogPlant, error) {
	out := make([]model.CatalogPlant, 0, len(f.s.catalog))
	for _, p := range f.s.catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommonName < out[j].CommonName })
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (*model.CatalogPlant, error) {
	p, ok := f.s.catalog[id]
	if !ok {
		return nil, apperror.NotFound("plant", strconv.FormatInt(id, 10))
	}
	return &p, nil
}

func (f *fakeCatalog) GetMany(_ context.Context, ids []int64) (map[int64]model.CatalogPlant, error) {
	out := make(map[int64]model.CatalogPlant)
	for _, id := range ids {
		if p, ok := f.s.catalog[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCatalog) Upsert(_ context.Context, plants []model.CatalogPlant) error {
	if err := f.s.record("catalog.Upsert"); err != nil {
		return err
	}
	for _, p := range plants {
		f.s.catalog[p.ID] = p
	}
	return nil
}

// =========================================================================
// USERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
	// deleted records account deletions so cascade calls can be asserted.
	deleted []string
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) newID() string {
	id := "user-" + strconv.Itoa(f.nextID)
	f.nextID++
	return id
}

func (f *fakeUserRepo) emailTaken(email, exceptID string) bool {
	if email == "" {
		return false
	}
	for _, u := range f.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.emailTaken(user.Email, "") {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = f.newID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", strconv.FormatInt(githubID, 10))
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	existing, err := f.GetByGitHubID(ctx, *user.GitHubID)
	if err != nil {
		return f.Create(ctx, user)
	}
	stored := f.users[existing.ID]
	stored.Username = user.Username
	stored.AvatarURL = user.AvatarURL
	if user.Email != "" {
		stored.Email = user.Email
	}
	*user = *stored
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	if f.emailTaken(user.Email, user.ID) {
		return apperror.Conflict("user", user.Email)
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
