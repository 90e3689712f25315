package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/garden-planner/internal/auth"
	"github.com/sakif/garden-planner/internal/catalog"
	"github.com/sakif/garden-planner/internal/handler"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository/sqlite"
	"github.com/sakif/garden-planner/internal/service"
)

// fixture wires the real services over an in-memory database with the
// built-in catalog loaded and one signed-up user.
type fixture struct {
	db     *sqlite.DB
	owner  string
	tokens *auth.TokenService

	gardens *handler.GardenHandler
	beds    *handler.BedHandler
	plants  *handler.PlantHandler
	auth    *handler.AuthHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	species, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, db.Catalog().Upsert(ctx, species))

	tokens, err := auth.NewTokenService("handler-test-secret-0123", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	owner := createUser(t, db, "alice", "alice@example.com")

	accounts := service.NewAuthService(db.Users(), tokens, passwords, logger)
	catalogSvc := service.NewCatalogService(db.Catalog(), logger)
	plantSvc := service.NewPlantService(db.Beds(), db.Plants(), db.Catalog(), logger)
	github := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")

	return &fixture{
		db:      db,
		owner:   owner,
		tokens:  tokens,
		gardens: handler.NewGardenHandler(service.NewGardenService(db.Gardens(), logger), logger),
		beds:    handler.NewBedHandler(service.NewBedService(db.Gardens(), db.Beds(), db.Plants(), logger), logger),
		plants:  handler.NewPlantHandler(plantSvc, catalogSvc, logger),
		auth:    handler.NewAuthHandler(accounts, tokens, github, false, logger),
	}
}

func createUser(t *testing.T, db *sqlite.DB, username, email string) string {
	t.Helper()
	u := &model.User{Username: username, Email: email}
	require.NoError(t, db.Users().Create(context.Background(), u))
	return u.ID
}

// request builds a request for target. body may be nil, a raw string, or a
// value that is marshalled to JSON.
func request(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// as runs h for req on behalf of userID, the way RequireAuth would.
func as(userID string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// do runs h as the fixture's owner.
func (f *fixture) do(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return as(f.owner, h, request(t, method, target, body))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// errorBody mirrors handler.ErrorResponse with Details left raw.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Details json.RawMessage `json:"details"`
}

// createGarden creates a garden for the owner through the handler.
func (f *fixture) createGarden(t *testing.T, name string, w, h int) model.Garden {
	t.Helper()
	rec := f.do(t, f.gardens.HandleCreate, http.MethodPost, "/api/gardens",
		map[string]any{"garden_name": name, "width": w, "height": h})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Garden](t, rec)
}

// createBed creates a bed; top and left < -1 leave it unplaced.
func (f *fixture) createBed(t *testing.T, gardenID, name string, w, h, top, left int) model.Bed {
	t.Helper()
	body := map[string]any{"name": name, "width": w, "height": h}
	if top >= -1 {
		body["top_position"] = top
		body["left_position"] = left
	}
	rec := f.do(t, f.beds.HandleCreate, http.MethodPost, "/api/beds?gardenId="+gardenID, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Bed](t, rec)
}

func bedQuery(gardenID, bedID string) string {
	return "?gardenId=" + gardenID + "&bedId=" + bedID
}
