package handler

import (
	"net/http"
	"strconv"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/auth"
)

// QUERY PARAMETERS:
// Garden, bed and plant routes address records with query parameters
// (?gardenId=...&bedId=...), the way the browser client calls them. The
// owner always comes from the token. A legacy userId parameter is still
// accepted but must name the caller; any other value is answered exactly
// like a missing record.

// requestOwner returns the authenticated user ID for r.
func requestOwner(r *http.Request) (string, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("valid authentication required")
	}
	if q := r.URL.Query().Get("userId"); q != "" && q != userID {
		return "", apperror.NotFound("user", q)
	}
	return userID, nil
}

// requireQuery returns a required query parameter.
func requireQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", apperror.ValidationFailed(name, name+" query parameter is required")
	}
	return v, nil
}

// confirmed reports whether the request opted in to a destructive resize.
func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}
