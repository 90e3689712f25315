package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// CookieName is the HttpOnly cookie that carries the access token for
// browser clients. API clients send the same token as a Bearer header.
const CookieName = "token"

// ErrNoToken is returned when a request carries neither a Bearer header
// nor a token cookie.
var ErrNoToken = errors.New("auth: no token")

// contextKey is unexported so only this package can read or write the
// authenticated user ID in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid access token with 401 and
// stores the token's user ID in the request context otherwise.
//
// Token lookup order:
//  1. Authorization: Bearer <jwt>
//  2. Cookie: token=<jwt>
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID. RequireAuth uses it and
// handler tests use it to fake an authenticated request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) when no authenticated user is attached.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetTokenCookie writes the access token as an HttpOnly cookie that lives
// as long as the token itself.
func SetTokenCookie(w http.ResponseWriter, token string, tokens *TokenService, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie. Tokens are stateless, so
// logging out is purely a client-side effect.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", ErrNoToken
		}
		return tokens.Validate(strings.TrimSpace(token))
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoToken
	}
	return tokens.Validate(cookie.Value)
}

// writeUnauthorized mirrors the handler package's error body. It is kept
// here so auth does not import handler.
func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "valid authentication required"
	if errors.Is(err, ErrTokenExpired) {
		msg = "token expired"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
