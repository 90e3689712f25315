package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/garden-planner/internal/auth"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler serves accounts: password register/login, the GitHub OAuth
// flow, logout and the /api/me profile.
//
// DEPENDENCY CHAIN:
//   - accounts *service.AuthService   → validation, hashing, token issue
//   - tokens   *auth.TokenService     → cookie lifetime
//   - github   *auth.GitHubProvider   → nil when GitHub sign-in is not configured
type AuthHandler struct {
	accounts      *service.AuthService
	tokens        *auth.TokenService
	github        *auth.GitHubProvider
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	accounts *service.AuthService,
	tokens *auth.TokenService,
	github *auth.GitHubProvider,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		tokens:        tokens,
		github:        github,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a password account and logs it in.
//
// HTTP: POST /api/auth/register  {"username": "...", "email": "...", "password": "..."}
// Response: 201 {"user": {...}, "token": "..."} plus the token cookie.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	auth.SetTokenCookie(w, res.Token, h.tokens, h.secureCookies)
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin checks email and password.
//
// HTTP: POST /api/auth/login  {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	auth.SetTokenCookie(w, res.Token, h.tokens, h.secureCookies)
	writeJSON(w, http.StatusOK, res)
}

// HandleLogout clears the token cookie. Tokens are stateless, so a copy held
// elsewhere stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and must come
// back unchanged on the callback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Upsert the account and issue a JWT cookie
//  4. Redirect to the app home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetTokenCookie(w, res.Token, h.tokens, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe changes username and/or email.
//
// HTTP: PUT /api/me  {"username": "...", "email": "..."}
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in model.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteMe deletes the account with all of its gardens and logs out.
//
// HTTP: DELETE /api/me
func (h *AuthHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	auth.ClearTokenCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}
