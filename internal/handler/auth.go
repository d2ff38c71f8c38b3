package handler

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/service"
)

// AuthHandler manages the OAuth login flow and session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to the provider's authorization page
//   - HandleCallback → receive the code, complete the sign-in, issue the JWT cookie
//   - HandleLogout   → broadcast the sign-out and clear the cookie
//   - HandleMe       → return the signed-in user's profile
//
// More than one provider can be registered (GitHub and Google today); the
// {provider} path segment selects which one. The handler itself never talks
// to the provider or the database — service.SessionContext does the sign-in,
// the handler only translates it to redirects and cookies.
type AuthHandler struct {
	providers map[string]auth.Provider
	sessions  *service.SessionContext
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler for the given providers.
func NewAuthHandler(providers []auth.Provider, sessions *service.SessionContext, logger *slog.Logger) *AuthHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{
		providers: byName,
		sessions:  sessions,
		logger:    logger,
	}
}

func (h *AuthHandler) provider(r *http.Request) (auth.Provider, bool) {
	p, ok := h.providers[chi.URLParam(r, "provider")]
	return p, ok
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/{provider}/login
//
// CSRF PROTECTION VIA STATE:
// A random state string goes into a short-lived HttpOnly cookie; the callback
// verifies the provider echoed the same value. That proves the callback was
// initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		http.Error(w, "unknown auth provider", http.StatusNotFound)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve, short enough to limit risk
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a provider profile
//  3. SessionContext.SignIn: upsert the user, issue the JWT, notify
//     subscribers (favorites and comment state warm up here, synchronously)
//  4. Set the JWT as an HttpOnly cookie and redirect home
//
// A provider failure redirects to /?auth=failed rather than erroring — the
// user is mid-navigation, not mid-API-call, and the catalog is fully usable
// signed out.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		http.Error(w, "unknown auth provider", http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", p.Name()))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", p.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	result, err := h.sessions.SignIn(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	// HttpOnly = JavaScript cannot read the token (XSS protection).
	// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
	// Secure should be true in production (HTTPS only); false for local dev.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.TokenLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout broadcasts the sign-out and clears the JWT cookie.
//
// HTTP: POST /auth/logout  (optional auth)
//
// POST, not GET: logout is state-changing, and GET would be vulnerable to
// CSRF and browser prefetching.
//
// The broadcast matters as much as the cookie: favorites and comment caches
// for this user are cleared synchronously before the response goes out, so
// no later request can observe the signed-out user's data.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		session, err := h.sessions.SessionFor(r.Context(), userID)
		if err == nil {
			h.sessions.SignOut(r.Context(), session)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: required (RequireAuth sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.sessions.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
