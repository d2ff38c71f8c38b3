package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

var errAuthEmptyProfile = errors.New("provider returned an empty profile")

// SessionListener is notified on every session transition with the previous
// and the new session (either may be the zero "signed out" value).
type SessionListener func(ctx context.Context, prev, next model.Session)

// SessionContext orchestrates sign-in and sign-out.
//
// The actual authentication is fully delegated: an external OAuth provider
// proves the identity and hands us a profile; this service only upserts the
// user record, issues the JWT, and broadcasts the transition. Favorites and
// comment state subscribe to those transitions — sign-in warms their caches,
// sign-out clears them. Catalog state is never touched by auth failures.
type SessionContext struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger

	mu        sync.Mutex
	listeners []SessionListener
}

// NewSessionContext creates a SessionContext.
func NewSessionContext(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *SessionContext {
	return &SessionContext{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Subscribe registers a listener for session transitions. Listeners run
// synchronously in registration order — by the time SignIn returns, every
// subscriber has seen the new session.
func (s *SessionContext) Subscribe(fn SessionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AuthResult bundles everything the HTTP handler needs after a successful
// sign-in: the user record, the session, and the JWT to set as a cookie.
type AuthResult struct {
	User    *model.User
	Session model.Session
	Token   string
}

// SignIn completes an external sign-in: upserts the user record from the
// provider profile, issues a JWT, and notifies subscribers of the
// none→identity transition.
//
// Any failure comes back as an ErrAuth-class error with no state change —
// no user row is half-written (upsert is atomic per statement) and no
// subscriber is notified.
func (s *SessionContext) SignIn(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil || profile.ProviderID == "" {
		return nil, apperror.AuthFailed("unknown", errAuthEmptyProfile)
	}

	user := &model.User{
		Provider:   profile.Provider,
		ProviderID: profile.ProviderID,
		Login:      profile.Login,
		Email:      profile.Email,
		AvatarURL:  profile.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Error("sign-in: user upsert failed",
			slog.String("provider", profile.Provider),
			slog.String("providerID", profile.ProviderID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AuthFailed(profile.Provider, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.logger.Error("sign-in: token generation failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AuthFailed(profile.Provider, err)
	}

	session := model.Session{UserID: user.ID, Login: user.Login}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
		slog.String("provider", user.Provider),
	)

	s.notify(ctx, model.Session{}, session)

	return &AuthResult{User: user, Session: session, Token: token}, nil
}

// SignOut broadcasts the identity→none transition. Subscribers clear their
// per-user caches synchronously; the HTTP handler clears the cookie.
func (s *SessionContext) SignOut(ctx context.Context, session model.Session) {
	if !session.Active() {
		return // already signed out — nothing to transition
	}

	s.logger.Info("user signed out", slog.String("userID", session.UserID))
	s.notify(ctx, session, model.Session{})
}

// SessionFor resolves the session for an authenticated user ID (as extracted
// from a validated token by the auth middleware).
func (s *SessionContext) SessionFor(ctx context.Context, userID string) (model.Session, error) {
	if userID == "" {
		return model.Session{}, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return model.Session{}, err
	}

	return model.Session{UserID: user.ID, Login: user.Login}, nil
}

// GetUserByID returns the full user record — used by the /api/me handler
// after the middleware validates the JWT.
func (s *SessionContext) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *SessionContext) notify(ctx context.Context, prev, next model.Session) {
	s.mu.Lock()
	listeners := make([]SessionListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, prev, next)
	}
}
