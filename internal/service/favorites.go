package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

// SyncState is the favorites cache's position in its lifecycle.
//
// STATE MACHINE:
//
//	Unauthenticated --(session appears)--> Syncing --(resync ok)--> Synced
//	      ^                                  |  ^
//	      |                                  |  | (resync fails: stay)
//	      +----------(session cleared)-------+--+
//
// Syncing means "a session exists but the cache hasn't been confirmed against
// the store" — toggles are still allowed there (they're optimistic anyway).
type SyncState int

const (
	StateUnauthenticated SyncState = iota
	StateSyncing
	StateSynced
)

func (s SyncState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// FavoritesConfig tunes a FavoritesStore.
type FavoritesConfig struct {
	// RollbackOnFailure reverts the optimistic cache mutation when the
	// external store call fails.
	//
	// Default FALSE, deliberately: the legacy behavior keeps the local
	// mutation even when the server write failed, leaving cache and store
	// diverged until the next resync. That divergence is a known
	// consistency gap, preserved as the default so existing UI behavior
	// doesn't change — but it's a switch, not an accident.
	RollbackOnFailure bool
}

// FavoritesStore holds one user's favorited-snippet-id set and synchronizes
// it with the external store.
//
// The cache is a client-side PROJECTION of the server's favorite records —
// the store owns the truth. Every load/toggle round-trip must reconverge the
// two under the happy path; the mutex makes each operation's local step
// atomic, and the epoch counter guards against a stale resync (started under
// an earlier session) overwriting a later state.
type FavoritesStore struct {
	repo   repository.FavoriteRepository
	config FavoritesConfig
	logger *slog.Logger

	mu      sync.Mutex
	state   SyncState
	session model.Session
	epoch   uint64 // bumped on every session transition
	cache   map[model.SnippetID]struct{}
}

// NewFavoritesStore creates a store in the Unauthenticated state.
func NewFavoritesStore(repo repository.FavoriteRepository, cfg FavoritesConfig, logger *slog.Logger) *FavoritesStore {
	return &FavoritesStore{
		repo:   repo,
		config: cfg,
		logger: logger,
		state:  StateUnauthenticated,
		cache:  make(map[model.SnippetID]struct{}),
	}
}

// SetSession applies a session transition.
//
// A session appearing moves the store to Syncing — the caller is expected to
// follow with Resync. Clearing the session clears the cache SYNCHRONOUSLY:
// no stale favorites survive a sign-out, and switching users can never leak
// the previous user's favorite state. Either way the epoch advances, so any
// in-flight resync started before this call discards its result.
func (s *FavoritesStore) SetSession(session model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.cache = make(map[model.SnippetID]struct{})

	if session.Active() {
		s.session = session
		s.state = StateSyncing
	} else {
		s.session = model.Session{}
		s.state = StateUnauthenticated
	}
}

// Resync queries the store for all favorites owned by the current session
// and REPLACES the cached set entirely.
//
// Replacement, not merge: a server-side addition missed by a prior poll is
// picked up, and a local addition the server never acknowledged is dropped —
// the later-completing round-trip wins. This is also how the toggle path's
// divergence self-heals.
//
// On failure the store keeps its prior cache, does not reach Synced, and
// returns an ErrSync-class error — reported, never fatal, never auto-retried.
func (s *FavoritesStore) Resync(ctx context.Context) error {
	s.mu.Lock()
	if !s.session.Active() {
		s.mu.Unlock()
		return apperror.Unauthenticated("sync favorites")
	}
	epoch := s.epoch
	userID := s.session.UserID
	s.mu.Unlock()

	// The external call runs outside the lock — it can take arbitrarily
	// long and must not block reads or a concurrent sign-out.
	favorites, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("favorites resync failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return apperror.SyncFailed("refresh favorites", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale-resync guard: if the session changed while we were querying,
	// this result belongs to a dead world. Applying it would resurrect the
	// previous user's favorites after their sign-out.
	if s.epoch != epoch {
		s.logger.Debug("discarding stale favorites resync", slog.String("userID", userID))
		return nil
	}

	fresh := make(map[model.SnippetID]struct{}, len(favorites))
	for _, f := range favorites {
		fresh[f.SnippetID] = struct{}{}
	}
	s.cache = fresh
	s.state = StateSynced

	s.logger.Debug("favorites resynced",
		slog.String("userID", userID),
		slog.Int("count", len(fresh)),
	)

	return nil
}

// Toggle flips the favorite state of one snippet and returns the NEW local
// membership (true = now favorited).
//
// ORDERING INVARIANT: the local cache mutation happens strictly BEFORE the
// external call is issued (optimistic update) — the UI repaints immediately.
// If the external call then fails, by default the local mutation is KEPT and
// an ErrSync-class error is reported; RollbackOnFailure reverts it instead
// (guarded by the epoch so a rollback never lands in a newer session).
func (s *FavoritesStore) Toggle(ctx context.Context, snippetID model.SnippetID) (bool, error) {
	s.mu.Lock()
	if !s.session.Active() {
		s.mu.Unlock()
		return false, apperror.Unauthenticated("favorite snippets")
	}

	epoch := s.epoch
	userID := s.session.UserID

	_, wasFavorite := s.cache[snippetID]
	if wasFavorite {
		delete(s.cache, snippetID)
	} else {
		s.cache[snippetID] = struct{}{}
	}
	nowFavorite := !wasFavorite
	s.mu.Unlock()

	var err error
	if wasFavorite {
		// Evicted locally — delete the matching record(s) on the server.
		err = s.repo.DeleteByUserAndSnippet(ctx, userID, snippetID)
	} else {
		// Inserted locally — create the record; the store assigns CreatedAt.
		err = s.repo.Create(ctx, &model.Favorite{UserID: userID, SnippetID: snippetID})
	}

	if err != nil {
		s.logger.Error("favorite toggle failed on the external store",
			slog.String("userID", userID),
			slog.String("snippetID", snippetID.String()),
			slog.Bool("wasFavorite", wasFavorite),
			slog.String("error", err.Error()),
		)

		if s.config.RollbackOnFailure {
			s.mu.Lock()
			if s.epoch == epoch {
				if wasFavorite {
					s.cache[snippetID] = struct{}{}
				} else {
					delete(s.cache, snippetID)
				}
				nowFavorite = wasFavorite
			}
			s.mu.Unlock()
		}

		return nowFavorite, apperror.SyncFailed("save favorite", err)
	}

	return nowFavorite, nil
}

// IsFavorite reports whether the snippet is in the local cache. Pure read —
// never contacts the store.
func (s *FavoritesStore) IsFavorite(snippetID model.SnippetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[snippetID]
	return ok
}

// List returns the cached favorite snippet ids. Pure read; no order is
// guaranteed (the cache is a set).
func (s *FavoritesStore) List() []model.SnippetID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.SnippetID, 0, len(s.cache))
	for id := range s.cache {
		ids = append(ids, id)
	}
	return ids
}

// State returns the store's current sync state.
func (s *FavoritesStore) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FavoritesManager owns one FavoritesStore per signed-in user.
//
// The browser original kept a single global store for "the" user; a server
// has many concurrent users, so the manager scopes one store (and its state
// machine) to each. Stores are created on sign-in via the session
// subscription and dropped on sign-out; StoreFor also creates lazily, which
// covers a server restart while a user's token was still valid.
type FavoritesManager struct {
	repo   repository.FavoriteRepository
	config FavoritesConfig
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*FavoritesStore
}

// NewFavoritesManager creates an empty manager.
func NewFavoritesManager(repo repository.FavoriteRepository, cfg FavoritesConfig, logger *slog.Logger) *FavoritesManager {
	return &FavoritesManager{
		repo:   repo,
		config: cfg,
		logger: logger,
		stores: make(map[string]*FavoritesStore),
	}
}

// StoreFor returns the store for the session's user, creating and syncing it
// if this is the first time we see the session. Anonymous sessions get nil —
// callers treat that as Unauthenticated.
func (m *FavoritesManager) StoreFor(ctx context.Context, session model.Session) *FavoritesStore {
	if !session.Active() {
		return nil
	}

	m.mu.Lock()
	store, ok := m.stores[session.UserID]
	if !ok {
		store = NewFavoritesStore(m.repo, m.config, m.logger)
		store.SetSession(session)
		m.stores[session.UserID] = store
	}
	m.mu.Unlock()

	if !ok {
		// First sight of this session — pull the server's set. A failure
		// here is reported-but-not-fatal: the store stays in Syncing and
		// serves an empty cache until a later resync succeeds.
		if err := store.Resync(ctx); err != nil {
			m.logger.Warn("initial favorites sync failed",
				slog.String("userID", session.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return store
}

// HandleSessionChange is the subscription hook wired into the SessionContext:
// it creates/syncs a store when a session appears and clears+drops the store
// when one ends.
func (m *FavoritesManager) HandleSessionChange(ctx context.Context, prev, next model.Session) {
	if prev.Active() && prev.UserID != next.UserID {
		m.mu.Lock()
		store, ok := m.stores[prev.UserID]
		delete(m.stores, prev.UserID)
		m.mu.Unlock()

		if ok {
			// Synchronous clear — no stale favorites survive the sign-out.
			store.SetSession(model.Session{})
		}
	}

	if next.Active() {
		m.StoreFor(ctx, next)
	}
}
