package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/model"
)

// =========================================================================
// MOCK USER REPOSITORY
// =========================================================================

type mockUserRepo struct {
	users     map[string]*model.User
	upsertErr error
	upserts   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	// existing (provider, provider_id) keeps its internal ID
	for _, u := range m.users {
		if u.Provider == user.Provider && u.ProviderID == user.ProviderID {
			user.ID = u.ID
			m.users[u.ID] = user
			return nil
		}
	}
	user.ID = fmt.Sprintf("u-%d", m.upserts)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

func newTestSessionContext(t *testing.T, users *mockUserRepo) *SessionContext {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-key-0123456789")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return NewSessionContext(users, tokens, testLogger())
}

func githubProfile() *auth.Profile {
	return &auth.Profile{
		Provider:   model.ProviderGitHub,
		ProviderID: "12345",
		Login:      "octocat",
		Email:      "octocat@example.com",
		AvatarURL:  "https://example.com/a.png",
	}
}

// =========================================================================
// SIGN-IN TESTS
// =========================================================================

func TestSignIn_CreatesUserAndIssuesToken(t *testing.T) {
	users := newMockUserRepo()
	sc := newTestSessionContext(t, users)

	result, err := sc.SignIn(context.Background(), githubProfile())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("user was not assigned an internal ID")
	}
	if result.User.Login != "octocat" {
		t.Errorf("Login = %q, want octocat", result.User.Login)
	}
	if result.Session.UserID != result.User.ID || result.Session.Login != "octocat" {
		t.Errorf("session = %+v, does not match the user", result.Session)
	}
	if result.Token == "" {
		t.Error("no token issued")
	}
	if users.upserts != 1 {
		t.Errorf("upserts = %d, want 1", users.upserts)
	}
}

func TestSignIn_RepeatKeepsUserID(t *testing.T) {
	sc := newTestSessionContext(t, newMockUserRepo())

	first, err := sc.SignIn(context.Background(), githubProfile())
	if err != nil {
		t.Fatalf("first SignIn() error = %v", err)
	}

	profile := githubProfile()
	profile.Login = "renamed"
	second, err := sc.SignIn(context.Background(), profile)
	if err != nil {
		t.Fatalf("second SignIn() error = %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("returning user got a new ID: %s then %s", first.User.ID, second.User.ID)
	}
	if second.User.Login != "renamed" {
		t.Errorf("Login = %q, profile change was not applied", second.User.Login)
	}
}

func TestSignIn_EmptyProfile(t *testing.T) {
	sc := newTestSessionContext(t, newMockUserRepo())

	for _, profile := range []*auth.Profile{nil, {Provider: model.ProviderGitHub}} {
		_, err := sc.SignIn(context.Background(), profile)
		if !errors.Is(err, apperror.ErrAuth) {
			t.Errorf("SignIn(%+v) error = %v, want ErrAuth", profile, err)
		}
	}
}

func TestSignIn_UpsertFailureNotifiesNobody(t *testing.T) {
	users := newMockUserRepo()
	users.upsertErr = fmt.Errorf("store unavailable")
	sc := newTestSessionContext(t, users)

	notified := 0
	sc.Subscribe(func(_ context.Context, _, _ model.Session) { notified++ })

	_, err := sc.SignIn(context.Background(), githubProfile())
	if !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("SignIn() error = %v, want ErrAuth", err)
	}
	if notified != 0 {
		t.Errorf("subscribers notified %d times on a failed sign-in", notified)
	}
}

// =========================================================================
// TRANSITION BROADCAST TESTS
// =========================================================================

func TestTransitions_SubscribersRunSynchronouslyInOrder(t *testing.T) {
	sc := newTestSessionContext(t, newMockUserRepo())

	var order []string
	var seen []model.Session
	sc.Subscribe(func(_ context.Context, prev, next model.Session) {
		order = append(order, "first")
		seen = append(seen, prev, next)
	})
	sc.Subscribe(func(_ context.Context, _, _ model.Session) {
		order = append(order, "second")
	})

	result, err := sc.SignIn(context.Background(), githubProfile())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	// By the time SignIn returned, both listeners already ran, in order.
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("listener order = %v", order)
	}
	if seen[0].Active() {
		t.Error("sign-in prev session should be the zero value")
	}
	if seen[1] != result.Session {
		t.Errorf("sign-in next session = %+v, want %+v", seen[1], result.Session)
	}

	sc.SignOut(context.Background(), result.Session)
	if len(order) != 4 {
		t.Fatalf("listeners did not run on sign-out: %v", order)
	}
	if seen[2] != result.Session || seen[3].Active() {
		t.Errorf("sign-out transition = %+v -> %+v", seen[2], seen[3])
	}
}

func TestSignOut_InactiveSessionIsNoop(t *testing.T) {
	sc := newTestSessionContext(t, newMockUserRepo())

	notified := 0
	sc.Subscribe(func(_ context.Context, _, _ model.Session) { notified++ })

	sc.SignOut(context.Background(), model.Session{})
	if notified != 0 {
		t.Errorf("sign-out of an inactive session notified %d listeners", notified)
	}
}

// =========================================================================
// SESSION RESOLUTION TESTS
// =========================================================================

func TestSessionFor(t *testing.T) {
	users := newMockUserRepo()
	sc := newTestSessionContext(t, users)

	result, err := sc.SignIn(context.Background(), githubProfile())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	session, err := sc.SessionFor(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("SessionFor() error = %v", err)
	}
	if session != result.Session {
		t.Errorf("SessionFor() = %+v, want %+v", session, result.Session)
	}

	// empty ID resolves to the anonymous session, not an error
	session, err = sc.SessionFor(context.Background(), "")
	if err != nil || session.Active() {
		t.Errorf("SessionFor(\"\") = %+v, %v; want inactive, nil", session, err)
	}

	// unknown ID is a not-found
	if _, err := sc.SessionFor(context.Background(), "u-999"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SessionFor(unknown) error = %v, want ErrNotFound", err)
	}
}

// End-to-end wiring: the favorites manager and thread manager subscribed to
// the session context see sign-in and sign-out like the HTTP layer wires them.
func TestTransitions_DriveFavoritesAndThreads(t *testing.T) {
	favRepo := &mockFavoriteRepo{}
	favorites := NewFavoritesManager(favRepo, FavoritesConfig{}, testLogger())
	threads := NewThreadManager(&mockCommentRepo{}, testLogger())

	sc := newTestSessionContext(t, newMockUserRepo())
	sc.Subscribe(favorites.HandleSessionChange)
	sc.Subscribe(threads.HandleSessionChange)

	result, err := sc.SignIn(context.Background(), githubProfile())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	store := favorites.StoreFor(context.Background(), result.Session)
	if store == nil {
		t.Fatal("no favorites store after sign-in")
	}
	if _, err := store.Toggle(context.Background(), "5"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	thread := threads.ThreadFor(result.Session)
	if _, err := thread.Open(context.Background(), "5"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	sc.SignOut(context.Background(), result.Session)

	// Cleared synchronously by the broadcast.
	if store.IsFavorite("5") {
		t.Error("favorites survived sign-out")
	}
	if got := thread.Comments(); len(got) != 0 {
		t.Errorf("thread cache survived sign-out: %v", got)
	}
}
