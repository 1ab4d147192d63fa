package service

// In-memory fakes for the repository and collaborator interfaces. The
// services only see interfaces, so tests swap the real sqlite store, the
// Nominatim client, and the disk asset store for these.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/repository"
)

// mockStore keeps users, places, and owned sets in maps. InTransaction
// snapshots the state and restores it when the callback errors, so the
// rollback behavior of the real store is faithfully reproduced.
type mockStore struct {
	users   map[string]*model.User
	places  map[string]*model.Place
	owned   map[string]map[string]bool // userID → set of placeIDs
	nextID  int
	txErr   error // injected: InTransaction fails after running fn
	userErr error // injected: user reads fail
}

func newMockStore() *mockStore {
	return &mockStore{
		users:  make(map[string]*model.User),
		places: make(map[string]*model.Place),
		owned:  make(map[string]map[string]bool),
	}
}

func (m *mockStore) Users() repository.UserRepository   { return &mockUserRepo{m} }
func (m *mockStore) Places() repository.PlaceRepository { return &mockPlaceRepo{m} }

func (m *mockStore) InTransaction(ctx context.Context, fn func(r repository.Repositories) error) error {
	snapshot := m.clone()

	err := fn(repository.Repositories{Users: &mockUserRepo{m}, Places: &mockPlaceRepo{m}})
	if err == nil && m.txErr != nil {
		err = m.txErr
	}
	if err != nil {
		// roll back
		m.users, m.places, m.owned = snapshot.users, snapshot.places, snapshot.owned
		return err
	}
	return nil
}

func (m *mockStore) clone() *mockStore {
	c := newMockStore()
	for id, u := range m.users {
		copied := *u
		c.users[id] = &copied
	}
	for id, p := range m.places {
		copied := *p
		c.places[id] = &copied
	}
	for id, set := range m.owned {
		c.owned[id] = make(map[string]bool, len(set))
		for pid := range set {
			c.owned[id][pid] = true
		}
	}
	return c
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// ownedSlice materializes the owned set in a stable-enough form for
// assertions.
func (m *mockStore) ownedSlice(userID string) []string {
	ids := []string{}
	for pid := range m.owned[userID] {
		ids = append(ids, pid)
	}
	return ids
}

type mockUserRepo struct{ s *mockStore }

func (r *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return apperror.Conflict("a user with this email already exists")
		}
	}
	user.ID = r.s.id("user")
	stored := *user
	r.s.users[user.ID] = &stored
	r.s.owned[user.ID] = make(map[string]bool)
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if r.s.userErr != nil {
		return nil, r.s.userErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	result.Places = r.s.ownedSlice(id)
	return &result, nil
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if r.s.userErr != nil {
		return nil, r.s.userErr
	}
	for id, u := range r.s.users {
		if u.Email == email {
			result := *u
			result.Places = r.s.ownedSlice(id)
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (r *mockUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for id, u := range r.s.users {
		if u.GitHubID == githubID && githubID != 0 {
			result := *u
			result.Places = r.s.ownedSlice(id)
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (r *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	result := make([]model.User, 0, len(r.s.users))
	for id, u := range r.s.users {
		copied := *u
		copied.Places = r.s.ownedSlice(id)
		result = append(result, copied)
	}
	return result, nil
}

func (r *mockUserRepo) AddPlace(_ context.Context, userID, placeID string) error {
	set, ok := r.s.owned[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	set[placeID] = true
	return nil
}

func (r *mockUserRepo) RemovePlace(_ context.Context, userID, placeID string) error {
	set, ok := r.s.owned[userID]
	if !ok || !set[placeID] {
		return fmt.Errorf("place %s not in user %s's owned set", placeID, userID)
	}
	delete(set, placeID)
	return nil
}

type mockPlaceRepo struct{ s *mockStore }

func (r *mockPlaceRepo) Insert(_ context.Context, place *model.Place) error {
	place.ID = r.s.id("place")
	stored := *place
	r.s.places[place.ID] = &stored
	return nil
}

func (r *mockPlaceRepo) GetByID(_ context.Context, id string) (*model.Place, error) {
	p, ok := r.s.places[id]
	if !ok {
		return nil, apperror.NotFound("place", id)
	}
	result := *p
	return &result, nil
}

func (r *mockPlaceRepo) GetByIDWithCreator(_ context.Context, id string) (*model.Place, *model.User, error) {
	p, ok := r.s.places[id]
	if !ok {
		return nil, nil, apperror.NotFound("place", id)
	}
	u, ok := r.s.users[p.Creator]
	if !ok {
		return nil, nil, apperror.NotFound("user", p.Creator)
	}
	place, user := *p, *u
	return &place, &user, nil
}

func (r *mockPlaceRepo) ListByUser(_ context.Context, userID string) ([]model.Place, error) {
	result := []model.Place{}
	for _, p := range r.s.places {
		if p.Creator == userID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *mockPlaceRepo) Update(_ context.Context, place *model.Place) error {
	stored, ok := r.s.places[place.ID]
	if !ok {
		return apperror.NotFound("place", place.ID)
	}
	stored.Title = place.Title
	stored.Description = place.Description
	return nil
}

func (r *mockPlaceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.places[id]; !ok {
		return apperror.NotFound("place", id)
	}
	delete(r.s.places, id)
	return nil
}

// mockGeocoder returns a fixed location, or a geocoding failure when err
// is set.
type mockGeocoder struct {
	loc model.Location
	err error
}

func (g *mockGeocoder) Resolve(_ context.Context, address string) (model.Location, error) {
	if g.err != nil {
		return model.Location{}, g.err
	}
	return g.loc, nil
}

// mockAssets records deletions; failNext makes the next delete fail to
// exercise the advisory-cleanup path.
type mockAssets struct {
	deleted  []string
	failNext bool
}

func (a *mockAssets) Save(_ context.Context, name string, _ io.Reader) (string, error) {
	return "uploads/" + name, nil
}

func (a *mockAssets) DeleteByPath(_ context.Context, path string) error {
	if a.failNext {
		a.failNext = false
		return fmt.Errorf("disk on fire")
	}
	a.deleted = append(a.deleted, path)
	return nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
