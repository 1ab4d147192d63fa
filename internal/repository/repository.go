// Package repository defines the storage interfaces the services depend
// on. The sqlite subpackage provides the production implementation;
// service tests provide in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/placeshare/internal/model"
)

// UserRepository reads and writes user records.
//
// AddPlace and RemovePlace maintain the user's owned-place set. On their
// own they only touch one side of the user↔place link; callers that need
// the bidirectional invariant combine them with the matching place write
// inside Store.InTransaction.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	AddPlace(ctx context.Context, userID, placeID string) error
	RemovePlace(ctx context.Context, userID, placeID string) error
}

// PlaceRepository reads and writes place records.
//
// GetByIDWithCreator is the joined read used by delete: one call returns
// the place together with its creator so the ownership check compares
// resolved identifiers, never client-supplied ones.
type PlaceRepository interface {
	Insert(ctx context.Context, place *model.Place) error
	GetByID(ctx context.Context, id string) (*model.Place, error)
	GetByIDWithCreator(ctx context.Context, id string) (*model.Place, *model.User, error)
	ListByUser(ctx context.Context, userID string) ([]model.Place, error)
	Update(ctx context.Context, place *model.Place) error
	Delete(ctx context.Context, id string) error
}

// Repositories bundles tx-bound repositories handed to an InTransaction
// callback. Writes made through them belong to one transaction.
type Repositories struct {
	Users  UserRepository
	Places PlaceRepository
}

// Store is the persistent store reached through repositories.
//
// InTransaction runs fn with repositories bound to a single store
// transaction: if fn returns nil every write commits together, if fn
// returns an error (or panics) every write rolls back and readers never
// observe a partial state. This is what keeps the user↔places link from
// ever being one-sided.
type Store interface {
	Users() UserRepository
	Places() PlaceRepository
	InTransaction(ctx context.Context, fn func(r Repositories) error) error
}
