package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/auth"
	"github.com/sakif/placeshare/internal/geocode"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/repository"
	"github.com/sakif/placeshare/internal/storage"
)

// Validation limits for place fields.
const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
)

// PlaceService is the ownership consistency engine.
//
// Every mutation takes the caller's verified auth.Identity as an explicit
// parameter — never a client-supplied owner field — and every write that
// touches both a place and its owner's set runs inside one store
// transaction, so the bidirectional user↔places link can never be
// observed half-applied.
type PlaceService struct {
	store    repository.Store
	geocoder geocode.Geocoder
	assets   storage.AssetStore
	logger   *slog.Logger
}

// NewPlaceService creates a PlaceService.
func NewPlaceService(
	store repository.Store,
	geocoder geocode.Geocoder,
	assets storage.AssetStore,
	logger *slog.Logger,
) *PlaceService {
	return &PlaceService{
		store:    store,
		geocoder: geocoder,
		assets:   assets,
		logger:   logger,
	}
}

// Create geocodes the address, then inserts the place and appends it to
// the owner's set in one atomic transaction.
//
// Failure order matters: geocoding and the owner lookup happen BEFORE the
// transaction so their failures (ErrGeocoding, ErrNotFound) leave no
// durable side effect at all. Inside the transaction there is exactly one
// insert per entity — one place row, one owned-set row — and both commit
// together or neither does.
func (s *PlaceService) Create(ctx context.Context, ident auth.Identity, title, description, address, imagePath string) (*model.Place, error) {
	title = strings.TrimSpace(title)
	address = strings.TrimSpace(address)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if address == "" {
		return nil, apperror.ValidationFailed("address", "address is required")
	}

	location, err := s.geocoder.Resolve(ctx, address)
	if err != nil {
		s.logger.Warn("geocoding failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		return nil, err // already ErrGeocoding
	}

	owner, err := s.store.Users().GetByID(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.StoreUnavailable(err)
	}

	place := &model.Place{
		Title:       title,
		Description: strings.TrimSpace(description),
		Address:     address,
		Location:    location,
		Creator:     owner.ID,
		Image:       imagePath,
	}

	err = s.store.InTransaction(ctx, func(r repository.Repositories) error {
		if err := r.Places.Insert(ctx, place); err != nil {
			return err
		}
		return r.Users.AddPlace(ctx, owner.ID, place.ID)
	})
	if err != nil {
		s.logger.Error("place create transaction failed",
			slog.String("userID", owner.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.TransactionFailed(err)
	}

	s.logger.Info("place created",
		slog.String("placeID", place.ID),
		slog.String("userID", owner.ID),
	)

	return place, nil
}

// GetByID returns a single place.
func (s *PlaceService) GetByID(ctx context.Context, placeID string) (*model.Place, error) {
	place, err := s.store.Places().GetByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.StoreUnavailable(err)
	}
	return place, nil
}

// ListByUser returns the places a user created. A user with zero places
// reports NotFound, mirroring the API's established contract.
func (s *PlaceService) ListByUser(ctx context.Context, userID string) ([]model.Place, error) {
	places, err := s.store.Places().ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.StoreUnavailable(err)
	}
	if len(places) == 0 {
		return nil, apperror.NotFound("places for user", userID)
	}
	return places, nil
}

// Update mutates a place's title and description.
//
// Only the creator may update, and only those two fields ever change —
// address, location, creator, and image are immutable after creation.
// The owned set is unaffected, so this is a single-record write with no
// cross-entity transaction.
func (s *PlaceService) Update(ctx context.Context, ident auth.Identity, placeID, title, description string) (*model.Place, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	place, err := s.store.Places().GetByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.StoreUnavailable(err)
	}

	if place.Creator != ident.UserID {
		return nil, apperror.Forbidden("you are not allowed to edit this place")
	}

	place.Title = title
	place.Description = strings.TrimSpace(description)

	if err := s.store.Places().Update(ctx, place); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update place",
			slog.String("placeID", placeID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StoreUnavailable(err)
	}

	s.logger.Info("place updated",
		slog.String("placeID", place.ID),
		slog.String("userID", ident.UserID),
	)

	return place, nil
}

// Delete removes a place and its owned-set entry in one atomic
// transaction, then best-effort deletes the image asset.
//
// The ownership check compares the RESOLVED creator's ID from the joined
// read against the verified identity — two plain strings. Comparing any
// larger projection (whole user record, populated reference) risks an
// equality that silently never matches.
//
// The image deletion runs only AFTER the transaction commits: stored
// state is authoritative, asset cleanup is advisory, and its failure is
// logged, never returned.
func (s *PlaceService) Delete(ctx context.Context, ident auth.Identity, placeID string) error {
	place, creator, err := s.store.Places().GetByIDWithCreator(ctx, placeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return apperror.StoreUnavailable(err)
	}

	if creator.ID != ident.UserID {
		return apperror.Forbidden("you are not allowed to delete this place")
	}

	err = s.store.InTransaction(ctx, func(r repository.Repositories) error {
		if err := r.Users.RemovePlace(ctx, creator.ID, place.ID); err != nil {
			return err
		}
		return r.Places.Delete(ctx, place.ID)
	})
	if err != nil {
		s.logger.Error("place delete transaction failed",
			slog.String("placeID", placeID),
			slog.String("error", err.Error()),
		)
		return apperror.TransactionFailed(err)
	}

	if place.Image != "" {
		if err := s.assets.DeleteByPath(ctx, place.Image); err != nil {
			s.logger.Warn("failed to delete place image",
				slog.String("placeID", placeID),
				slog.String("path", place.Image),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("place deleted",
		slog.String("placeID", placeID),
		slog.String("userID", ident.UserID),
	)

	return nil
}
