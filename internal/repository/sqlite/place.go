package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/repository"
)

// compile-time check that *placeRepo implements repository.PlaceRepository
var _ repository.PlaceRepository = (*placeRepo)(nil)

type placeRepo struct {
	q querier
}

const placeColumns = `id, title, description, address, lat, lng, creator, image, created_at, updated_at`

// Insert writes a new place row. The ID and timestamps are filled in on
// the passed struct. This is intentionally the ONLY durable write path
// for a new place — callers run it once, inside the create transaction.
func (r *placeRepo) Insert(ctx context.Context, place *model.Place) error {
	place.ID = xid.New().String()
	now := time.Now()
	place.CreatedAt = now
	place.UpdatedAt = now

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO places (`+placeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		place.ID,
		place.Title,
		place.Description,
		place.Address,
		place.Location.Lat,
		place.Location.Lng,
		place.Creator,
		place.Image,
		place.CreatedAt,
		place.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting place: %w", err)
	}

	return nil
}

// GetByID retrieves a single place.
// Returns apperror.ErrNotFound if no place exists with that ID.
func (r *placeRepo) GetByID(ctx context.Context, id string) (*model.Place, error) {
	var p model.Place

	err := r.q.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.Location.Lat,
		&p.Location.Lng,
		&p.Creator,
		&p.Image,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("place", id)
		}
		return nil, fmt.Errorf("sqlite: getting place %s: %w", id, err)
	}

	return &p, nil
}

// GetByIDWithCreator retrieves a place joined with its creator in one
// query. Delete uses this so the ownership check runs against the
// resolved creator record, and so there is no window between "read
// place" and "read owner" where either could change.
func (r *placeRepo) GetByIDWithCreator(ctx context.Context, id string) (*model.Place, *model.User, error) {
	var p model.Place
	var u model.User

	err := r.q.QueryRowContext(ctx,
		`SELECT p.id, p.title, p.description, p.address, p.lat, p.lng, p.creator, p.image, p.created_at, p.updated_at,
		        u.id, u.name, u.email, u.image, u.created_at, u.updated_at
		 FROM places p
		 JOIN users u ON u.id = p.creator
		 WHERE p.id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.Location.Lat,
		&p.Location.Lng,
		&p.Creator,
		&p.Image,
		&p.CreatedAt,
		&p.UpdatedAt,
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, apperror.NotFound("place", id)
		}
		return nil, nil, fmt.Errorf("sqlite: getting place %s with creator: %w", id, err)
	}

	return &p, &u, nil
}

// ListByUser returns every place created by the given user, newest first.
func (r *placeRepo) ListByUser(ctx context.Context, userID string) ([]model.Place, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places
		 WHERE creator = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing places for user %s: %w", userID, err)
	}
	defer rows.Close()

	places := []model.Place{}
	for rows.Next() {
		var p model.Place
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Address,
			&p.Location.Lat, &p.Location.Lng, &p.Creator, &p.Image,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning place row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating places: %w", err)
	}

	return places, nil
}

// Update writes the mutable fields (title, description) plus the
// timestamp. Address, location, creator, and image are immutable after
// creation, so the statement simply never mentions them.
func (r *placeRepo) Update(ctx context.Context, place *model.Place) error {
	place.UpdatedAt = time.Now()

	result, err := r.q.ExecContext(ctx,
		`UPDATE places SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		place.Title,
		place.Description,
		place.UpdatedAt,
		place.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating place %s: %w", place.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("place", place.ID)
	}

	return nil
}

// Delete removes a place row. Meant to run in the same transaction as the
// matching owned-set removal.
func (r *placeRepo) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM places WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting place %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("place", id)
	}

	return nil
}
