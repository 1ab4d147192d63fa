package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/repository"
)

// compile-time check that *userRepo implements repository.UserRepository
var _ repository.UserRepository = (*userRepo)(nil)

// userRepo runs user queries against a querier — the shared pool for
// standalone calls, a *sql.Tx inside DB.InTransaction.
type userRepo struct {
	q querier
}

// Create inserts a new user with an empty owned-place set. The ID and
// timestamps are filled in on the passed struct.
// A duplicate email surfaces as apperror.ErrConflict.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Places == nil {
		user.Places = []string{}
	}

	// github_id is NULL unless the account came through OAuth —
	// sqlite's UNIQUE treats NULLs as distinct, so password accounts
	// don't collide with each other.
	var githubID any
	if user.GitHubID != 0 {
		githubID = user.GitHubID
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, image, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Image,
		githubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// The driver reports constraint violations as plain errors with
		// a recognizable message; there is no typed error to errors.Is on.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return apperror.Conflict("a user with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user together with their owned-place set.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email (unique).
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

// GetByGitHubID retrieves a user by their GitHub account ID.
func (r *userRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return r.getOne(ctx, `WHERE github_id = ?`, githubID)
}

func (r *userRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	var githubID sql.NullInt64

	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, image, github_id, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Image,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	u.GitHubID = githubID.Int64

	places, err := r.placeIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Places = places

	return &u, nil
}

// List returns all users with their owned-place sets. The password hash
// column is selected (the struct needs it internally) but the model's
// json:"-" tag keeps it out of every response.
func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, email, image, github_id, created_at, updated_at
		 FROM users
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	index := map[string]int{}

	for rows.Next() {
		var u model.User
		var githubID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.GitHubID = githubID.Int64
		u.Places = []string{}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	// One query for all owned sets instead of one per user.
	ownRows, err := r.q.QueryContext(ctx, `SELECT user_id, place_id FROM user_places`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing owned sets: %w", err)
	}
	defer ownRows.Close()

	for ownRows.Next() {
		var userID, placeID string
		if err := ownRows.Scan(&userID, &placeID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning owned-set row: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Places = append(users[i].Places, placeID)
		}
	}
	if err := ownRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating owned sets: %w", err)
	}

	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// AddPlace appends a place ID to the user's owned set. Meant to run in
// the same transaction as the matching place insert.
func (r *userRepo) AddPlace(ctx context.Context, userID, placeID string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO user_places (user_id, place_id) VALUES (?, ?)`,
		userID, placeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding place %s to user %s: %w", placeID, userID, err)
	}
	return nil
}

// RemovePlace removes a place ID from the user's owned set. Meant to run
// in the same transaction as the matching place delete.
func (r *userRepo) RemovePlace(ctx context.Context, userID, placeID string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM user_places WHERE user_id = ? AND place_id = ?`,
		userID, placeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing place %s from user %s: %w", placeID, userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The set and the place row disagree — the invariant is already
		// broken, and committing would hide that.
		return fmt.Errorf("sqlite: place %s was not in user %s's owned set", placeID, userID)
	}
	return nil
}

// placeIDs loads the owned-place set for one user.
func (r *userRepo) placeIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT place_id FROM user_places WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading owned set for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning owned-set row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating owned set: %w", err)
	}
	return ids, nil
}
