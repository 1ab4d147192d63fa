// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Places holds the IDs of every place this user created — the "owned set".
// It is stored explicitly (user_places rows) rather than derived from the
// places table, and the repository keeps it in sync with Place.Creator
// inside the same transaction. The invariant is bidirectional: every ID in
// Places names a Place whose Creator is this user, and every Place whose
// Creator is this user appears in Places.
//
// PasswordHash is tagged `json:"-"` so it can never leak through a JSON
// projection, no matter which handler serializes the struct. OAuth-created
// users have an empty PasswordHash and a non-zero GitHubID instead.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image"` // path of the uploaded avatar
	GitHubID     int64     `json:"-"`     // 0 unless registered via GitHub OAuth
	Places       []string  `json:"places"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
