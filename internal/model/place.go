package model

import "time"

// Location is a geocoded coordinate pair produced by the geocoder from a
// free-text address. It is resolved once at creation and never updated.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place represents a shared location record.
//
// Creator is the ID of exactly one User and is immutable after creation,
// as are Address, Location, and Image — an update may only touch Title and
// Description. The owning user's Places set always contains this ID; the
// repository commits both sides of that link in one transaction.
type Place struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Location    Location  `json:"location"`
	Creator     string    `json:"creator"`
	Image       string    `json:"image"` // path of the uploaded photo
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
