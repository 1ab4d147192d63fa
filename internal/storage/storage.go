// Package storage handles uploaded image assets.
//
// Assets are advisory from the ownership engine's point of view: the
// database rows are the authoritative state, and a failed image deletion
// is logged, never surfaced to the API caller.
package storage

import (
	"context"
	"io"
)

// AssetStore saves and deletes uploaded files.
//
// Save returns the stored asset's path, which is what User.Image and
// Place.Image record and what DeleteByPath later receives. Callers treat
// DeleteByPath failures as log-only.
type AssetStore interface {
	Save(ctx context.Context, name string, r io.Reader) (path string, err error)
	DeleteByPath(ctx context.Context, path string) error
}
