package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/placeshare/internal/auth"
	"github.com/sakif/placeshare/internal/model"
	"github.com/sakif/placeshare/internal/service"
	"github.com/sakif/placeshare/internal/storage"
)

// PlaceAPI is the slice of the place service the handler needs.
// *service.PlaceService satisfies it; handler tests substitute a mock.
type PlaceAPI interface {
	Create(ctx context.Context, ident auth.Identity, title, description, address, imagePath string) (*model.Place, error)
	GetByID(ctx context.Context, placeID string) (*model.Place, error)
	ListByUser(ctx context.Context, userID string) ([]model.Place, error)
	Update(ctx context.Context, ident auth.Identity, placeID, title, description string) (*model.Place, error)
	Delete(ctx context.Context, ident auth.Identity, placeID string) error
}

// Compile-time check that the real service satisfies the interface.
var _ PlaceAPI = (*service.PlaceService)(nil)

// PlaceHandler serves the place CRUD endpoints. All mutations run behind
// the RequireAuth middleware, so the verified identity is always in the
// request context by the time these methods execute.
type PlaceHandler struct {
	places PlaceAPI
	assets storage.AssetStore
	logger *slog.Logger
}

// NewPlaceHandler creates a PlaceHandler.
func NewPlaceHandler(places PlaceAPI, assets storage.AssetStore, logger *slog.Logger) *PlaceHandler {
	return &PlaceHandler{
		places: places,
		assets: assets,
		logger: logger,
	}
}

// HandleGetByID returns a single place.
//
// HTTP: GET /api/places/{pid}
func (h *PlaceHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	place, err := h.places.GetByID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*model.Place{"place": place})
}

// HandleListByUser returns all places created by one user, newest first.
//
// HTTP: GET /api/places/user/{uid}
//
// A user with zero places is a 404, not an empty list. Existing clients
// depend on that contract.
func (h *PlaceHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	places, err := h.places.ListByUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.Place{"places": places})
}

// HandleCreate creates a place owned by the authenticated user.
//
// HTTP: POST /api/places (multipart/form-data, auth required)
// Fields: title, description, address, image (optional file)
//
// The creator is always the verified identity from the token. A client
// cannot create a place on someone else's behalf, so there is no
// creator field to parse.
func (h *PlaceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't trust route wiring.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("create place: bad multipart body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "expected multipart form data",
		})
		return
	}

	imagePath := ""
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imagePath, err = h.assets.Save(r.Context(), header.Filename, file)
		if err != nil {
			h.logger.Error("create place: image save failed", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
	}

	place, err := h.places.Create(r.Context(), ident,
		r.FormValue("title"),
		r.FormValue("description"),
		r.FormValue("address"),
		imagePath,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]*model.Place{"place": place})
}

// HandleUpdate changes a place's title and description.
//
// HTTP: PATCH /api/places/{pid} (JSON, auth required)
// Body: {"title": "...", "description": "..."}
//
// Address, location, creator, and image are immutable; the request body
// simply has nowhere to put them.
func (h *PlaceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid request body",
		})
		return
	}

	place, err := h.places.Update(r.Context(), ident, chi.URLParam(r, "pid"), req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*model.Place{"place": place})
}

// HandleDelete removes a place.
//
// HTTP: DELETE /api/places/{pid} (auth required)
func (h *PlaceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	if err := h.places.Delete(r.Context(), ident, chi.URLParam(r, "pid")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "place deleted"})
}
