package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/auth"
	"github.com/sakif/placeshare/internal/handler"
	"github.com/sakif/placeshare/internal/model"
)

// MockPlaceAPI implements handler.PlaceAPI, capturing the identity each
// mutation was called with so tests can verify it came from the token.
type MockPlaceAPI struct {
	CapturedIdent auth.Identity
	CapturedTitle string
	ReturnPlace   *model.Place
	ReturnPlaces  []model.Place
	ReturnErr     error
}

func (m *MockPlaceAPI) Create(_ context.Context, ident auth.Identity, title, description, address, imagePath string) (*model.Place, error) {
	m.CapturedIdent, m.CapturedTitle = ident, title
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnPlace, nil
}

func (m *MockPlaceAPI) GetByID(_ context.Context, placeID string) (*model.Place, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnPlace, nil
}

func (m *MockPlaceAPI) ListByUser(_ context.Context, userID string) ([]model.Place, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnPlaces, nil
}

func (m *MockPlaceAPI) Update(_ context.Context, ident auth.Identity, placeID, title, description string) (*model.Place, error) {
	m.CapturedIdent, m.CapturedTitle = ident, title
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnPlace, nil
}

func (m *MockPlaceAPI) Delete(_ context.Context, ident auth.Identity, placeID string) error {
	m.CapturedIdent = ident
	return m.ReturnErr
}

// placeRouter mounts the place routes the same way the server does, with
// the real RequireAuth middleware guarding mutations. Returns the router
// and a valid bearer token for the given user.
func placeRouter(t *testing.T, api handler.PlaceAPI, userID string) (chi.Router, string) {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	assert.NoError(t, err)

	token, err := tokens.Generate(userID, userID+"@example.com")
	assert.NoError(t, err)

	h := handler.NewPlaceHandler(api, &MockAssetStore{}, testLogger())

	r := chi.NewRouter()
	r.Get("/api/places/{pid}", h.HandleGetByID)
	r.Get("/api/places/user/{uid}", h.HandleListByUser)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Post("/api/places", h.HandleCreate)
		r.Patch("/api/places/{pid}", h.HandleUpdate)
		r.Delete("/api/places/{pid}", h.HandleDelete)
	})

	return r, token
}

func placeForm(t *testing.T, title, description, address string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	assert.NoError(t, mw.WriteField("title", title))
	assert.NoError(t, mw.WriteField("description", description))
	assert.NoError(t, mw.WriteField("address", address))
	assert.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestPlaceHandler_HandleGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnPlace: &model.Place{
			ID:    "p1",
			Title: "Empire State",
			Location: model.Location{
				Lat: 40.7484, Lng: -73.9857,
			},
		}}
		r, _ := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodGet, "/api/places/p1", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res map[string]model.Place
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "Empire State", res["place"].Title)
		assert.Equal(t, 40.7484, res["place"].Location.Lat)
	})

	t.Run("not found", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnErr: apperror.NotFound("place", "p404")}
		r, _ := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodGet, "/api/places/p404", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		var res handler.ErrorResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "not_found", res.Error)
	})
}

func TestPlaceHandler_HandleListByUser(t *testing.T) {
	t.Run("places exist", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnPlaces: []model.Place{
			{ID: "p2", Title: "Newer"},
			{ID: "p1", Title: "Older"},
		}}
		r, _ := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodGet, "/api/places/user/u1", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res map[string][]model.Place
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Len(t, res["places"], 2)
	})

	t.Run("zero places is a 404, not an empty list", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnErr: apperror.NotFound("places for user", "u1")}
		r, _ := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodGet, "/api/places/user/u1", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPlaceHandler_HandleCreate(t *testing.T) {
	t.Run("creator comes from the token, not the body", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnPlace: &model.Place{ID: "p1", Title: "Empire State", Creator: "u1"}}
		r, token := placeRouter(t, api, "u1")

		body, contentType := placeForm(t, "Empire State", "Tall.", "350 Fifth Ave")
		req := httptest.NewRequest(http.MethodPost, "/api/places", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "u1", api.CapturedIdent.UserID)
		assert.Equal(t, "Empire State", api.CapturedTitle)
	})

	t.Run("no token is a 401 before the handler runs", func(t *testing.T) {
		api := &MockPlaceAPI{}
		r, _ := placeRouter(t, api, "u1")

		body, contentType := placeForm(t, "Empire State", "", "350 Fifth Ave")
		req := httptest.NewRequest(http.MethodPost, "/api/places", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, api.CapturedIdent.UserID, "service must not be reached without a token")
	})

	t.Run("geocoding failure maps to 502", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnErr: apperror.GeocodingFailed(assert.AnError)}
		r, token := placeRouter(t, api, "u1")

		body, contentType := placeForm(t, "Empire State", "", "nowhere at all")
		req := httptest.NewRequest(http.MethodPost, "/api/places", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		var res handler.ErrorResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "geocoding_failed", res.Error)
	})
}

func TestPlaceHandler_HandleUpdate(t *testing.T) {
	t.Run("owner updates title and description", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnPlace: &model.Place{ID: "p1", Title: "ESB", Creator: "u1"}}
		r, token := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodPatch, "/api/places/p1",
			strings.NewReader(`{"title":"ESB","description":"renamed"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "u1", api.CapturedIdent.UserID)
	})

	t.Run("non-owner is a 403", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnErr: apperror.Forbidden("you are not allowed to edit this place")}
		r, token := placeRouter(t, api, "u2")

		req := httptest.NewRequest(http.MethodPatch, "/api/places/p1",
			strings.NewReader(`{"title":"Hijacked"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		var res handler.ErrorResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "forbidden", res.Error)
	})
}

func TestPlaceHandler_HandleDelete(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		api := &MockPlaceAPI{}
		r, token := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodDelete, "/api/places/p1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "u1", api.CapturedIdent.UserID)
	})

	t.Run("transaction failure maps to 500", func(t *testing.T) {
		api := &MockPlaceAPI{ReturnErr: apperror.TransactionFailed(assert.AnError)}
		r, token := placeRouter(t, api, "u1")

		req := httptest.NewRequest(http.MethodDelete, "/api/places/p1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
