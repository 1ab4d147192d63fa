// Package geocode resolves free-text addresses to coordinates.
//
// The production implementation calls the OpenStreetMap Nominatim search
// API over HTTP. The service layer depends only on the Geocoder interface,
// so tests substitute a stub and never touch the network.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sakif/placeshare/internal/apperror"
	"github.com/sakif/placeshare/internal/model"
)

// Geocoder resolves an address to a coordinate pair. Implementations fail
// with apperror.ErrGeocoding on transport errors, upstream failures, and
// addresses that match nothing.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (model.Location, error)
}

// requestTimeout bounds every lookup. Geocoding sits on the critical path
// of place creation; without a deadline a stalled upstream would pin the
// request until the client gives up.
const requestTimeout = 5 * time.Second

// NominatimClient is a Geocoder backed by the Nominatim search API.
type NominatimClient struct {
	baseURL   string
	userAgent string // Nominatim's usage policy requires an identifying User-Agent
	client    *http.Client
}

// NewNominatimClient creates a client for the given Nominatim instance.
// baseURL is typically "https://nominatim.openstreetmap.org".
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: requestTimeout},
	}
}

// nominatimResult is the slice element of a /search response. Nominatim
// returns coordinates as JSON strings, not numbers.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up the address and returns the best match.
func (c *NominatimClient) Resolve(ctx context.Context, address string) (model.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return model.Location{}, apperror.GeocodingFailed(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Location{}, apperror.GeocodingFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Location{}, apperror.GeocodingFailed(fmt.Errorf("geocode: upstream returned status %d", resp.StatusCode))
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return model.Location{}, apperror.GeocodingFailed(fmt.Errorf("geocode: decoding response: %w", err))
	}
	if len(results) == 0 {
		return model.Location{}, apperror.GeocodingFailed(fmt.Errorf("geocode: no results for address"))
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return model.Location{}, apperror.GeocodingFailed(fmt.Errorf("geocode: parsing latitude %q: %w", results[0].Lat, err))
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return model.Location{}, apperror.GeocodingFailed(fmt.Errorf("geocode: parsing longitude %q: %w", results[0].Lon, err))
	}

	return model.Location{Lat: lat, Lng: lng}, nil
}
