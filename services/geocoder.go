package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	geocoderEndpoint = "https://nominatim.openstreetmap.org/search"
	geocodeClient    = &http.Client{Timeout: 8 * time.Second}
)

// LatLng is a best-effort geocoding result.
type LatLng struct {
	Lat float64
	Lng float64
}

// GeocodeAddress resolves a free-text address to coordinates via Nominatim.
// Returns nil on any failure; callers store the address without coordinates.
func GeocodeAddress(ctx context.Context, address string) *LatLng {
	if address == "" {
		return nil
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geocoderEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "Trinetra-smart-governance/1.0")

	resp, err := geocodeClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil || len(results) == 0 {
		return nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return nil
	}

	return &LatLng{Lat: lat, Lng: lng}
}
