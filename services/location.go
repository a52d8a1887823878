package services

import (
	"context"
	"encoding/json"
	"strings"

	"trinetra-be/models"
)

// BuildLocation turns the raw location form value into a structured location.
// The value may be a JSON object {address, lat, lng} or a plain address
// string; an address without coordinates is geocoded best-effort. Returns nil
// when no usable location was supplied.
func BuildLocation(ctx context.Context, raw string) *models.Location {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parsed struct {
		Address string   `json:"address"`
		Lat     *float64 `json:"lat"`
		Lng     *float64 `json:"lng"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		address := strings.TrimSpace(parsed.Address)
		if parsed.Lat != nil && parsed.Lng != nil {
			return &models.Location{Address: address, Lat: parsed.Lat, Lng: parsed.Lng}
		}
		if address == "" {
			return nil
		}
		raw = address
	}

	location := &models.Location{Address: raw}
	if geocoded := GeocodeAddress(ctx, raw); geocoded != nil {
		location.Lat = &geocoded.Lat
		location.Lng = &geocoded.Lng
	}
	return location
}
