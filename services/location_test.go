package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLocationStructured(t *testing.T) {
	location := BuildLocation(context.Background(), `{"address":"Main St","lat":28.6,"lng":77.2}`)
	require.NotNil(t, location)
	assert.Equal(t, "Main St", location.Address)
	require.NotNil(t, location.Lat)
	require.NotNil(t, location.Lng)
	assert.InDelta(t, 28.6, *location.Lat, 1e-9)
	assert.InDelta(t, 77.2, *location.Lng, 1e-9)
}

func TestBuildLocationAddressOnlyJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"28.61","lon":"77.21"}]`))
	}))
	defer server.Close()
	withGeocoderEndpoint(t, server.URL)

	location := BuildLocation(context.Background(), `{"address":"Pothole on Main St"}`)
	require.NotNil(t, location)
	assert.Equal(t, "Pothole on Main St", location.Address)
	require.NotNil(t, location.Lat)
	assert.InDelta(t, 28.61, *location.Lat, 1e-9)
}

func TestBuildLocationPlainAddressGeocodeFails(t *testing.T) {
	withGeocoderEndpoint(t, "http://127.0.0.1:1")

	location := BuildLocation(context.Background(), "Pothole on Main St")
	require.NotNil(t, location)
	assert.Equal(t, "Pothole on Main St", location.Address)
	assert.Nil(t, location.Lat)
	assert.Nil(t, location.Lng)
}

func TestBuildLocationEmpty(t *testing.T) {
	assert.Nil(t, BuildLocation(context.Background(), ""))
	assert.Nil(t, BuildLocation(context.Background(), "   "))
	assert.Nil(t, BuildLocation(context.Background(), `{"address":""}`))
}
