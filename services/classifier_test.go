package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/classify-image", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "pothole.jpg", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake image bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"classification":"Road_Damage","confidence":0.93}`))
	}))
	defer server.Close()
	t.Setenv("CLASSIFIER_URL", server.URL)

	result := ClassifyImage(context.Background(), "pothole.jpg", "image/jpeg", []byte("fake image bytes"))
	require.NotNil(t, result)
	assert.Equal(t, "Road_Damage", result.Classification)
	assert.InDelta(t, 0.93, result.Confidence, 1e-9)
}

func TestClassifyImageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	t.Setenv("CLASSIFIER_URL", server.URL)

	assert.Nil(t, ClassifyImage(context.Background(), "x.jpg", "image/jpeg", []byte("bytes")))
}

func TestClassifyImageEmptyClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"classification":"","confidence":0}`))
	}))
	defer server.Close()
	t.Setenv("CLASSIFIER_URL", server.URL)

	assert.Nil(t, ClassifyImage(context.Background(), "x.jpg", "image/jpeg", []byte("bytes")))
}

func TestClassifyImageNoData(t *testing.T) {
	assert.Nil(t, ClassifyImage(context.Background(), "x.jpg", "image/jpeg", nil))
}

func TestClassifyImageUnreachable(t *testing.T) {
	t.Setenv("CLASSIFIER_URL", "http://127.0.0.1:1")

	assert.Nil(t, ClassifyImage(context.Background(), "x.jpg", "image/jpeg", []byte("bytes")))
}

func TestUploadImageNotConfigured(t *testing.T) {
	_, err := UploadImage(context.Background(), "complaints", "x.jpg", "image/jpeg", []byte("bytes"))
	assert.Error(t, err)
}

func TestPublishEventWithoutConnection(t *testing.T) {
	// Must be a safe no-op when RabbitMQ was never connected.
	PublishEvent(ComplaintEvent{ComplaintID: "abc", Status: "Assigned"})
}
