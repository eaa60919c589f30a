package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sales-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeatures = models.PredictionFeatures{
	ItemID:         3,
	Day:            1,
	Month:          5,
	Year:           2024,
	DayNum:         122,
	IsWeekend:      0,
	FestivalEnc:    0.0,
	Rolling3DayAvg: 40.5,
}

func TestPredictorServicePredict(t *testing.T) {
	var received predictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(predictResponse{Prediction: 37.6})
	}))
	defer server.Close()

	ps := NewPredictorService(server.URL)
	prediction, err := ps.Predict(context.Background(), testFeatures)

	require.NoError(t, err)
	assert.Equal(t, 37.6, prediction)
	// 特徴量ベクトルの順序は固定
	assert.Equal(t, []float64{3, 1, 5, 2024, 122, 0, 0.0, 40.5}, received.Features)
}

func TestPredictorServiceModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Error: "model not loaded"})
	}))
	defer server.Close()

	ps := NewPredictorService(server.URL)
	_, err := ps.Predict(context.Background(), testFeatures)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestPredictorServiceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	ps := NewPredictorService(server.URL)
	_, err := ps.Predict(context.Background(), testFeatures)

	assert.Error(t, err)
}

func TestPredictorServiceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	ps := NewPredictorService(server.URL)
	_, err := ps.Predict(context.Background(), testFeatures)

	assert.Error(t, err)
}
