package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/facility"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	telemetry, err := facility.NewTelemetryProvider()
	require.NoError(t, err)
	t.Cleanup(func() { telemetry.Shutdown(context.Background()) })

	registry := facility.NewRegistry(nil, zerolog.Nop())
	instrumented, err := facility.NewInstrumentedRegistry(registry, telemetry)
	require.NoError(t, err)

	handler := NewHandler(instrumented)

	r := chi.NewRouter()
	r.Post("/api/facility/enter", handler.Enter)
	r.Post("/api/facility/leave", handler.Leave)
	r.Post("/api/facility/subscribe", handler.Subscribe)
	r.Post("/api/facility/reserve", handler.Reserve)
	r.Get("/api/facility/status", handler.Status)
	r.Get("/api/facility/status/{floor}", handler.FloorStatus)
	r.Get("/api/facility/history/{vehicle}", handler.History)
	return r
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &body)
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestEnterHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 4, Class: "electric",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(4), data["position_num"])
	assert.Equal(t, true, data["is_walk_in"])
}

func TestEnterHandlerValidation(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "bad-plate", Floor: 1, Row: 1, Col: 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 9, Row: 1, Col: 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 1, Class: "hovercraft",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnterHandlerConflicts(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Same spot, different vehicle.
	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "34나7890", Floor: 1, Row: 1, Col: 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Same vehicle, different spot.
	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 2, Row: 1, Col: 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLeaveHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/leave", LeaveRequest{Vehicle: "12가3456"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/leave", LeaveRequest{Vehicle: "12가3456"})
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	// The stay is momentary, inside the grace period.
	assert.Equal(t, float64(0), data["fee"])
}

func TestSubscribeHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/subscribe", SubscribeRequest{
		Vehicle: "12가3456", PlanDays: 30,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/subscribe", SubscribeRequest{
		Vehicle: "12가3456", PlanDays: 60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/subscribe", SubscribeRequest{
		Vehicle: "12가3456", PlanDays: 30,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReserveHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/reserve", ReserveRequest{
		Vehicle: "12가3456", EnterAt: "not-a-time", LeaveAt: "2026-03-05 12:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	enterAt := time.Now().Add(48 * time.Hour)
	leaveAt := enterAt.Add(3 * time.Hour)

	w = doJSON(t, router, "POST", "/api/facility/reserve", ReserveRequest{
		Vehicle: "12가3456",
		EnterAt: time.Now().Add(time.Hour).Format(facility.TimeLayout),
		LeaveAt: leaveAt.Format(facility.TimeLayout),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/reserve", ReserveRequest{
		Vehicle: "12가3456",
		EnterAt: enterAt.Format(facility.TimeLayout),
		LeaveAt: leaveAt.Format(facility.TimeLayout),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/facility/reserve", ReserveRequest{
		Vehicle: "12가3456",
		EnterAt: enterAt.Format(facility.TimeLayout),
		LeaveAt: leaveAt.Format(facility.TimeLayout),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 2, Row: 1, Col: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/api/facility/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(facility.TotalSpots), data["capacity"])
	assert.Equal(t, float64(1), data["occupied"])
	assert.Equal(t, float64(facility.TotalSpots-1), data["available"])
}

func TestFloorStatusHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "GET", "/api/facility/status/9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/api/facility/status/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/api/facility/status/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["floor"])
	assert.Len(t, data["rows"], 10)
}

func TestHistoryHandler(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "GET", "/api/facility/history/12가3456", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Empty(t, resp.Data)

	w = doJSON(t, router, "POST", "/api/facility/enter", EnterRequest{
		Vehicle: "12가3456", Floor: 1, Row: 1, Col: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, "POST", "/api/facility/leave", LeaveRequest{Vehicle: "12가3456"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/api/facility/history/12가3456", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	assert.Len(t, resp.Data, 1)
}
