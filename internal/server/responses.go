package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type EnterRequest struct {
	Vehicle string `json:"vehicle"`
	Floor   int    `json:"floor"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Class   string `json:"class,omitempty"`
}

type LeaveRequest struct {
	Vehicle string `json:"vehicle"`
}

type SubscribeRequest struct {
	Vehicle  string `json:"vehicle"`
	PlanDays int    `json:"plan_days"`
}

// ReserveRequest timestamps use the facility layout, YYYY-MM-DD HH:MM.
type ReserveRequest struct {
	Vehicle string `json:"vehicle"`
	EnterAt string `json:"enter_at"`
	LeaveAt string `json:"leave_at"`
}

type SessionResponse struct {
	Vehicle     string `json:"vehicle"`
	Start       string `json:"start"`
	Floor       int    `json:"floor"`
	PositionNum int    `json:"position_num"`
	WalkIn      bool   `json:"is_walk_in"`
	Class       string `json:"class"`
	PlanDays    int    `json:"plan_days,omitempty"`
}

type ReceiptResponse struct {
	Session SessionResponse `json:"session"`
	Fee     int             `json:"fee"`
	End     string          `json:"end"`
}

type HistoryEntryResponse struct {
	SessionResponse
	Fee int    `json:"fee"`
	End string `json:"end"`
}

// FloorStatusResponse renders each row as a string of '.' (free) and
// 'X' (occupied) cells.
type FloorStatusResponse struct {
	Floor     int      `json:"floor"`
	Available int      `json:"available"`
	Rows      []string `json:"rows"`
}

type StatusResponse struct {
	Capacity  int                   `json:"capacity"`
	Occupied  int                   `json:"occupied"`
	Available int                   `json:"available"`
	Floors    []FloorStatusResponse `json:"floors"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
