package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"parking-facility/internal/facility"
)

type Handler struct {
	registry *facility.InstrumentedRegistry
}

func NewHandler(registry *facility.InstrumentedRegistry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "parking-facility",
		"meta":    extractMeta(r.Context()),
	})
}

func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Vehicle == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle is required")
		return
	}

	class, ok := facility.ParseVehicleClass(req.Class)
	if !ok {
		WriteError(ctx, w, http.StatusBadRequest, "Unknown vehicle class")
		return
	}

	sess, err := h.registry.Enter(ctx, req.Vehicle, req.Floor, req.Row, req.Col, class)
	if err != nil && sess == nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	message := "Vehicle parked"
	if err != nil {
		message = "Vehicle parked, state save failed"
	}
	WriteSuccess(ctx, w, message, sessionResponse(sess))
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.registry.Leave(ctx, req.Vehicle)
	if err != nil && receipt == nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	message := "Vehicle left"
	if err != nil {
		message = "Vehicle left, state save failed"
	}
	WriteSuccess(ctx, w, message, ReceiptResponse{
		Session: sessionResponse(&receipt.Session),
		Fee:     receipt.Fee,
		End:     receipt.End.Format(facility.TimeLayout),
	})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.registry.GrantSubscription(ctx, req.Vehicle, req.PlanDays)
	if err != nil && !errors.Is(err, facility.ErrSaveFailed) {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	message := "Subscription granted"
	if err != nil {
		message = "Subscription granted, state save failed"
	}
	WriteSuccess(ctx, w, message, map[string]any{
		"vehicle":   req.Vehicle,
		"plan_days": req.PlanDays,
	})
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	enterAt, err := time.ParseInLocation(facility.TimeLayout, req.EnterAt, time.Local)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Bad enter_at timestamp")
		return
	}
	leaveAt, err := time.ParseInLocation(facility.TimeLayout, req.LeaveAt, time.Local)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Bad leave_at timestamp")
		return
	}

	if err := h.registry.Reserve(ctx, req.Vehicle, enterAt, leaveAt); err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Reservation recorded", map[string]any{
		"vehicle":  req.Vehicle,
		"enter_at": req.EnterAt,
		"leave_at": req.LeaveAt,
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses := h.registry.QueryAll(ctx)

	available := 0
	floors := make([]FloorStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		available += status.Available
		floors = append(floors, floorResponse(status))
	}

	WriteSuccess(ctx, w, "Status retrieved", StatusResponse{
		Capacity:  facility.TotalSpots,
		Occupied:  facility.TotalSpots - available,
		Available: available,
		Floors:    floors,
	})
}

func (h *Handler) FloorStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	floor, err := strconv.Atoi(chi.URLParam(r, "floor"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Floor must be a number")
		return
	}

	status, err := h.registry.QueryFloor(ctx, floor)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Floor status retrieved", floorResponse(status))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vehicle := chi.URLParam(r, "vehicle")
	records := h.registry.History(vehicle)

	entries := make([]HistoryEntryResponse, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntryResponse{
			SessionResponse: sessionResponse(&rec.Session),
			Fee:             rec.Fee,
			End:             rec.End.Format(facility.TimeLayout),
		})
	}

	WriteSuccess(ctx, w, "History retrieved", entries)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, facility.ErrInvalidPlate),
		errors.Is(err, facility.ErrOutOfRange),
		errors.Is(err, facility.ErrInvalidClass),
		errors.Is(err, facility.ErrInvalidPlan),
		errors.Is(err, facility.ErrReservationTooSoon),
		errors.Is(err, facility.ErrReservationWindow):
		return http.StatusBadRequest
	case errors.Is(err, facility.ErrActiveSession),
		errors.Is(err, facility.ErrSpotOccupied),
		errors.Is(err, facility.ErrDuplicateReservation),
		errors.Is(err, facility.ErrCapacityExhausted):
		return http.StatusConflict
	case errors.Is(err, facility.ErrNoSession):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func sessionResponse(sess *facility.Session) SessionResponse {
	return SessionResponse{
		Vehicle:     sess.VehicleID,
		Start:       sess.Start.Format(facility.TimeLayout),
		Floor:       sess.Floor,
		PositionNum: sess.PositionNum,
		WalkIn:      sess.WalkIn,
		Class:       string(sess.Class),
		PlanDays:    sess.PlanDays,
	}
}

func floorResponse(status facility.FloorStatus) FloorStatusResponse {
	rows := make([]string, 0, len(status.Occupied))
	for _, row := range status.Occupied {
		var b strings.Builder
		for _, occupied := range row {
			if occupied {
				b.WriteByte('X')
			} else {
				b.WriteByte('.')
			}
		}
		rows = append(rows, b.String())
	}
	return FloorStatusResponse{
		Floor:     status.Floor,
		Available: status.Available,
		Rows:      rows,
	}
}
