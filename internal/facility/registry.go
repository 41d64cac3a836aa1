package facility

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns the grid, the active-session map, the history ledger
// and the reservation ledger. Every operation runs under one mutex:
// Enter reads grid occupancy and then writes it, so the whole
// check-then-act sequence has to be atomic.
type Registry struct {
	mu           sync.Mutex
	grid         *Grid
	sessions     map[string]*Session
	history      map[string][]HistoryRecord
	reservations map[string]Reservation
	store        *Store
	logger       zerolog.Logger

	now func() time.Time
}

// NewRegistry returns an empty registry backed by store. A nil store
// disables persistence, which the tests use.
func NewRegistry(store *Store, logger zerolog.Logger) *Registry {
	return &Registry{
		grid:         NewGrid(),
		sessions:     make(map[string]*Session),
		history:      make(map[string][]HistoryRecord),
		reservations: make(map[string]Reservation),
		store:        store,
		logger:       logger,
		now:          time.Now,
	}
}

// LoadState restores sessions and history from the store and rebuilds
// grid occupancy from the active sessions. Called once at startup;
// any failure is fatal there.
func (r *Registry) LoadState() error {
	if r.store == nil {
		return nil
	}
	sessions, history, err := r.store.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	grid := NewGrid()
	for id, sess := range sessions {
		row, col := RowCol(sess.PositionNum)
		if !grid.TryOccupy(sess.Floor, row, col) {
			return fmt.Errorf("state file has two sessions on spot %d-%d (vehicle %s)", sess.Floor, sess.PositionNum, id)
		}
	}
	r.grid = grid
	r.sessions = sessions
	r.history = history
	return nil
}

// Enter allocates a spot and opens a session for the vehicle. New
// sessions start as walk-ins; GrantSubscription flips them later. On
// a save failure the session is still created and returned alongside
// the error.
func (r *Registry) Enter(vehicleID string, floor, row, col int, class VehicleClass) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !ValidPlate(vehicleID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlate, vehicleID)
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClass, class)
	}
	if floor < 1 || floor > Floors || row < 1 || row > Rows || col < 1 || col > Cols {
		return nil, fmt.Errorf("%w: floor %d row %d col %d", ErrOutOfRange, floor, row, col)
	}
	if _, ok := r.sessions[vehicleID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrActiveSession, vehicleID)
	}
	if r.grid.TotalAvailable() == 0 {
		return nil, ErrCapacityExhausted
	}
	if !r.grid.TryOccupy(floor, row, col) {
		return nil, fmt.Errorf("%w: floor %d position %d", ErrSpotOccupied, floor, PositionNum(row, col))
	}

	sess := &Session{
		VehicleID:   vehicleID,
		Start:       r.now(),
		Floor:       floor,
		PositionNum: PositionNum(row, col),
		WalkIn:      true,
		Class:       class,
	}
	r.sessions[vehicleID] = sess

	if err := r.persistLocked(); err != nil {
		return sess, err
	}
	return sess, nil
}

// Leave closes the vehicle's session: computes the fee, appends a
// history record, frees the spot and removes the session.
func (r *Registry) Leave(vehicleID string) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, vehicleID)
	}

	end := r.now()
	fee := CalculateFee(sess.Start, end, sess.WalkIn, sess.Class)

	r.history[vehicleID] = append(r.history[vehicleID], HistoryRecord{
		Session: *sess,
		Fee:     fee,
		End:     end,
	})

	row, col := RowCol(sess.PositionNum)
	if err := r.grid.Release(sess.Floor, row, col); err != nil {
		r.logger.Warn().Err(err).Str("vehicle", vehicleID).Msg("session referenced a free spot")
	}
	delete(r.sessions, vehicleID)

	receipt := &Receipt{Session: *sess, Fee: fee, End: end}
	if err := r.persistLocked(); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// GrantSubscription marks the vehicle's active session as held by a
// subscriber, halving future fee computation. The plan length is
// recorded for display only.
func (r *Registry) GrantSubscription(vehicleID string, planDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if planDays != PlanMonthly && planDays != PlanYearly {
		return fmt.Errorf("%w: got %d", ErrInvalidPlan, planDays)
	}
	sess, ok := r.sessions[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, vehicleID)
	}

	sess.WalkIn = false
	sess.PlanDays = planDays
	return r.persistLocked()
}

// Reserve books an advisory future stay. Reservations never touch the
// grid and are not persisted.
func (r *Registry) Reserve(vehicleID string, enterAt, leaveAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservations[vehicleID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateReservation, vehicleID)
	}
	if enterAt.Before(r.now().Add(24 * time.Hour)) {
		return ErrReservationTooSoon
	}
	if !leaveAt.After(enterAt) {
		return ErrReservationWindow
	}

	r.reservations[vehicleID] = Reservation{VehicleID: vehicleID, EnterAt: enterAt, LeaveAt: leaveAt}
	return nil
}

// FloorStatus is a point-in-time view of one floor.
type FloorStatus struct {
	Floor     int
	Available int
	Occupied  [][]bool
}

// QueryFloor returns the snapshot of a single floor.
func (r *Registry) QueryFloor(floor int) (FloorStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if floor < 1 || floor > Floors {
		return FloorStatus{}, fmt.Errorf("%w: floor %d", ErrOutOfRange, floor)
	}
	return r.floorStatusLocked(floor), nil
}

// QueryAll returns snapshots of every floor, first floor first.
func (r *Registry) QueryAll() []FloorStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]FloorStatus, 0, Floors)
	for f := 1; f <= Floors; f++ {
		statuses = append(statuses, r.floorStatusLocked(f))
	}
	return statuses
}

func (r *Registry) floorStatusLocked(floor int) FloorStatus {
	return FloorStatus{
		Floor:     floor,
		Available: r.grid.CountAvailable(floor),
		Occupied:  r.grid.FloorSnapshot(floor),
	}
}

// AvailableByFloor returns per-floor available counts, index 0 being
// the first floor.
func (r *Registry) AvailableByFloor() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make([]int, Floors)
	for f := 1; f <= Floors; f++ {
		counts[f-1] = r.grid.CountAvailable(f)
	}
	return counts
}

// ActiveSessions returns the number of open sessions.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// History returns the closed-session records for a vehicle in arrival
// order.
func (r *Registry) History(vehicleID string) []HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.history[vehicleID]
	out := make([]HistoryRecord, len(records))
	copy(out, records)
	return out
}

// Reservation returns the vehicle's reservation, if any.
func (r *Registry) Reservation(vehicleID string) (Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[vehicleID]
	return res, ok
}

func (r *Registry) persistLocked() error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(r.sessions, r.history); err != nil {
		r.logger.Error().Err(err).Msg("state save failed, in-memory state kept")
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}
