package facility

import "errors"

// Validation errors: reported to the caller, no state change.
var (
	ErrInvalidPlate = errors.New("vehicle id does not match the plate format")
	ErrOutOfRange   = errors.New("coordinates out of range")
	ErrInvalidClass = errors.New("unknown vehicle class")
	ErrInvalidPlan  = errors.New("subscription plan must be 30 or 365 days")
)

// Conflict errors: reported, no state change.
var (
	ErrActiveSession        = errors.New("vehicle already has an active session")
	ErrSpotOccupied         = errors.New("spot is already occupied")
	ErrDuplicateReservation = errors.New("vehicle already holds a reservation")
)

// ErrNoSession is returned for leave or subscription grant on an
// unknown vehicle id.
var ErrNoSession = errors.New("no active session for vehicle")

// ErrCapacityExhausted is returned when no spot is available anywhere
// in the facility; callers should direct the vehicle to Reserve.
var ErrCapacityExhausted = errors.New("facility is full, reserve a future stay instead")

// Reservation window errors.
var (
	ErrReservationTooSoon = errors.New("reservation must start at least 24 hours from now")
	ErrReservationWindow  = errors.New("reservation exit must be after entry")
)

// ErrSaveFailed wraps persistence write failures. A mutation that
// completed before the failed save is not rolled back.
var ErrSaveFailed = errors.New("failed to save facility state")
