package facility

import (
	"regexp"
	"time"
)

// VehicleClass is a discount category applied independently of
// subscription status.
type VehicleClass string

const (
	ClassNone     VehicleClass = "none"
	ClassCompact  VehicleClass = "compact"
	ClassElectric VehicleClass = "electric"
	ClassDisabled VehicleClass = "disabled-permit"
)

var discountRates = map[VehicleClass]float64{
	ClassCompact:  0.20,
	ClassElectric: 0.30,
	ClassDisabled: 0.40,
}

// DiscountRate returns the class discount rate, 0 for ClassNone.
func (c VehicleClass) DiscountRate() float64 {
	return discountRates[c]
}

func (c VehicleClass) Valid() bool {
	if c == ClassNone {
		return true
	}
	_, ok := discountRates[c]
	return ok
}

// ParseVehicleClass maps a string to a VehicleClass. The empty string
// means no class.
func ParseVehicleClass(s string) (VehicleClass, bool) {
	if s == "" {
		return ClassNone, true
	}
	c := VehicleClass(s)
	return c, c.Valid()
}

// plateFormat is the domestic plate scheme: 2-3 digits, one Hangul
// letter, 4 digits (e.g. 12가3456).
var plateFormat = regexp.MustCompile(`^[0-9]{2,3}\p{Hangul}[0-9]{4}$`)

// ValidPlate reports whether a vehicle identifier matches the plate
// format rule.
func ValidPlate(vehicleID string) bool {
	return plateFormat.MatchString(vehicleID)
}

// Session is one vehicle's current stay. Exactly one session exists
// per occupied spot. WalkIn is true for ad-hoc entrants and false for
// subscription holders, who pay half the base fee.
type Session struct {
	VehicleID   string
	Start       time.Time
	Floor       int
	PositionNum int
	WalkIn      bool
	Class       VehicleClass
	PlanDays    int // subscription plan length, display only
}

// HistoryRecord is an immutable snapshot of a closed session plus the
// computed fee and end timestamp.
type HistoryRecord struct {
	Session
	Fee int
	End time.Time
}

// Receipt is returned by Leave.
type Receipt struct {
	Session Session
	Fee     int
	End     time.Time
}

// Reservation is an advisory future-stay booking not tied to a
// physical spot.
type Reservation struct {
	VehicleID string
	EnterAt   time.Time
	LeaveAt   time.Time
}

// Subscription plan lengths accepted by GrantSubscription.
const (
	PlanMonthly = 30
	PlanYearly  = 365
)
