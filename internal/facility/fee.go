package facility

import "time"

// Fee schedule, in won.
const (
	graceMinutes      = 20
	baseFee           = 5000
	baseWindowMinutes = 60
	extraBlockMinutes = 30
	extraBlockFee     = 500
	dailyCap          = 20000
)

// CalculateFee computes the parking fee for a stay from start to end.
//
// Stays of 20 minutes or less are free. Beyond that the base is 5000
// for the first hour plus 500 per started 30-minute block, capped at
// 20000 per day. Subscription holders (walkIn=false) pay half the
// base. The class discount is then subtracted, computed against the
// pre-halving base: for a subscription holder with a high-rate class
// the discount can exceed the halved amount. That ordering matches the
// billing rules as documented and is kept deliberately; the result is
// truncated to whole currency units and not clamped at zero.
func CalculateFee(start, end time.Time, walkIn bool, class VehicleClass) int {
	minutes := int(end.Sub(start).Seconds()) / 60

	base := 0
	if minutes > graceMinutes {
		base = baseFee
		if minutes > baseWindowMinutes {
			extra := minutes - baseWindowMinutes
			blocks := (extra + extraBlockMinutes - 1) / extraBlockMinutes
			base += blocks * extraBlockFee
		}
		if base > dailyCap {
			base = dailyCap
		}
	}

	fee := base
	if !walkIn {
		fee /= 2
	}
	if class != ClassNone {
		fee = int(float64(fee) - float64(base)*class.DiscountRate())
	}
	return fee
}
