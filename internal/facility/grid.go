package facility

import "fmt"

// Grid is the fixed floor x row x column matrix of spot states. It
// assumes callers have range-checked coordinates; the Registry does
// that before calling in.
type Grid struct {
	spots [Floors][Rows][Cols]SpotState
}

func NewGrid() *Grid {
	return &Grid{}
}

// CountAvailable returns the number of available spots on one floor.
func (g *Grid) CountAvailable(floor int) int {
	count := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if g.spots[floor-1][r][c] == SpotAvailable {
				count++
			}
		}
	}
	return count
}

// TotalAvailable returns the number of available spots across all floors.
func (g *Grid) TotalAvailable() int {
	total := 0
	for f := 1; f <= Floors; f++ {
		total += g.CountAvailable(f)
	}
	return total
}

// TryOccupy transitions a spot to occupied iff it is currently
// available. It reports false without mutation when the spot is taken.
func (g *Grid) TryOccupy(floor, row, col int) bool {
	if g.spots[floor-1][row-1][col-1] == SpotOccupied {
		return false
	}
	g.spots[floor-1][row-1][col-1] = SpotOccupied
	return true
}

// Release transitions a spot back to available. Releasing a spot that
// is already available indicates an invariant violation upstream; the
// spot is left available and an error is returned for the caller to log.
func (g *Grid) Release(floor, row, col int) error {
	if g.spots[floor-1][row-1][col-1] == SpotAvailable {
		return fmt.Errorf("spot %d-%d-%d is already available", floor, row, col)
	}
	g.spots[floor-1][row-1][col-1] = SpotAvailable
	return nil
}

// FloorSnapshot returns a copy of one floor's occupancy, true meaning
// occupied.
func (g *Grid) FloorSnapshot(floor int) [][]bool {
	rows := make([][]bool, Rows)
	for r := 0; r < Rows; r++ {
		rows[r] = make([]bool, Cols)
		for c := 0; c < Cols; c++ {
			rows[r][c] = g.spots[floor-1][r][c] == SpotOccupied
		}
	}
	return rows
}
