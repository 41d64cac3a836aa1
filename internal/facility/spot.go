package facility

// Facility dimensions. All floor/row/column values are 1-indexed in
// external representations.
const (
	Floors = 3
	Rows   = 10
	Cols   = 10
)

// TotalSpots is the facility-wide capacity.
const TotalSpots = Floors * Rows * Cols

type SpotState uint8

const (
	SpotAvailable SpotState = iota
	SpotOccupied
)

// PositionNum maps a 1-indexed (row, column) pair to the position
// number printed on the floor, unique within a floor.
func PositionNum(row, col int) int {
	return (row-1)*Cols + col
}

// RowCol is the inverse of PositionNum.
func RowCol(positionNum int) (row, col int) {
	row = (positionNum-1)/Cols + 1
	col = (positionNum-1)%Cols + 1
	return row, col
}
