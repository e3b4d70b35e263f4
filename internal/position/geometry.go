package position

// Neighbor pairs one adjacent cell with the arrow direction (in a card placed at the
// cell this table is indexed by) that points toward it.
type Neighbor struct {
	Cell uint8
	Dir  ArrowDir
}

// neighborTable is the fixed 4x4 king-move adjacency of the board, row-major cell indices
// 0..15. It is built once, by position, from the deterministic grid geometry below.
var neighborTable = buildNeighborTable()

// Neighbors returns the (up to 8) neighbors of cell, each tagged with the arrow direction,
// in a card placed at cell, that points toward that neighbor.
func Neighbors(cell uint8) []Neighbor {
	return neighborTable[cell]
}

func buildNeighborTable() [NumCells][]Neighbor {
	type step struct {
		dRow, dCol int
		dir        ArrowDir
	}
	steps := []step{
		{-1, 0, Up},
		{-1, 1, UpRight},
		{0, 1, Right},
		{1, 1, DownRight},
		{1, 0, Down},
		{1, -1, DownLeft},
		{0, -1, Left},
		{-1, -1, UpLeft},
	}

	var table [NumCells][]Neighbor
	for cell := uint8(0); cell < NumCells; cell++ {
		row, col := int(cell)/BoardSide, int(cell)%BoardSide
		var neighbors []Neighbor
		for _, s := range steps {
			r, c := row+s.dRow, col+s.dCol
			if r < 0 || r >= BoardSide || c < 0 || c >= BoardSide {
				continue
			}
			neighbors = append(neighbors, Neighbor{Cell: uint8(r*BoardSide + c), Dir: s.dir})
		}
		table[cell] = neighbors
	}
	return table
}
