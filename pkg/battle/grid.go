package battle

// GridSize is the edge length of a square board.
const GridSize = 10

// CellState is the visible state of one board cell.
type CellState int

const (
	Empty CellState = iota
	ShipCell
	Hit
	Miss
)

func (c CellState) String() string {
	switch c {
	case ShipCell:
		return "ship"
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "empty"
	}
}

// ShotResult is the outcome of firing at a single cell.
type ShotResult int

const (
	ShotMiss ShotResult = iota
	ShotHit
	ShotAlreadyFired
	ShotOutOfBounds
)

func (r ShotResult) String() string {
	switch r {
	case ShotHit:
		return "hit"
	case ShotAlreadyFired:
		return "already_fired"
	case ShotOutOfBounds:
		return "out_of_bounds"
	default:
		return "miss"
	}
}

// Resolved reports whether the shot landed on the board and changed a cell.
func (r ShotResult) Resolved() bool { return r == ShotHit || r == ShotMiss }

// Grid is a player's own board. Cells are addressed [y][x].
type Grid struct {
	cells [GridSize][GridSize]CellState
}

// InBounds reports whether (x, y) lies on the board.
func InBounds(x, y int) bool {
	return x >= 0 && x < GridSize && y >= 0 && y < GridSize
}

// At returns the cell state, or Empty for off-board coordinates.
func (g *Grid) At(x, y int) CellState {
	if !InBounds(x, y) {
		return Empty
	}
	return g.cells[y][x]
}

// ReceiveShot applies a shot. Each cell resolves at most once; later shots at
// the same cell report ShotAlreadyFired and leave it unchanged.
func (g *Grid) ReceiveShot(x, y int) ShotResult {
	if !InBounds(x, y) {
		return ShotOutOfBounds
	}
	switch g.cells[y][x] {
	case ShipCell:
		g.cells[y][x] = Hit
		return ShotHit
	case Empty:
		g.cells[y][x] = Miss
		return ShotMiss
	default:
		return ShotAlreadyFired
	}
}

// Place marks every cell of p as occupied. The whole footprint is checked for
// bounds and overlap before the first write.
func (g *Grid) Place(p Placement) error {
	if p.Size < 1 || p.Size > GridSize {
		return ErrInvalidShipSize
	}
	cells := p.Cells()
	for _, c := range cells {
		if !InBounds(c.X, c.Y) {
			return ErrShipOutOfBounds
		}
	}
	for _, c := range cells {
		if g.cells[c.Y][c.X] != Empty {
			return ErrShipOverlap
		}
	}
	for _, c := range cells {
		g.cells[c.Y][c.X] = ShipCell
	}
	return nil
}

// Rows returns a copy of the board as rows of strings. With revealShips false,
// unhit ship cells read as empty, which is how the opponent sees the board.
func (g *Grid) Rows(revealShips bool) [][]string {
	rows := make([][]string, GridSize)
	for y := range GridSize {
		row := make([]string, GridSize)
		for x := range GridSize {
			s := g.cells[y][x]
			if s == ShipCell && !revealShips {
				s = Empty
			}
			row[x] = s.String()
		}
		rows[y] = row
	}
	return rows
}

// Count returns the number of cells in state s.
func (g *Grid) Count(s CellState) int {
	n := 0
	for y := range GridSize {
		for x := range GridSize {
			if g.cells[y][x] == s {
				n++
			}
		}
	}
	return n
}
