package battle

import "slices"

// FleetSizes is the required fleet: one ship of each listed length.
var FleetSizes = []int{5, 4, 3, 3, 2}

// Cell is a board coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Placement describes where a ship goes before it is on the board.
type Placement struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Size     int  `json:"size"`
	Vertical bool `json:"vertical"`
}

// Cells returns the footprint, origin first.
func (p Placement) Cells() []Cell {
	cells := make([]Cell, 0, max(p.Size, 0))
	for i := range p.Size {
		if p.Vertical {
			cells = append(cells, Cell{X: p.X, Y: p.Y + i})
		} else {
			cells = append(cells, Cell{X: p.X + i, Y: p.Y})
		}
	}
	return cells
}

// Ship is a placed ship and its damage.
type Ship struct {
	Placement
	Hits int `json:"hits"`
}

// Covers reports whether the ship occupies (x, y).
func (s *Ship) Covers(x, y int) bool {
	if s.Vertical {
		return x == s.X && y >= s.Y && y < s.Y+s.Size
	}
	return y == s.Y && x >= s.X && x < s.X+s.Size
}

// Sunk reports whether every cell of the ship has been hit.
func (s *Ship) Sunk() bool { return s.Hits >= s.Size }

// ValidateFleet checks composition only: exactly one ship per entry of
// FleetSizes. Placement legality is checked by Grid.Place.
func ValidateFleet(ps []Placement) error {
	if len(ps) != len(FleetSizes) {
		return ErrInvalidFleet
	}
	sizes := make([]int, len(ps))
	for i, p := range ps {
		sizes[i] = p.Size
	}
	slices.Sort(sizes)
	want := slices.Clone(FleetSizes)
	slices.Sort(want)
	if !slices.Equal(sizes, want) {
		return ErrInvalidFleet
	}
	return nil
}

// FleetCells is the total number of ship cells in a full fleet.
func FleetCells() int {
	n := 0
	for _, s := range FleetSizes {
		n += s
	}
	return n
}
