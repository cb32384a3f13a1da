package battle

import (
	"errors"
	"testing"
)

func standardFleet() []Placement {
	return []Placement{
		{X: 0, Y: 0, Size: 5},
		{X: 0, Y: 1, Size: 4},
		{X: 0, Y: 2, Size: 3},
		{X: 0, Y: 3, Size: 3},
		{X: 0, Y: 4, Size: 2},
	}
}

func TestReceiveShotOutOfBounds(t *testing.T) {
	var g Grid
	coords := [][2]int{{10, 0}, {0, 10}, {10, 10}, {-1, 0}, {0, -1}, {99, 3}}
	for _, c := range coords {
		if got := g.ReceiveShot(c[0], c[1]); got != ShotOutOfBounds {
			t.Errorf("ReceiveShot(%d,%d) = %s, want out_of_bounds", c[0], c[1], got)
		}
	}
	if n := g.Count(Empty); n != GridSize*GridSize {
		t.Errorf("grid mutated: %d empty cells, want %d", n, GridSize*GridSize)
	}
}

func TestReceiveShotOnce(t *testing.T) {
	var g Grid
	if err := g.Place(Placement{X: 2, Y: 2, Size: 3}); err != nil {
		t.Fatalf("Place: %v", err)
	}

	tests := []struct {
		x, y int
		want ShotResult
		cell CellState
	}{
		{2, 2, ShotHit, Hit},
		{2, 2, ShotAlreadyFired, Hit},
		{5, 5, ShotMiss, Miss},
		{5, 5, ShotAlreadyFired, Miss},
	}
	for _, tt := range tests {
		if got := g.ReceiveShot(tt.x, tt.y); got != tt.want {
			t.Errorf("ReceiveShot(%d,%d) = %s, want %s", tt.x, tt.y, got, tt.want)
		}
		if got := g.At(tt.x, tt.y); got != tt.cell {
			t.Errorf("At(%d,%d) = %s, want %s", tt.x, tt.y, got, tt.cell)
		}
	}
}

func TestPlaceBounds(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
		err  error
	}{
		{"fits horizontally at edge", Placement{X: 5, Y: 9, Size: 5}, nil},
		{"fits vertically at edge", Placement{X: 9, Y: 5, Size: 5, Vertical: true}, nil},
		{"end past right edge", Placement{X: 6, Y: 0, Size: 5}, ErrShipOutOfBounds},
		{"end past bottom edge", Placement{X: 0, Y: 8, Size: 3, Vertical: true}, ErrShipOutOfBounds},
		{"start past edge", Placement{X: 10, Y: 0, Size: 2}, ErrShipOutOfBounds},
		{"negative start", Placement{X: -1, Y: 0, Size: 2}, ErrShipOutOfBounds},
		{"zero size", Placement{X: 0, Y: 0, Size: 0}, ErrInvalidShipSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grid
			err := g.Place(tt.p)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Place() = %v, want %v", err, tt.err)
			}
			if err != nil && g.Count(Empty) != GridSize*GridSize {
				t.Error("rejected placement mutated the grid")
			}
		})
	}
}

func TestPlaceOverlapNoPartialWrite(t *testing.T) {
	var g Grid
	if err := g.Place(Placement{X: 4, Y: 0, Size: 4, Vertical: true}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	err := g.Place(Placement{X: 1, Y: 2, Size: 5})
	if !errors.Is(err, ErrShipOverlap) {
		t.Fatalf("Place() = %v, want overlap", err)
	}
	if g.At(1, 2) != Empty || g.At(3, 2) != Empty {
		t.Error("cells before the overlap were written")
	}
	if n := g.Count(ShipCell); n != 4 {
		t.Errorf("ship cells = %d, want 4", n)
	}
}

func TestRowsHidesShips(t *testing.T) {
	var g Grid
	if err := g.Place(Placement{X: 0, Y: 0, Size: 2}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	g.ReceiveShot(0, 0)
	g.ReceiveShot(9, 9)

	own := g.Rows(true)
	if own[0][0] != "hit" || own[0][1] != "ship" || own[9][9] != "miss" {
		t.Errorf("own view = %v %v %v", own[0][0], own[0][1], own[9][9])
	}
	enemy := g.Rows(false)
	if enemy[0][0] != "hit" || enemy[0][1] != "empty" {
		t.Errorf("enemy view = %v %v", enemy[0][0], enemy[0][1])
	}
}

func TestValidateFleet(t *testing.T) {
	sixth := append(standardFleet(), Placement{X: 0, Y: 6, Size: 2})
	dup := standardFleet()
	dup[4].Size = 3

	tests := []struct {
		name  string
		fleet []Placement
		err   error
	}{
		{"standard", standardFleet(), nil},
		{"six ships", sixth, ErrInvalidFleet},
		{"duplicate size", dup, ErrInvalidFleet},
		{"empty", nil, ErrInvalidFleet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateFleet(tt.fleet); !errors.Is(err, tt.err) {
				t.Errorf("ValidateFleet() = %v, want %v", err, tt.err)
			}
		})
	}
	if FleetCells() != 17 {
		t.Errorf("FleetCells() = %d, want 17", FleetCells())
	}
}

func TestShipCovers(t *testing.T) {
	s := Ship{Placement: Placement{X: 3, Y: 4, Size: 3, Vertical: true}}
	for _, c := range s.Cells() {
		if !s.Covers(c.X, c.Y) {
			t.Errorf("Covers(%d,%d) = false", c.X, c.Y)
		}
	}
	if s.Covers(3, 7) || s.Covers(4, 4) {
		t.Error("Covers reported a cell outside the footprint")
	}
}
