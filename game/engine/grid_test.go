package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewGrid(t *testing.T) {
	grid, err := NewGrid(3, 4)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}

	if grid.Rows() != 3 || grid.Cols() != 4 {
		t.Errorf("Expected 3x4 grid, got %dx%d", grid.Rows(), grid.Cols())
	}

	for c, cell := range grid.All() {
		if cell.Stock != 0 || cell.Owner != Neutral {
			t.Errorf("Expected neutral empty cell at %v, got %+v", c, cell)
		}
	}
}

func TestNewGrid_InvalidDimensions(t *testing.T) {
	tests := []struct {
		rows, cols int
	}{
		{0, 5},
		{5, 0},
		{-1, 3},
		{3, -2},
		{0, 0},
	}

	for _, tt := range tests {
		_, err := NewGrid(tt.rows, tt.cols)
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("NewGrid(%d, %d): expected ErrInvalidDimensions, got %v", tt.rows, tt.cols, err)
		}
	}
}

func TestGrid_Get(t *testing.T) {
	grid, _ := NewGrid(2, 3)

	if _, err := grid.Get(Coord{Row: 1, Col: 2}); err != nil {
		t.Errorf("Expected in-bounds read to succeed, got %v", err)
	}

	outside := []Coord{
		{Row: -1, Col: 0},
		{Row: 0, Col: -1},
		{Row: 2, Col: 0},
		{Row: 0, Col: 3},
	}
	for _, c := range outside {
		if _, err := grid.Get(c); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Get(%v): expected ErrOutOfBounds, got %v", c, err)
		}
	}
}

func collect(grid *Grid, c Coord) []Coord {
	var out []Coord
	for n := range grid.Neighbors(c) {
		out = append(out, n)
	}
	return out
}

func TestGrid_Neighbors(t *testing.T) {
	grid, _ := NewGrid(3, 3)

	tests := []struct {
		name     string
		at       Coord
		expected []Coord
	}{
		{"corner", Coord{0, 0}, []Coord{{1, 0}, {0, 1}}},
		{"edge", Coord{0, 1}, []Coord{{1, 1}, {0, 0}, {0, 2}}},
		{"interior", Coord{1, 1}, []Coord{{0, 1}, {2, 1}, {1, 0}, {1, 2}}},
		{"far corner", Coord{2, 2}, []Coord{{1, 2}, {2, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(grid, tt.at)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d neighbours, got %v", len(tt.expected), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Neighbour %d: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestGrid_NeighborsRestartable(t *testing.T) {
	grid, _ := NewGrid(4, 4)
	seq := grid.Neighbors(Coord{Row: 1, Col: 1})

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}

	if first != 4 || second != 4 {
		t.Errorf("Expected 4 neighbours on both passes, got %d and %d", first, second)
	}

	// stopping early must not panic
	for n := range seq {
		_ = n
		break
	}
}

func TestGrid_NeighborSymmetry(t *testing.T) {
	shapes := [][2]int{{1, 1}, {1, 5}, {4, 5}, {6, 6}}

	for _, shape := range shapes {
		grid, _ := NewGrid(shape[0], shape[1])
		for c := range grid.All() {
			for n := range grid.Neighbors(c) {
				found := false
				for back := range grid.Neighbors(n) {
					if back == c {
						found = true
					}
				}
				if !found {
					t.Errorf("%dx%d: %v lists %v but not the reverse", shape[0], shape[1], c, n)
				}
				if !grid.InBounds(n) {
					t.Errorf("%dx%d: neighbour %v of %v out of bounds", shape[0], shape[1], n, c)
				}
			}
		}
	}
}

func TestGrid_DegreeCounts(t *testing.T) {
	grid, _ := NewGrid(4, 5)
	counts := DegreeCounts(grid)

	if counts[2] != 4 {
		t.Errorf("Expected 4 corners, got %d", counts[2])
	}
	if counts[3] != 2*(4-2)+2*(5-2) {
		t.Errorf("Expected 10 edge cells, got %d", counts[3])
	}
	if counts[4] != (4-2)*(5-2) {
		t.Errorf("Expected 6 interior cells, got %d", counts[4])
	}

	single, _ := NewGrid(1, 1)
	if d := single.Degree(Coord{}); d != 0 {
		t.Errorf("Expected lone cell to have no neighbours, got %d", d)
	}
}

func TestGrid_SetCellOutOfBoundsPanics(t *testing.T) {
	grid, _ := NewGrid(2, 2)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected setCell outside the grid to panic")
		}
	}()
	grid.setCell(Coord{Row: 2, Col: 0}, 1, "A")
}

func TestGrid_CloneAndEqual(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	grid.setCell(Coord{0, 1}, 2, "A")

	clone := grid.Clone()
	if !grid.Equal(clone) {
		t.Fatal("Expected clone to equal original")
	}

	clone.setCell(Coord{0, 1}, 3, "A")
	if grid.Equal(clone) {
		t.Error("Expected modified clone to differ")
	}
	if cell, _ := grid.Get(Coord{0, 1}); cell.Stock != 2 {
		t.Errorf("Expected original to be untouched, got stock %d", cell.Stock)
	}
}

func TestGrid_Validate(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	if err := grid.Validate(); err != nil {
		t.Fatalf("Expected fresh grid to be valid, got %v", err)
	}

	grid.setCell(Coord{0, 0}, Capacity, "A")
	if err := grid.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation for stock at capacity, got %v", err)
	}

	grid.setCell(Coord{0, 0}, 0, "A")
	if err := grid.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation for owned empty cell, got %v", err)
	}

	grid.setCell(Coord{0, 0}, 2, Neutral)
	if err := grid.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation for neutral stocked cell, got %v", err)
	}
}

func TestGrid_JSON(t *testing.T) {
	grid, _ := NewGrid(2, 3)
	grid.setCell(Coord{1, 2}, 3, "B")
	grid.setCell(Coord{0, 0}, 1, "A")

	data, err := json.Marshal(grid)
	if err != nil {
		t.Fatalf("Failed to marshal grid: %v", err)
	}

	var decoded Grid
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal grid: %v", err)
	}

	if !grid.Equal(&decoded) {
		t.Errorf("Expected decoded grid to equal original, got %s", data)
	}
}

func TestGrid_UnmarshalRejectsBrokenState(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"stock at capacity", `{"rows":1,"cols":2,"cells":[[{"stock":4,"owner":"A"},{"stock":0,"owner":"N"}]]}`, ErrInvariantViolation},
		{"short row", `{"rows":1,"cols":2,"cells":[[{"stock":0,"owner":"N"}]]}`, ErrInvalidDimensions},
		{"missing rows", `{"rows":2,"cols":1,"cells":[[{"stock":0,"owner":"N"}]]}`, ErrInvalidDimensions},
		{"zero size", `{"rows":0,"cols":1,"cells":[]}`, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grid
			err := json.Unmarshal([]byte(tt.payload), &g)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
